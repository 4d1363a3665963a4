package watch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchable(t *testing.T) {
	assert.True(t, Watchable("/data/report.xlsx"))
	assert.True(t, Watchable("Report.XLSX"))

	assert.False(t, Watchable("/data/report.docx"))
	assert.False(t, Watchable("/data/~$report.xlsx"), "Office lock files are skipped")
	assert.False(t, Watchable("/data/.~report.xlsx"))
	assert.False(t, Watchable("notes.txt"))
}

func TestNewAppliesDefaults(t *testing.T) {
	w, err := New(Options{Paths: []string{"."}}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.fsw.Close() })

	assert.Greater(t, int64(w.opts.Debounce), int64(0))
	assert.Empty(t, w.Events())
}
