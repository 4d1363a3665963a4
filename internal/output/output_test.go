package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	buf := new(bytes.Buffer)
	w := NewWriterTo(buf)

	require.NoError(t, w.WriteJSON(map[string]int{"rows": 3}))
	assert.JSONEq(t, `{"rows": 3}`, buf.String())
}

func TestWriteTextAndLn(t *testing.T) {
	buf := new(bytes.Buffer)
	w := NewWriterTo(buf)

	require.NoError(t, w.WriteText("a"))
	require.NoError(t, w.WriteLn("b"))
	assert.Equal(t, "ab\n", buf.String())
}

func TestPageOrPrintWithoutTerminal(t *testing.T) {
	// Test processes never have a terminal on stdout, so even content far
	// beyond one screen goes straight to the destination.
	long := strings.Repeat("line\n", pageHeight*2)

	buf := new(bytes.Buffer)
	require.NoError(t, NewWriterTo(buf).PageOrPrint(long))
	assert.Equal(t, long, buf.String())
}
