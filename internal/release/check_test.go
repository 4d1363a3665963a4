package release

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsNewer(t *testing.T) {
	assert.True(t, isNewer("v0.4.0", "v0.3.0"))
	assert.False(t, isNewer("v0.3.0", "v0.3.0"))
	assert.False(t, isNewer("v0.2.0", "v0.3.0"))
	assert.False(t, isNewer("v1.0.0", "dev"), "dev builds skip update notices")
	assert.False(t, isNewer("v1.0.0", ""))
}

func withStub(t *testing.T, handler http.HandlerFunc) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	old := apiBase
	apiBase = server.URL
	t.Cleanup(func() { apiBase = old })
}

func TestCheckLatestNewVersion(t *testing.T) {
	withStub(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Info{Version: "v0.4.0", PublishedAt: time.Now()})
	})

	info, err := CheckLatest("v0.3.0")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "v0.4.0", info.Version)
}

func TestCheckLatestUpToDate(t *testing.T) {
	withStub(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Info{Version: "v0.3.0", PublishedAt: time.Now()})
	})

	info, err := CheckLatest("v0.3.0")
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestCheckLatestNoReleases(t *testing.T) {
	withStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	info, err := CheckLatest("v0.3.0")
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestCheckLatestRateLimited(t *testing.T) {
	withStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := CheckLatest("v0.3.0")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestFormatNotice(t *testing.T) {
	info := &Info{
		Version:     "v0.4.0",
		PublishedAt: time.Date(2026, 2, 24, 0, 0, 0, 0, time.UTC),
		Body:        "## What's New\n- Regex header search\n- Watch mode",
	}

	notice := FormatNotice("v0.3.0", info)
	assert.Contains(t, notice, "v0.3.0")
	assert.Contains(t, notice, "v0.4.0")
	assert.Contains(t, notice, "go install")
}

func TestShouldCheckNoFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	assert.True(t, shouldCheck())
}
