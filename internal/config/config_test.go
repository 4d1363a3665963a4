package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	viper.Reset()
	t.Cleanup(viper.Reset)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	setupTestHome(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "text", cfg.Output.Format)
	assert.True(t, cfg.Output.Color)
	assert.True(t, cfg.Audit.Worksheet)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 50, cfg.Server.MaxUploadMB)
	assert.Equal(t, 500, cfg.Watch.DebounceMs)
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := setupTestHome(t)

	confDir := filepath.Join(dir, ".mergekit")
	require.NoError(t, os.MkdirAll(confDir, 0o700))
	content := "mapping_path: /etc/mappings/invoice.json\nserver:\n  addr: \":9090\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(confDir, "config.yaml"), []byte(content), 0o600))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/etc/mappings/invoice.json", cfg.MappingPath)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.True(t, cfg.Audit.Worksheet, "unset keys keep defaults")
}

func TestSaveAndReload(t *testing.T) {
	setupTestHome(t)

	viper.Set("mapping_path", "/tmp/m.json")
	require.NoError(t, SaveConfig())

	viper.Reset()
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/m.json", cfg.MappingPath)
}

func TestValidateFlagsMissingMapping(t *testing.T) {
	setupTestHome(t)
	viper.Set("mapping_path", "/nonexistent/mapping.json")

	issues := Validate()

	found := false
	for _, issue := range issues {
		if issue.Key == "mapping_path" && issue.Severity == "error" {
			found = true
		}
	}
	assert.True(t, found, "missing mapping file should be an error")
}

func TestValidateFlagsBadServerAddr(t *testing.T) {
	setupTestHome(t)
	viper.Set("server.addr", "not an address")

	issues := Validate()

	found := false
	for _, issue := range issues {
		if issue.Key == "server.addr" && issue.Severity == "error" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestDefaultAuditLog(t *testing.T) {
	dir := setupTestHome(t)
	assert.Equal(t, filepath.Join(dir, ".mergekit", "audit.jsonl"), DefaultAuditLog())
}
