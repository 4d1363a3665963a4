package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSiteConfigMissing(t *testing.T) {
	cfg, err := LoadSiteConfigFrom("/nonexistent/site.yaml")
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestLoadSiteConfigValid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "site.yaml")
	content := `
org_name: "Test Corp"
org_domain: "test.com"
mapping_dir: ""
server:
  addr: ":9000"
  max_upload_mb: 100
audit:
  enabled: true
  file_path: "~/.mergekit/audit.jsonl"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadSiteConfigFrom(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "Test Corp", cfg.OrgName)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 100, cfg.Server.MaxUploadMB)
	assert.True(t, cfg.Audit.Enabled)
}

func TestLoadSiteConfigInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "site.yaml")
	require.NoError(t, os.WriteFile(path, []byte("org_name: [unclosed"), 0o644))

	_, err := LoadSiteConfigFrom(path)
	require.Error(t, err)
}

func TestValidateSiteConfig(t *testing.T) {
	cfg := &SiteConfig{}
	issues := ValidateSiteConfig(cfg)
	assert.Contains(t, issues, "org_name is required")

	cfg.OrgName = "Test Corp"
	cfg.MappingDir = "/nonexistent/dir"
	issues = ValidateSiteConfig(cfg)
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0], "mapping_dir")
}

func TestAuditLogPathExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := &SiteConfig{}
	cfg.Audit.FilePath = "~/.mergekit/audit.jsonl"
	assert.Equal(t, filepath.Join(home, ".mergekit", "audit.jsonl"), cfg.AuditLogPath())

	cfg.Audit.FilePath = ""
	assert.Equal(t, filepath.Join(home, ".mergekit", "audit.jsonl"), cfg.AuditLogPath())
}

func TestGenerateSiteTemplateIsValidYAML(t *testing.T) {
	tpl := GenerateSiteTemplate("Test Corp", "test.com")

	dir := t.TempDir()
	path := filepath.Join(dir, "site.yaml")
	require.NoError(t, os.WriteFile(path, []byte(tpl), 0o644))

	cfg, err := LoadSiteConfigFrom(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "Test Corp", cfg.OrgName)
	assert.Empty(t, ValidateSiteConfig(cfg))
}
