package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// SiteConfig represents the machine-wide configuration layer, deployed by
// administrators. Read from /etc/mergekit/site.yaml (macOS/Linux) or
// C:\ProgramData\MergeKit\site.yaml (Windows). User config overrides it
// unless a field is locked.
type SiteConfig struct {
	OrgName   string `yaml:"org_name" json:"org_name"`
	OrgDomain string `yaml:"org_domain" json:"org_domain"`

	MappingDir string `yaml:"mapping_dir" json:"mapping_dir"`

	Server struct {
		Addr        string `yaml:"addr" json:"addr"`
		MaxUploadMB int    `yaml:"max_upload_mb" json:"max_upload_mb"`
	} `yaml:"server" json:"server"`

	Audit struct {
		Enabled  bool   `yaml:"enabled" json:"enabled"`
		FilePath string `yaml:"file_path" json:"file_path"`
	} `yaml:"audit" json:"audit"`

	Locked struct {
		MappingDir bool `yaml:"mapping_dir" json:"mapping_dir"`
		AuditPath  bool `yaml:"audit_path" json:"audit_path"`
	} `yaml:"locked" json:"locked"`
}

// SiteConfigPath returns the platform-specific path for site config.
func SiteConfigPath() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("ProgramData"), "MergeKit", "site.yaml")
	}
	return "/etc/mergekit/site.yaml"
}

// LoadSiteConfig reads the site config file. Returns nil (not error) if the
// file does not exist.
func LoadSiteConfig() (*SiteConfig, error) {
	return LoadSiteConfigFrom(SiteConfigPath())
}

// LoadSiteConfigFrom reads the site config from a specific path.
func LoadSiteConfigFrom(path string) (*SiteConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not read site config at %s: %w", path, err)
	}

	var cfg SiteConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid site config at %s: %w", path, err)
	}

	return &cfg, nil
}

// ValidateSiteConfig checks that a site config is valid.
func ValidateSiteConfig(cfg *SiteConfig) []string {
	var issues []string
	if cfg.OrgName == "" {
		issues = append(issues, "org_name is required")
	}
	if cfg.MappingDir != "" {
		if info, err := os.Stat(cfg.MappingDir); err != nil || !info.IsDir() {
			issues = append(issues, fmt.Sprintf("mapping_dir %q is not a readable directory", cfg.MappingDir))
		}
	}
	if cfg.Server.MaxUploadMB < 0 {
		issues = append(issues, "server.max_upload_mb must not be negative")
	}
	return issues
}

// GenerateSiteTemplate returns a YAML template for site config.
func GenerateSiteTemplate(orgName, domain string) string {
	return fmt.Sprintf(`# MergeKit Site Configuration
# Deploy to: %s
# Permissions: readable by all users, writable only by root/Administrators

org_name: %q
org_domain: %q

# Directory searched for mapping files referenced by bare name.
mapping_dir: ""

server:
  addr: ":8080"
  max_upload_mb: 50

audit:
  enabled: true
  file_path: "~/.mergekit/audit.jsonl"

locked:
  mapping_dir: false
  audit_path: false
`, SiteConfigPath(), orgName, domain)
}

// AuditLogPath returns the resolved audit log path from site config.
func (s *SiteConfig) AuditLogPath() string {
	if s.Audit.FilePath == "" {
		return DefaultAuditLog()
	}
	path := s.Audit.FilePath
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}
	return path
}
