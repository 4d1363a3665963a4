// Package config manages application configuration from files and environment.
package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	MappingPath string `mapstructure:"mapping_path"`
	Output      struct {
		Format string `mapstructure:"format"`
		Color  bool   `mapstructure:"color"`
	} `mapstructure:"output"`
	Audit struct {
		LogFile   string `mapstructure:"log_file"`
		Worksheet bool   `mapstructure:"worksheet"`
	} `mapstructure:"audit"`
	Server struct {
		Addr            string `mapstructure:"addr"`
		MaxUploadMB     int    `mapstructure:"max_upload_mb"`
		ShutdownTimeout int    `mapstructure:"shutdown_timeout_seconds"`
	} `mapstructure:"server"`
	Watch struct {
		DebounceMs int `mapstructure:"debounce_ms"`
	} `mapstructure:"watch"`
}

// Load reads the configuration from ~/.mergekit/config.yaml and environment
// variables prefixed MERGEKIT_. Site config, when present, supplies defaults
// beneath the user layer.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir())

	// Defaults
	viper.SetDefault("output.color", true)
	viper.SetDefault("output.format", "text")
	viper.SetDefault("audit.worksheet", true)
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.max_upload_mb", 50)
	viper.SetDefault("server.shutdown_timeout_seconds", 10)
	viper.SetDefault("watch.debounce_ms", 500)

	if site, err := LoadSiteConfig(); err == nil && site != nil {
		if site.Server.Addr != "" {
			viper.SetDefault("server.addr", site.Server.Addr)
		}
		if site.Server.MaxUploadMB > 0 {
			viper.SetDefault("server.max_upload_mb", site.Server.MaxUploadMB)
		}
		if site.Audit.Enabled && site.Audit.FilePath != "" {
			viper.SetDefault("audit.log_file", site.AuditLogPath())
		}
	}

	viper.SetEnvPrefix("MERGEKIT")
	viper.AutomaticEnv()

	// Read config file (non-fatal if missing)
	_ = viper.ReadInConfig()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mergekit"
	}
	return filepath.Join(home, ".mergekit")
}

// DefaultAuditLog returns the default JSONL audit log path.
func DefaultAuditLog() string {
	return filepath.Join(configDir(), "audit.jsonl")
}
