package config

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Issue represents a configuration validation finding.
type Issue struct {
	Key      string `json:"key"`
	Severity string `json:"severity"` // "error", "warning", "info"
	Message  string `json:"message"`
	Fix      string `json:"fix,omitempty"`
}

// Wizard runs the interactive setup wizard.
// If reader is nil, reads from os.Stdin.
func Wizard(reader io.Reader) error {
	if reader == nil {
		reader = os.Stdin
	}
	scanner := bufio.NewScanner(reader)

	fmt.Println("MergeKit Setup Wizard")
	fmt.Println()
	fmt.Println(strings.Repeat("-", 48))
	fmt.Println()

	fmt.Println("Step 1/3: Default mapping file")
	fmt.Print("  Path to your mapping configuration (blank to skip): ")
	scanner.Scan()
	if path := strings.TrimSpace(scanner.Text()); path != "" {
		if _, err := os.Stat(path); err != nil {
			fmt.Printf("  Note: %s does not exist yet, saving anyway\n", path)
		}
		viper.Set("mapping_path", path)
	}
	fmt.Println()

	fmt.Println("Step 2/3: Audit log")
	fmt.Print("  Write an update_log worksheet into updated workbooks? [Y/n]: ")
	scanner.Scan()
	switch strings.TrimSpace(strings.ToLower(scanner.Text())) {
	case "", "y", "yes":
		viper.Set("audit.worksheet", true)
	default:
		viper.Set("audit.worksheet", false)
	}
	fmt.Println()

	fmt.Println("Step 3/3: HTTP server")
	fmt.Print("  Listen address for mergekit serve (default :8080): ")
	scanner.Scan()
	if addr := strings.TrimSpace(scanner.Text()); addr != "" {
		viper.Set("server.addr", addr)
	}
	fmt.Println()

	if err := SaveConfig(); err != nil {
		return fmt.Errorf("could not save config: %w", err)
	}

	fmt.Println(strings.Repeat("-", 48))
	fmt.Println()
	fmt.Println("MergeKit is ready!")
	fmt.Println()
	fmt.Println("Quick start:")
	fmt.Println("  mergekit extract workbook.xlsx -m mapping.json")
	fmt.Println("  mergekit update workbook.xlsx -m mapping.json -d data.json")
	fmt.Println("  mergekit merge deck.pptx workbook.xlsx -m mapping.json")
	fmt.Println()
	fmt.Printf("Config file: %s\n", ConfigPath())
	fmt.Println("Type 'mergekit config show' to see all settings.")

	return nil
}

// WizardNonInteractive sets up config with defaults only (no user input).
func WizardNonInteractive() error {
	viper.Set("output.color", true)
	viper.Set("output.format", "text")
	viper.Set("audit.worksheet", true)
	return SaveConfig()
}

// Validate checks config values and returns a list of issues.
func Validate() []Issue {
	var issues []Issue

	if path := viper.GetString("mapping_path"); path != "" {
		if _, err := os.Stat(path); err != nil {
			issues = append(issues, Issue{
				Key:      "mapping_path",
				Severity: "error",
				Message:  fmt.Sprintf("default mapping file %s does not exist", path),
				Fix:      "mergekit config set mapping_path /path/to/mapping.json",
			})
		} else {
			issues = append(issues, Issue{
				Key:      "mapping_path",
				Severity: "info",
				Message:  "default mapping file configured",
			})
		}
	} else {
		issues = append(issues, Issue{
			Key:      "mapping_path",
			Severity: "warning",
			Message:  "no default mapping file set — pass --mapping on every run",
			Fix:      "mergekit config set mapping_path /path/to/mapping.json",
		})
	}

	if addr := viper.GetString("server.addr"); addr != "" {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			issues = append(issues, Issue{
				Key:      "server.addr",
				Severity: "error",
				Message:  fmt.Sprintf("server.addr %q is not a valid host:port", addr),
				Fix:      "mergekit config set server.addr :8080",
			})
		}
	}

	if logFile := viper.GetString("audit.log_file"); logFile != "" {
		dir := filepath.Dir(logFile)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			issues = append(issues, Issue{
				Key:      "audit.log_file",
				Severity: "warning",
				Message:  fmt.Sprintf("audit log directory %s does not exist", dir),
				Fix:      "mkdir -p " + dir,
			})
		}
	}

	return issues
}

// Set sets a config value and saves to disk.
func Set(key, value string) error {
	viper.Set(key, value)
	return SaveConfig()
}

// Get retrieves a config value.
func Get(key string) string {
	return viper.GetString(key)
}

// ResetConfig resets all config to defaults.
func ResetConfig() error {
	path := ConfigPath()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("could not delete config: %w", err)
	}
	viper.Set("output.color", true)
	viper.Set("output.format", "text")
	viper.Set("audit.worksheet", true)
	return nil
}

// SaveConfig writes the current config to ~/.mergekit/config.yaml.
func SaveConfig() error {
	dir := configDir()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}

	path := filepath.Join(dir, "config.yaml")
	if err := viper.WriteConfigAs(path); err != nil {
		return fmt.Errorf("could not write config: %w", err)
	}

	return os.Chmod(path, 0o600)
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// ShowConfig returns a formatted string of the current configuration.
func ShowConfig() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Config: %s\n\n", ConfigPath()))

	sb.WriteString("General\n")
	sb.WriteString(fmt.Sprintf("  mapping_path:  %s\n", viper.GetString("mapping_path")))
	sb.WriteString(fmt.Sprintf("  output.format: %s\n", viper.GetString("output.format")))
	sb.WriteString(fmt.Sprintf("  output.color:  %v\n", viper.GetBool("output.color")))
	sb.WriteString("\n")

	sb.WriteString("Audit\n")
	sb.WriteString(fmt.Sprintf("  worksheet: %v\n", viper.GetBool("audit.worksheet")))
	if f := viper.GetString("audit.log_file"); f != "" {
		sb.WriteString(fmt.Sprintf("  log_file:  %s\n", f))
	}
	sb.WriteString("\n")

	sb.WriteString("Server\n")
	sb.WriteString(fmt.Sprintf("  addr:          %s\n", viper.GetString("server.addr")))
	sb.WriteString(fmt.Sprintf("  max_upload_mb: %d\n", viper.GetInt("server.max_upload_mb")))

	return sb.String()
}
