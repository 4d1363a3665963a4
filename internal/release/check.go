// Package release checks GitHub for newer mergekit releases.
package release

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	githubRepo    = "klytics/mergekit"
	checkTimeout  = 2 * time.Second
	checkCooldown = 24 * time.Hour
)

// apiBase is overridable in tests.
var apiBase = "https://api.github.com"

// Info represents a GitHub release.
type Info struct {
	Version     string    `json:"tag_name"`
	PublishedAt time.Time `json:"published_at"`
	HTMLURL     string    `json:"html_url"`
	Body        string    `json:"body"`
}

// CheckLatest queries the GitHub releases API for the latest version.
// Returns nil when the current version is latest or newer.
func CheckLatest(currentVersion string) (*Info, error) {
	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/repos/%s/releases/latest", apiBase, githubRepo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not check for updates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil // no releases yet
	}
	if resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("GitHub API rate limited — try again later")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned %d", resp.StatusCode)
	}

	var info Info
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("could not parse release info: %w", err)
	}

	if !isNewer(info.Version, currentVersion) {
		return nil, nil
	}

	return &info, nil
}

// isNewer returns true if latest is newer than current.
// Simple string comparison after stripping the 'v' prefix.
func isNewer(latest, current string) bool {
	latest = strings.TrimPrefix(latest, "v")
	current = strings.TrimPrefix(current, "v")

	if current == "dev" || current == "" {
		return false // dev builds don't get update notices
	}

	return latest != current && latest > current
}

// FormatNotice returns a formatted update message.
func FormatNotice(current string, info *Info) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Current version: %s\n", current))
	sb.WriteString(fmt.Sprintf("Latest version:  %s  (released %s)\n", info.Version, info.PublishedAt.Format("2006-01-02")))
	sb.WriteString("\nUpdate available! ")

	body := strings.TrimSpace(info.Body)
	if body != "" {
		lines := strings.Split(body, "\n")
		sb.WriteString("What's new:\n")
		max := 5
		if len(lines) < max {
			max = len(lines)
		}
		for _, line := range lines[:max] {
			sb.WriteString("  " + line + "\n")
		}
	}

	sb.WriteString("\nTo update:\n")
	sb.WriteString(fmt.Sprintf("  go install github.com/%s@latest\n", githubRepo))

	return sb.String()
}

// CheckInBackground runs the update check asynchronously, at most once per
// 24 hours, and prints a non-blocking notice to stderr.
func CheckInBackground(currentVersion string) {
	go func() {
		if !shouldCheck() {
			return
		}

		info, err := CheckLatest(currentVersion)
		if err != nil || info == nil {
			return
		}

		saveLastCheck()

		fmt.Fprintf(os.Stderr, "\nUpdate available: %s -> go install github.com/%s@latest\n", info.Version, githubRepo)
	}()
}

func lastCheckPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".mergekit", "last_update_check")
}

func shouldCheck() bool {
	data, err := os.ReadFile(lastCheckPath())
	if err != nil {
		return true
	}
	t, err := time.Parse(time.RFC3339, string(data))
	if err != nil {
		return true
	}
	return time.Since(t) > checkCooldown
}

func saveLastCheck() {
	path := lastCheckPath()
	_ = os.MkdirAll(filepath.Dir(path), 0o700)
	_ = os.WriteFile(path, []byte(time.Now().Format(time.RFC3339)), 0o600)
}
