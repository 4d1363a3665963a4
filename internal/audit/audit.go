// Package audit records every cell-level operation an update run performs,
// for the diagnostic worksheet and optional JSONL log file.
package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Entry statuses.
const (
	StatusInfo    = "INFO"
	StatusSuccess = "SUCCESS"
	StatusWarning = "WARNING"
	StatusError   = "ERROR"
)

// Entry is a single logged operation.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Operation string    `json:"operation"`
	Cell      string    `json:"cell,omitempty"`
	Status    string    `json:"status"`
	Details   string    `json:"details,omitempty"`
	Before    string    `json:"before,omitempty"`
	After     string    `json:"after,omitempty"`
}

// Log accumulates entries for one update run. It is not safe for concurrent
// use; each run owns its own log.
type Log struct {
	entries []Entry
	now     func() time.Time
}

// NewLog returns an empty run log.
func NewLog() *Log {
	return &Log{now: time.Now}
}

func (l *Log) add(status, op, cell, details, before, after string) {
	l.entries = append(l.entries, Entry{
		Timestamp: l.now(),
		Operation: op,
		Cell:      cell,
		Status:    status,
		Details:   details,
		Before:    before,
		After:     after,
	})
}

// Info records a neutral progress entry.
func (l *Log) Info(op, cell, details string) {
	l.add(StatusInfo, op, cell, details, "", "")
}

// Success records a completed cell write with its before and after values.
func (l *Log) Success(op, cell, details, before, after string) {
	l.add(StatusSuccess, op, cell, details, before, after)
}

// Warning records a recoverable problem.
func (l *Log) Warning(op, cell, details string) {
	l.add(StatusWarning, op, cell, details, "", "")
}

// Error records a failed operation.
func (l *Log) Error(op, cell, details string) {
	l.add(StatusError, op, cell, details, "", "")
}

// Entries returns the logged entries in order.
func (l *Log) Entries() []Entry {
	return l.entries
}

// Summary counts entries by status.
type Summary struct {
	Success  int `json:"success"`
	Warnings int `json:"warnings"`
	Errors   int `json:"errors"`
	Total    int `json:"total"`
}

// Summarize tallies the log by status.
func (l *Log) Summarize() Summary {
	s := Summary{Total: len(l.entries)}
	for _, e := range l.entries {
		switch e.Status {
		case StatusSuccess:
			s.Success++
		case StatusWarning:
			s.Warnings++
		case StatusError:
			s.Errors++
		}
	}
	return s
}

// WriteJSONL appends the log's entries to a JSONL file, creating parent
// directories as needed. Best-effort: I/O problems are returned but callers
// treat them as non-fatal.
func (l *Log) WriteJSONL(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, e := range l.entries {
		data, err := json.Marshal(e)
		if err != nil {
			continue
		}
		data = append(data, '\n')
		if _, err := f.Write(data); err != nil {
			return err
		}
	}
	return nil
}

// ReadJSONL reads entries back from a JSONL log file, skipping malformed
// lines. A missing file reads as empty.
func ReadJSONL(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []Entry
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Filter returns entries within the time window and matching the operation
// and status filters. Zero times and empty strings match everything.
func Filter(entries []Entry, since, until time.Time, operation, status string) []Entry {
	var result []Entry
	for _, e := range entries {
		if !since.IsZero() && e.Timestamp.Before(since) {
			continue
		}
		if !until.IsZero() && e.Timestamp.After(until) {
			continue
		}
		if operation != "" && !strings.Contains(e.Operation, operation) {
			continue
		}
		if status != "" && e.Status != status {
			continue
		}
		result = append(result, e)
	}
	return result
}
