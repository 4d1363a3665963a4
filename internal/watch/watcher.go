// Package watch monitors workbooks on disk and re-runs extraction whenever
// one changes, so downstream data documents stay fresh.
package watch

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Options configure a watcher.
type Options struct {
	Paths     []string
	Recursive bool
	Debounce  time.Duration
}

// Event records one handled file change.
type Event struct {
	Time      time.Time `json:"time"`
	Path      string    `json:"path"`
	Operation string    `json:"operation"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
}

// Handler processes one changed workbook.
type Handler func(path string) error

// Watcher debounces file events on .xlsx files and hands stable paths to the
// handler.
type Watcher struct {
	opts    Options
	handler Handler
	logger  *log.Logger

	mu       sync.Mutex
	events   []Event
	debounce map[string]*time.Timer
	fsw      *fsnotify.Watcher
}

// New creates a watcher for the given paths.
func New(opts Options, handler Handler) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("could not create file watcher: %w", err)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}

	return &Watcher{
		opts:     opts,
		handler:  handler,
		logger:   log.New(os.Stderr, "[watch] ", log.LstdFlags),
		debounce: make(map[string]*time.Timer),
		fsw:      fsw,
	}, nil
}

// Run watches until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	for _, p := range w.opts.Paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return fmt.Errorf("could not resolve %s: %w", p, err)
		}
		if w.opts.Recursive {
			if err := w.addRecursive(abs); err != nil {
				return err
			}
		} else if err := w.fsw.Add(abs); err != nil {
			return fmt.Errorf("could not watch %s: %w", abs, err)
		}
	}

	w.logger.Printf("watching %d path(s)", len(w.opts.Paths))

	for {
		select {
		case <-ctx.Done():
			w.logger.Println("stopping watcher")
			return w.fsw.Close()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Printf("error: %v", err)
		}
	}
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			if strings.HasPrefix(filepath.Base(path), ".") && path != dir {
				return filepath.SkipDir
			}
			return w.fsw.Add(path)
		}
		return nil
	})
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	if !Watchable(event.Name) {
		return
	}

	// Debounce: Office writes arrive as bursts of events per save.
	w.mu.Lock()
	if timer, ok := w.debounce[event.Name]; ok {
		timer.Stop()
	}
	op := event.Op.String()
	w.debounce[event.Name] = time.AfterFunc(w.opts.Debounce, func() {
		w.process(event.Name, op)
	})
	w.mu.Unlock()
}

// Watchable reports whether the path is a workbook worth processing. Office
// lock files (~$...) are skipped.
func Watchable(path string) bool {
	if strings.ToLower(filepath.Ext(path)) != ".xlsx" {
		return false
	}
	base := filepath.Base(path)
	return !strings.HasPrefix(base, "~$") && !strings.HasPrefix(base, ".~")
}

func (w *Watcher) process(path, operation string) {
	evt := Event{Time: time.Now(), Path: path, Operation: operation, Status: "processed"}

	if w.handler != nil {
		if err := w.handler(path); err != nil {
			evt.Status = "error"
			evt.Error = err.Error()
			w.logger.Printf("error processing %s: %v", path, err)
		} else {
			w.logger.Printf("processed %s", path)
		}
	}

	w.mu.Lock()
	w.events = append(w.events, evt)
	w.mu.Unlock()
}

// Events returns the handled events so far.
func (w *Watcher) Events() []Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	events := make([]Event, len(w.events))
	copy(events, w.events)
	return events
}
