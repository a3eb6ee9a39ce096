// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package watch submits PDFs dropped into a directory for processing. A
// file is submitted once it has stopped changing for the settle period.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pdiddy/pdf-cleanup-agent/internal/logging"
)

// DefaultSettle is how long a file must be quiet before it is submitted.
const DefaultSettle = 2 * time.Second

// SubmitFunc hands a settled PDF to the caller.
type SubmitFunc func(path string) error

// Watcher watches one directory for PDFs.
type Watcher struct {
	dir      string
	submit   SubmitFunc
	settle   time.Duration
	existing bool
	log      logging.Logger
}

// Option customizes a Watcher.
type Option func(*Watcher)

// WithSettle sets the quiet period before a file is submitted.
func WithSettle(d time.Duration) Option { return func(w *Watcher) { w.settle = d } }

// WithExisting submits PDFs already in the directory when Run starts.
func WithExisting(b bool) Option { return func(w *Watcher) { w.existing = b } }

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option { return func(w *Watcher) { w.log = l } }

// New returns a Watcher for dir.
func New(dir string, submit SubmitFunc, opts ...Option) *Watcher {
	w := &Watcher{dir: dir, submit: submit, settle: DefaultSettle, log: logging.Discard()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// IsPDF reports whether path has a .pdf extension.
func IsPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// Run watches until ctx is cancelled. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	w.log.Info("watching for PDFs", "dir", w.dir, "settle", w.settle)

	if w.existing {
		if err := w.submitExisting(); err != nil {
			return err
		}
	}

	tick := max(w.settle/4, 10*time.Millisecond)
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	// pending maps a path to the time of its latest event.
	pending := make(map[string]time.Time)
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !IsPDF(ev.Name) || (!ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write)) {
				if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
					delete(pending, ev.Name)
				}
				continue
			}
			pending[ev.Name] = time.Now()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", "dir", w.dir, "err", err)

		case now := <-ticker.C:
			for _, path := range settled(pending, now, w.settle) {
				delete(pending, path)
				w.trySubmit(path)
			}
		}
	}
}

// settled returns the pending paths quiet for at least settle, sorted.
func settled(pending map[string]time.Time, now time.Time, settle time.Duration) []string {
	var ready []string
	for path, last := range pending {
		if now.Sub(last) >= settle {
			ready = append(ready, path)
		}
	}
	sort.Strings(ready)
	return ready
}

func (w *Watcher) trySubmit(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() || info.Size() == 0 {
		w.log.Debug("ignoring vanished or empty file", "path", path)
		return
	}
	if err := w.submit(path); err != nil {
		w.log.Error("could not submit", "path", path, "err", err)
		return
	}
	w.log.Info("submitted", "path", path)
}

func (w *Watcher) submitExisting() error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", w.dir, err)
	}
	for _, e := range entries {
		if !e.IsDir() && IsPDF(e.Name()) {
			w.trySubmit(filepath.Join(w.dir, e.Name()))
		}
	}
	return nil
}
