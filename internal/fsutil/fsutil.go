// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fsutil writes stage outputs so that a reader never observes a
// half-written file under its final name.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// PartialSuffix is appended to an output path while it is being written.
const PartialSuffix = ".partial"

// WriteFileAtomic writes data to a temporary sibling of path and renames it
// into place. Parent directories are created as needed.
func WriteFileAtomic(fs afero.Fs, path string, data []byte) error {
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	tmp := path + ".tmp"
	if err := afero.WriteFile(fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := fs.Rename(tmp, path); err != nil {
		_ = fs.Remove(tmp)
		return fmt.Errorf("renaming %s: %w", tmp, err)
	}
	return nil
}

// Exists reports whether path names an existing regular file.
func Exists(fs afero.Fs, path string) bool {
	info, err := fs.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// ListFiles returns the regular files under dir whose extension is one of
// exts (compared case-insensitively), in lexical order. In-progress outputs
// (PartialSuffix and .tmp files) are never listed.
func ListFiles(fs afero.Fs, dir string, exts ...string) ([]string, error) {
	if _, err := fs.Stat(dir); err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}
	want := make(map[string]bool, len(exts))
	for _, e := range exts {
		want[strings.ToLower(e)] = true
	}

	var files []string
	err := afero.Walk(fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || strings.HasSuffix(path, PartialSuffix) || strings.HasSuffix(path, ".tmp") {
			return nil
		}
		if want[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

// PartialWriter accumulates output under path+PartialSuffix. Commit renames it
// to the final path; Abort either keeps the partial file or removes it.
type PartialWriter struct {
	fs      afero.Fs
	path    string
	partial string
	f       afero.File
	written int64
	closed  bool
}

// CreatePartial opens a fresh partial file for path, truncating any
// leftover from an earlier run.
func CreatePartial(fs afero.Fs, path string) (*PartialWriter, error) {
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating directory for %s: %w", path, err)
	}
	partial := path + PartialSuffix
	f, err := fs.OpenFile(partial, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", partial, err)
	}
	return &PartialWriter{fs: fs, path: path, partial: partial, f: f}, nil
}

// Write appends p to the partial file.
func (w *PartialWriter) Write(p []byte) (int, error) {
	n, err := w.f.Write(p)
	w.written += int64(n)
	return n, err
}

// WriteString appends s to the partial file.
func (w *PartialWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// Written returns the number of bytes written so far.
func (w *PartialWriter) Written() int64 { return w.written }

// PartialPath returns the name the output lives under until Commit.
func (w *PartialWriter) PartialPath() string { return w.partial }

// Commit syncs and closes the partial file and renames it to the final path.
func (w *PartialWriter) Commit() error {
	if err := w.f.Sync(); err != nil {
		w.close()
		return fmt.Errorf("syncing %s: %w", w.partial, err)
	}
	if err := w.close(); err != nil {
		return fmt.Errorf("closing %s: %w", w.partial, err)
	}
	if err := w.fs.Rename(w.partial, w.path); err != nil {
		return fmt.Errorf("renaming %s: %w", w.partial, err)
	}
	return nil
}

// Abort closes the partial file unless Commit already did. When keep is
// false the file is removed.
func (w *PartialWriter) Abort(keep bool) error {
	closeErr := w.close()
	if keep {
		return closeErr
	}
	if err := w.fs.Remove(w.partial); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", w.partial, err)
	}
	return nil
}

func (w *PartialWriter) close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.f.Close()
}
