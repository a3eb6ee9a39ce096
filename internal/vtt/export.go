// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package vtt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/pdiddy/pdf-cleanup-agent/internal/fsutil"
	"github.com/pdiddy/pdf-cleanup-agent/internal/logging"
	"github.com/pdiddy/pdf-cleanup-agent/internal/segment"
)

// FilePrefix names exported journal files: fvtt-JournalEntry-<dir>.json.
const FilePrefix = "fvtt-JournalEntry-"

// Exporter writes journal JSON files.
type Exporter struct {
	fs  afero.Fs
	log logging.Logger
}

// Option customizes an Exporter.
type Option func(*Exporter)

// WithFs sets the filesystem.
func WithFs(fs afero.Fs) Option { return func(e *Exporter) { e.fs = fs } }

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option { return func(e *Exporter) { e.log = l } }

// NewExporter returns an Exporter.
func NewExporter(opts ...Option) *Exporter {
	e := &Exporter{fs: afero.NewOsFs(), log: logging.Discard()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExportDir builds a journal from the .md files in mdDir and writes it to
// outFile. When orderFile exists its entries fix page order and names;
// files it does not list follow in lexical order. Without an order file
// pages are in lexical order and named after their files.
func (e *Exporter) ExportDir(mdDir, orderFile, outFile string) (Journal, error) {
	files, err := fsutil.ListFiles(e.fs, mdDir, ".md")
	if err != nil {
		return Journal{}, err
	}
	byStem := make(map[string]string, len(files))
	for _, f := range files {
		rel, err := filepath.Rel(mdDir, f)
		if err != nil {
			continue
		}
		byStem[filepath.ToSlash(strings.TrimSuffix(rel, filepath.Ext(rel)))] = f
	}

	name := DisplayName(filepath.Base(filepath.Clean(mdDir)))
	var pages []PageSource
	used := make(map[string]bool, len(files))

	if orderFile != "" && fsutil.Exists(e.fs, orderFile) {
		order, err := segment.ReadOrder(e.fs, orderFile)
		if err != nil {
			return Journal{}, err
		}
		for _, entry := range order.Entries {
			path, ok := byStem[entry.Filename]
			if !ok {
				e.log.Warn("ordered section has no markdown file", "dir", mdDir, "file", entry.Filename)
				continue
			}
			if used[path] {
				continue
			}
			md, err := afero.ReadFile(e.fs, path)
			if err != nil {
				return Journal{}, fmt.Errorf("reading %s: %w", path, err)
			}
			used[path] = true
			pages = append(pages, PageSource{Name: entry.Title, Markdown: string(md)})
		}
	} else {
		e.log.Debug("no order file, using file order", "dir", mdDir)
	}

	stems := make([]string, 0, len(byStem))
	for stem := range byStem {
		stems = append(stems, stem)
	}
	sort.Strings(stems)
	for _, stem := range stems {
		path := byStem[stem]
		if used[path] {
			continue
		}
		md, err := afero.ReadFile(e.fs, path)
		if err != nil {
			return Journal{}, fmt.Errorf("reading %s: %w", path, err)
		}
		pages = append(pages, PageSource{Name: DisplayName(filepath.Base(stem)), Markdown: string(md)})
	}

	if len(pages) == 0 {
		return Journal{}, fmt.Errorf("no markdown pages in %s", mdDir)
	}

	j, err := BuildJournal(name, pages)
	if err != nil {
		return Journal{}, err
	}
	if err := e.write(outFile, j); err != nil {
		return Journal{}, err
	}
	return j, nil
}

func (e *Exporter) write(path string, j Journal) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(j); err != nil {
		return fmt.Errorf("encoding journal: %w", err)
	}
	return fsutil.WriteFileAtomic(e.fs, path, buf.Bytes())
}

// OutputPath returns where the journal for mdDir is written inside jsonDir.
func OutputPath(jsonDir, mdDir string) string {
	return filepath.Join(jsonDir, FilePrefix+filepath.Base(filepath.Clean(mdDir))+".json")
}

// OrderPath returns the order file segmentation wrote for mdDir inside ymlDir.
func OrderPath(ymlDir, mdDir string) string {
	return filepath.Join(ymlDir, filepath.Base(filepath.Clean(mdDir))+segment.OrderFileSuffix)
}

// BatchSummary holds counts from exporting several directories.
type BatchSummary struct {
	Exported int
	Failed   int
	Pages    int
}

// Total returns the number of directories processed.
func (s BatchSummary) Total() int { return s.Exported + s.Failed }

// HasFailures reports whether any directory failed.
func (s BatchSummary) HasFailures() bool { return s.Failed > 0 }

// ExportAll exports one journal per subdirectory of mdRoot. Order files are
// looked up in ymlDir and journals are written to jsonDir.
func (e *Exporter) ExportAll(ctx context.Context, mdRoot, ymlDir, jsonDir string, w io.Writer) (BatchSummary, error) {
	entries, err := afero.ReadDir(e.fs, mdRoot)
	if err != nil {
		return BatchSummary{}, fmt.Errorf("reading markdown directory %s: %w", mdRoot, err)
	}

	var dirs []string
	for _, info := range entries {
		if info.IsDir() {
			dirs = append(dirs, filepath.Join(mdRoot, info.Name()))
		}
	}
	if len(dirs) == 0 {
		dirs = []string{mdRoot}
	}

	var summary BatchSummary
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		out := OutputPath(jsonDir, dir)
		j, err := e.ExportDir(dir, OrderPath(ymlDir, dir), out)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", dir, err)
			summary.Failed++
			continue
		}
		fmt.Fprintf(w, "exported %s (%d pages) -> %s\n", dir, len(j.Pages), out)
		summary.Exported++
		summary.Pages += len(j.Pages)
	}
	fmt.Fprintf(w, "\nexported: %d, failed: %d, pages: %d\n", summary.Exported, summary.Failed, summary.Pages)
	return summary, nil
}
