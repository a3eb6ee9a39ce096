// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package postprocess

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"

	"github.com/spf13/afero"

	"github.com/pdiddy/pdf-cleanup-agent/internal/fsutil"
	"github.com/pdiddy/pdf-cleanup-agent/internal/logging"
	"github.com/pdiddy/pdf-cleanup-agent/pkg/types"
)

// Processor rewrites Markdown files in place.
type Processor struct {
	fs      afero.Fs
	log     logging.Logger
	extra   []*regexp.Regexp
	phrases []string
	marker  string
}

// Option customizes a Processor.
type Option func(*Processor)

// WithFs sets the filesystem.
func WithFs(fs afero.Fs) Option { return func(p *Processor) { p.fs = fs } }

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option { return func(p *Processor) { p.log = l } }

// New returns a Processor for cfg. Invalid artifact patterns fail with
// types.ErrConfiguration.
func New(cfg types.PostProcessConfig, opts ...Option) (*Processor, error) {
	extra, err := CompilePatterns(cfg.ArtifactPatterns)
	if err != nil {
		return nil, err
	}
	p := &Processor{
		fs:      afero.NewOsFs(),
		log:     logging.Discard(),
		extra:   extra,
		phrases: cfg.HeadingPhrases,
		marker:  cfg.UncertainMarker,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Apply runs the selected passes over text.
func (p *Processor) Apply(text string, steps Steps) string {
	if steps.Tidy {
		text = Tidy(text, p.extra)
	}
	if steps.Headings {
		text = FormatHeadings(text, p.phrases)
	}
	if text != "" && text[len(text)-1] != '\n' {
		text += "\n"
	}
	return text
}

// Summary holds counts from a ProcessDir run.
type Summary struct {
	Changed   int
	Unchanged int
	Failed    int

	// Markers is the total number of uncertain-fix markers found.
	Markers int
}

// Total returns the number of files processed.
func (s Summary) Total() int { return s.Changed + s.Unchanged + s.Failed }

// HasFailures reports whether any file failed.
func (s Summary) HasFailures() bool { return s.Failed > 0 }

// ProcessDir applies steps to every .md file under dir, rewriting changed
// files atomically. Marker counts are reported per file but never fail it.
func (p *Processor) ProcessDir(ctx context.Context, dir string, steps Steps, w io.Writer) (Summary, error) {
	files, err := fsutil.ListFiles(p.fs, dir, ".md")
	if err != nil {
		return Summary{}, err
	}

	var summary Summary
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = filepath.Base(path)
		}

		changed, markers, err := p.processFile(path, steps)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", rel, err)
			summary.Failed++
			continue
		}
		summary.Markers += markers

		note := ""
		if markers > 0 {
			note = fmt.Sprintf(", %d uncertain", markers)
			p.log.Info("uncertain fixes need review", "file", rel, "count", markers)
		}
		if changed {
			fmt.Fprintf(w, "updated %s (%s%s)\n", rel, steps, note)
			summary.Changed++
		} else {
			fmt.Fprintf(w, "ok      %s%s\n", rel, note)
			summary.Unchanged++
		}
	}

	fmt.Fprintf(w, "\nupdated: %d, unchanged: %d, failed: %d, uncertain markers: %d\n",
		summary.Changed, summary.Unchanged, summary.Failed, summary.Markers)
	return summary, nil
}

func (p *Processor) processFile(path string, steps Steps) (changed bool, markers int, err error) {
	data, err := afero.ReadFile(p.fs, path)
	if err != nil {
		return false, 0, fmt.Errorf("reading %s: %w", path, err)
	}
	before := string(data)
	after := p.Apply(before, steps)
	markers = CountMarker(after, p.marker)
	if after == before {
		return false, markers, nil
	}
	if err := fsutil.WriteFileAtomic(p.fs, path, []byte(after)); err != nil {
		return false, markers, err
	}
	return true, markers, nil
}
