// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs the configured steps for one PDF: segmentation,
// model cleaning, post-processing and VTT export. Steps run in the order
// the configuration lists them and the first failing step ends the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/pdiddy/pdf-cleanup-agent/internal/chunk"
	"github.com/pdiddy/pdf-cleanup-agent/internal/cleanup"
	"github.com/pdiddy/pdf-cleanup-agent/internal/ledger"
	"github.com/pdiddy/pdf-cleanup-agent/internal/logging"
	"github.com/pdiddy/pdf-cleanup-agent/internal/model"
	"github.com/pdiddy/pdf-cleanup-agent/internal/postprocess"
	"github.com/pdiddy/pdf-cleanup-agent/internal/prompt"
	"github.com/pdiddy/pdf-cleanup-agent/internal/segment"
	"github.com/pdiddy/pdf-cleanup-agent/internal/vtt"
	"github.com/pdiddy/pdf-cleanup-agent/pkg/types"
)

// Layout is where each stage reads and writes for one PDF.
type Layout struct {
	Stem        string
	TextDir     string // section .txt files
	MarkdownDir string // cleaned .md files
	OrderFile   string
	JournalFile string
}

// LayoutFor returns the Layout of pdfPath under dirs.
func LayoutFor(dirs types.DirectoriesConfig, pdfPath string) Layout {
	stem := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	return Layout{
		Stem:        stem,
		TextDir:     filepath.Join(dirs.TextOutput, stem),
		MarkdownDir: filepath.Join(dirs.MarkdownOutput, stem),
		OrderFile:   filepath.Join(dirs.YAMLOutput, stem+segment.OrderFileSuffix),
		JournalFile: filepath.Join(dirs.JSONOutput, vtt.FilePrefix+stem+".json"),
	}
}

// Progress is a status update from a running pipeline.
type Progress struct {
	PDF     string
	Step    types.StepName
	Message string
}

// StepResult is the outcome of one step.
type StepResult struct {
	Step     types.StepName
	Duration time.Duration
	Summary  string
	Err      error
}

// Report describes one pipeline run.
type Report struct {
	PDF    string
	Layout Layout
	RunID  int64
	Steps  []StepResult
}

// Err returns the error of the failed step, if any.
func (r Report) Err() error {
	for _, s := range r.Steps {
		if s.Err != nil {
			return s.Err
		}
	}
	return nil
}

// Pipeline holds the stage components built from one configuration. A
// Pipeline runs one PDF at a time.
type Pipeline struct {
	cfg       types.Config
	fs        afero.Fs
	log       logging.Logger
	ledger    *ledger.Ledger
	force     bool
	onProg    func(Progress)
	segOpts   []segment.Option
	segmenter *segment.Segmenter
	cleaner   *cleanup.Driver
	post      *postprocess.Processor
	exporter  *vtt.Exporter

	// current is the PDF being run, for progress reports.
	current string
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithFs sets the filesystem for every stage.
func WithFs(fs afero.Fs) Option { return func(p *Pipeline) { p.fs = fs } }

// WithLogger sets the logger for every stage.
func WithLogger(l logging.Logger) Option { return func(p *Pipeline) { p.log = l } }

// WithLedger records runs and lets cleaning skip unchanged sections.
func WithLedger(l *ledger.Ledger) Option { return func(p *Pipeline) { p.ledger = l } }

// WithForce re-cleans sections the ledger reports as done.
func WithForce(force bool) Option { return func(p *Pipeline) { p.force = force } }

// WithProgress receives step and chunk updates.
func WithProgress(fn func(Progress)) Option { return func(p *Pipeline) { p.onProg = fn } }

// WithSegmentOptions passes extra options to the segmenter.
func WithSegmentOptions(opts ...segment.Option) Option {
	return func(p *Pipeline) { p.segOpts = append(p.segOpts, opts...) }
}

// New builds a Pipeline for cfg that sends prompts to gen. The
// configuration is validated before anything else happens.
func New(cfg types.Config, gen model.Generator, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &Pipeline{cfg: cfg, fs: afero.NewOsFs(), log: logging.Discard()}
	for _, opt := range opts {
		opt(p)
	}

	composer := prompt.Default()
	if cfg.Prompt != "" {
		c, err := prompt.Load(cfg.Prompt)
		if err != nil {
			return nil, err
		}
		composer = c
	}
	chunker, err := chunk.New(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		return nil, err
	}
	p.post, err = postprocess.New(cfg.PostProcess, postprocess.WithFs(p.fs), postprocess.WithLogger(p.log))
	if err != nil {
		return nil, err
	}

	segOpts := append([]segment.Option{
		segment.WithFs(p.fs),
		segment.WithLogger(p.log),
		segment.WithOrderDir(cfg.Directories.YAMLOutput),
	}, p.segOpts...)
	p.segmenter = segment.New(cfg.Segmentation, segOpts...)

	cleanOpts := []cleanup.Option{
		cleanup.WithFs(p.fs),
		cleanup.WithLogger(p.log),
		cleanup.WithModelName(cfg.Model.Name),
		cleanup.WithMaxRetries(cfg.Model.MaxRetries),
		cleanup.WithForce(p.force),
		cleanup.WithProgress(func(pr cleanup.Progress) {
			p.emit(types.StepLLMCleaning, fmt.Sprintf("%s: chunk %d/%d", filepath.Base(pr.Input), pr.Chunk, pr.Total))
		}),
	}
	if p.ledger != nil {
		cleanOpts = append(cleanOpts, cleanup.WithLedger(p.ledger))
	}
	p.cleaner = cleanup.NewDriver(gen, composer, chunker, cleanOpts...)
	p.exporter = vtt.NewExporter(vtt.WithFs(p.fs), vtt.WithLogger(p.log))
	return p, nil
}

// Steps returns the configured step order.
func (p *Pipeline) Steps() []types.StepName { return p.cfg.Steps }

// Run executes the configured steps for pdfPath, writing status lines to w.
func (p *Pipeline) Run(ctx context.Context, pdfPath string, w io.Writer) (Report, error) {
	rep := Report{PDF: pdfPath, Layout: LayoutFor(p.cfg.Directories, pdfPath)}
	p.current = pdfPath
	defer func() { p.current = "" }()

	if p.ledger != nil {
		names := make([]string, len(p.cfg.Steps))
		for i, s := range p.cfg.Steps {
			names[i] = string(s)
		}
		id, err := p.ledger.StartRun(ctx, pdfPath, names)
		if err != nil {
			p.log.Warn("could not record run", "pdf", pdfPath, "err", err)
		}
		rep.RunID = id
	}

	var runErr error
	for _, step := range p.cfg.Steps {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		fmt.Fprintf(w, "==> %s\n", step)
		p.emit(step, "started")
		start := time.Now()
		summary, err := p.runStep(ctx, step, rep.Layout, w)
		res := StepResult{Step: step, Duration: time.Since(start), Summary: summary, Err: err}
		rep.Steps = append(rep.Steps, res)
		if err != nil {
			runErr = fmt.Errorf("%s: %w", step, err)
			p.log.Error("step failed", "pdf", pdfPath, "step", step, "err", err)
			p.emit(step, "failed: "+err.Error())
			break
		}
		p.log.Info("step finished", "pdf", pdfPath, "step", step, "took", res.Duration.Round(time.Millisecond))
		p.emit(step, summary)
	}

	if p.ledger != nil && rep.RunID != 0 {
		if err := p.ledger.FinishRun(context.WithoutCancel(ctx), rep.RunID, runErr); err != nil {
			p.log.Warn("could not record run result", "pdf", pdfPath, "err", err)
		}
	}
	return rep, runErr
}

func (p *Pipeline) runStep(ctx context.Context, step types.StepName, l Layout, w io.Writer) (string, error) {
	switch step {
	case types.StepSegmentation:
		res, err := p.segmenter.Segment(ctx, p.current, p.cfg.Directories.TextOutput)
		if err != nil {
			return "", err
		}
		mode := "pages"
		if res.FromTOC {
			mode = "table of contents"
		}
		msg := fmt.Sprintf("%d sections by %s", len(res.Files), mode)
		fmt.Fprintf(w, "segmented %s: %s -> %s\n", p.current, msg, res.OutputDir)
		return msg, nil

	case types.StepLLMCleaning:
		sum, err := p.cleaner.CleanAll(ctx, l.TextDir, l.MarkdownDir, w)
		if err != nil {
			return "", err
		}
		if sum.HasFailures() {
			return "", fmt.Errorf("%d of %d sections failed cleaning", sum.Failed, sum.Total())
		}
		return fmt.Sprintf("%d cleaned, %d unchanged", sum.Cleaned, sum.Skipped), nil

	case types.StepCleanup, types.StepFormatting:
		steps := postprocess.Steps{Tidy: step == types.StepCleanup, Headings: step == types.StepFormatting}
		sum, err := p.post.ProcessDir(ctx, l.MarkdownDir, steps, w)
		if err != nil {
			return "", err
		}
		if sum.HasFailures() {
			return "", fmt.Errorf("%d of %d files failed", sum.Failed, sum.Total())
		}
		return fmt.Sprintf("%d updated, %d uncertain markers", sum.Changed, sum.Markers), nil

	case types.StepVTT:
		j, err := p.exporter.ExportDir(l.MarkdownDir, l.OrderFile, l.JournalFile)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(w, "exported %d pages -> %s\n", len(j.Pages), l.JournalFile)
		return fmt.Sprintf("%d journal pages", len(j.Pages)), nil
	}
	return "", types.ConfigErrorf("unknown step %q", step)
}

func (p *Pipeline) emit(step types.StepName, msg string) {
	if p.onProg != nil {
		p.onProg(Progress{PDF: p.current, Step: step, Message: msg})
	}
}

// IsFatal reports whether err means later PDFs would fail the same way.
func IsFatal(err error) bool {
	return errors.Is(err, types.ErrConfiguration) ||
		errors.Is(err, types.ErrEndpointUnavailable) ||
		errors.Is(err, context.Canceled)
}
