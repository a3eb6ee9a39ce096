// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/pdiddy/pdf-cleanup-agent/internal/fsutil"
	"github.com/pdiddy/pdf-cleanup-agent/internal/ledger"
	"github.com/pdiddy/pdf-cleanup-agent/internal/pipeline"
	"github.com/pdiddy/pdf-cleanup-agent/internal/runner"
	"github.com/pdiddy/pdf-cleanup-agent/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run [pdfs...]",
	Short: "Run the configured pipeline steps for whole PDFs",
	Long: `Run takes each PDF through the configured steps in order: segmentation,
model cleaning, post-processing cleanup and formatting, and VTT export.
PDFs are processed one at a time; a failed step stops that PDF and the
next one starts. An unreachable model endpoint stops the whole run.

With no arguments every PDF in the configured source directory is run.`,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	pdfs := args
	if len(pdfs) == 0 {
		pdfs, err = fsutil.ListFiles(afero.NewOsFs(), cfg.Directories.PDFSource, ".pdf")
		if err != nil {
			return err
		}
		if len(pdfs) == 0 {
			fmt.Fprintf(os.Stderr, "no PDFs in %s\n", cfg.Directories.PDFSource)
			return nil
		}
	}
	force, _ := cmd.Flags().GetBool("force")

	ctx, stop := signalContext()
	defer stop()

	b, err := newBatch(ctx, cfg, force)
	if err != nil {
		return err
	}
	defer b.close()
	b.stopOnFatal = true

	for _, pdf := range pdfs {
		if err := b.submit(pdf); err != nil {
			return err
		}
	}
	b.queue.Wait()
	return b.result()
}

// batch runs PDFs through one pipeline on a runner queue and logs the
// queue's events.
type batch struct {
	pipe   *pipeline.Pipeline
	queue  *runner.Queue
	ledger *ledger.Ledger
	done   chan struct{}

	// report forwards pipeline progress to the running task. The queue
	// runs one task at a time.
	report runner.Report

	// stopOnFatal makes later PDFs fail without running once one has
	// failed in a way they would too.
	stopOnFatal bool

	mu        sync.Mutex
	failed    int
	finished  int
	cancelled int
	fatal     error
}

func newBatch(ctx context.Context, cfg types.Config, force bool) (*batch, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	if slices.Contains(cfg.Steps, types.StepLLMCleaning) {
		if err := client.Ping(ctx); err != nil {
			return nil, fmt.Errorf("checking model endpoint (see 'pdf-cleanup-agent models'): %w", err)
		}
	}
	l, err := openLedger(cfg)
	if err != nil {
		return nil, err
	}

	b := &batch{ledger: l, done: make(chan struct{})}
	opts := []pipeline.Option{
		pipeline.WithLogger(log),
		pipeline.WithForce(force),
		pipeline.WithSegmentOptions(segmentOptions(cfg)...),
		pipeline.WithProgress(func(p pipeline.Progress) {
			if b.report != nil {
				b.report(fmt.Sprintf("%s: %s", p.Step, p.Message))
			}
		}),
	}
	if l != nil {
		opts = append(opts, pipeline.WithLedger(l))
	}
	b.pipe, err = pipeline.New(cfg, client, opts...)
	if err != nil {
		if l != nil {
			l.Close()
		}
		return nil, err
	}

	b.queue = runner.New(ctx)
	go b.consume()
	return b, nil
}

// submit queues pdf. Once a fatal error has been seen, later PDFs fail
// without running.
func (b *batch) submit(pdf string) error {
	_, err := b.queue.Submit(runner.Task{
		Name: filepath.Base(pdf),
		Run: func(ctx context.Context, report runner.Report) error {
			if err := b.fatalErr(); err != nil {
				return fmt.Errorf("not started: %w", err)
			}
			b.report = report
			defer func() { b.report = nil }()

			_, err := b.pipe.Run(ctx, pdf, os.Stdout)
			if err != nil && b.stopOnFatal && pipeline.IsFatal(err) {
				b.mu.Lock()
				b.fatal = err
				b.mu.Unlock()
			}
			return err
		},
	})
	return err
}

func (b *batch) fatalErr() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fatal
}

func (b *batch) consume() {
	defer close(b.done)
	for ev := range b.queue.Events() {
		switch ev.Kind {
		case runner.EventQueued:
			log.Info("queued", "id", ev.TaskID, "pdf", ev.Name)
		case runner.EventStarted:
			log.Info("started", "id", ev.TaskID, "pdf", ev.Name)
		case runner.EventProgress:
			log.Debug("progress", "id", ev.TaskID, "pdf", ev.Name, "msg", ev.Message)
		case runner.EventFinished:
			log.Info("finished", "id", ev.TaskID, "pdf", ev.Name)
			b.mu.Lock()
			b.finished++
			b.mu.Unlock()
		case runner.EventFailed:
			b.mu.Lock()
			if errors.Is(ev.Err, context.Canceled) {
				log.Warn("cancelled", "id", ev.TaskID, "pdf", ev.Name)
				b.cancelled++
			} else {
				log.Error("failed", "id", ev.TaskID, "pdf", ev.Name, "err", ev.Err)
				b.failed++
			}
			b.mu.Unlock()
		}
	}
}

// close stops the queue, waits for the event log to drain and closes the
// ledger.
func (b *batch) close() {
	b.queue.Stop()
	<-b.done
	if b.ledger != nil {
		b.ledger.Close()
	}
}

// result summarizes the batch once the queue has shut down.
func (b *batch) result() error {
	b.queue.Stop()
	<-b.done
	b.mu.Lock()
	defer b.mu.Unlock()
	fmt.Printf("\nfinished: %d, failed: %d, cancelled: %d\n", b.finished, b.failed, b.cancelled)
	if b.fatal != nil {
		return b.fatal
	}
	if b.failed > 0 {
		return fmt.Errorf("%d PDF(s) failed", b.failed)
	}
	return nil
}

func init() {
	runCmd.Flags().StringSlice("steps", nil, "steps to run, in order (default: configured steps)")
	runCmd.Flags().Bool("force", false, "clean sections even when the ledger says they are unchanged")
	runCmd.Flags().String("model", "", "model name sent with each request")
	runCmd.Flags().String("endpoint", "", "URL of the generate endpoint")
	runCmd.Flags().Bool("stream", false, "read streamed responses")
	runCmd.Flags().Int("max-retries", 0, "retries per failed chunk")
	runCmd.Flags().Duration("timeout", 0, "timeout for one model request")
	runCmd.Flags().Bool("pdftotext", false, "use pdftotext for pages the built-in reader cannot extract")

	rootCmd.AddCommand(runCmd)
}
