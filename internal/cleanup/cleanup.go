// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cleanup drives documents through the model one chunk at a time:
// chunk, compose the prompt, generate, and append the response to the output.
// Documents and chunks are processed strictly in order.
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/pdiddy/pdf-cleanup-agent/internal/chunk"
	"github.com/pdiddy/pdf-cleanup-agent/internal/fsutil"
	"github.com/pdiddy/pdf-cleanup-agent/internal/httputil"
	"github.com/pdiddy/pdf-cleanup-agent/internal/ledger"
	"github.com/pdiddy/pdf-cleanup-agent/internal/logging"
	"github.com/pdiddy/pdf-cleanup-agent/internal/model"
	"github.com/pdiddy/pdf-cleanup-agent/internal/prompt"
	"github.com/pdiddy/pdf-cleanup-agent/pkg/types"
)

// chunkSeparator is written between consecutive chunk responses.
const chunkSeparator = "\n\n"

// Progress reports that one chunk of a document has been generated.
type Progress struct {
	Input string
	Chunk int // 1-based
	Total int
}

// Result describes the outcome of cleaning one document.
type Result struct {
	Input     string
	Output    string
	Chunks    int
	Completed int
	Skipped   bool

	// Partial is the path of the incomplete output kept after a failure,
	// or empty when nothing was kept.
	Partial string
}

// Driver runs the chunk → prompt → generate → write loop.
type Driver struct {
	gen        model.Generator
	composer   *prompt.Composer
	chunker    *chunk.Chunker
	fs         afero.Fs
	log        logging.Logger
	ledger     *ledger.Ledger
	modelName  string
	maxRetries int
	force      bool
	progress   func(Progress)
}

// Option customizes a Driver.
type Option func(*Driver)

// WithFs sets the filesystem used for inputs and outputs (default: the OS).
func WithFs(fs afero.Fs) Option { return func(d *Driver) { d.fs = fs } }

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option { return func(d *Driver) { d.log = l } }

// WithLedger enables skipping of documents already cleaned with identical
// content and settings.
func WithLedger(l *ledger.Ledger) Option { return func(d *Driver) { d.ledger = l } }

// WithModelName records the model identifier in the ledger digest.
func WithModelName(name string) Option { return func(d *Driver) { d.modelName = name } }

// WithMaxRetries retries a failed chunk up to n more times when the failure
// is transient. Zero disables retries.
func WithMaxRetries(n int) Option { return func(d *Driver) { d.maxRetries = n } }

// WithForce ignores the ledger and cleans every document.
func WithForce(force bool) Option { return func(d *Driver) { d.force = force } }

// WithProgress registers a callback invoked after each chunk.
func WithProgress(fn func(Progress)) Option { return func(d *Driver) { d.progress = fn } }

// NewDriver returns a Driver. gen, composer and chunker are required.
func NewDriver(gen model.Generator, composer *prompt.Composer, chunker *chunk.Chunker, opts ...Option) *Driver {
	d := &Driver{
		gen:      gen,
		composer: composer,
		chunker:  chunker,
		fs:       afero.NewOsFs(),
		log:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// CleanDocument cleans doc and writes the result to outPath. Output is
// accumulated under outPath+".partial" and renamed into place only when every
// chunk succeeded. On failure the remaining chunks are not sent; the partial
// file is kept if at least one chunk completed and removed otherwise. A kept
// partial replaces any earlier output at outPath.
func (d *Driver) CleanDocument(ctx context.Context, doc types.Document, outPath string) (Result, error) {
	chunks := d.chunker.Split(doc)
	res := Result{Input: doc.Path, Output: outPath, Chunks: len(chunks)}

	pw, err := fsutil.CreatePartial(d.fs, outPath)
	if err != nil {
		return res, err
	}

	for i, ch := range chunks {
		if err := ctx.Err(); err != nil {
			return d.abort(pw, res, fmt.Errorf("cancelled before chunk %d/%d: %w", i+1, len(chunks), err))
		}

		p, err := d.composer.Compose(prompt.Data{
			Chunk:  ch.Text,
			Source: doc.Path,
			Index:  i + 1,
			Total:  len(chunks),
		})
		if err != nil {
			return d.abort(pw, res, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err))
		}

		d.log.Debug("sending chunk", "file", doc.Path, "chunk", i+1, "of", len(chunks), "chars", ch.Len())
		text, err := d.generate(ctx, p, doc.Path, i+1)
		if err != nil {
			return d.abort(pw, res, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err))
		}

		if i > 0 {
			if _, err := pw.WriteString(chunkSeparator); err != nil {
				return d.abort(pw, res, fmt.Errorf("writing %s: %w", pw.PartialPath(), err))
			}
		}
		if _, err := pw.WriteString(strings.TrimSpace(text)); err != nil {
			return d.abort(pw, res, fmt.Errorf("writing %s: %w", pw.PartialPath(), err))
		}
		res.Completed++
		if d.progress != nil {
			d.progress(Progress{Input: doc.Path, Chunk: i + 1, Total: len(chunks)})
		}
	}

	if len(chunks) > 0 {
		if _, err := pw.WriteString("\n"); err != nil {
			return d.abort(pw, res, fmt.Errorf("writing %s: %w", pw.PartialPath(), err))
		}
	}
	if err := pw.Commit(); err != nil {
		return d.abort(pw, res, err)
	}
	return res, nil
}

func (d *Driver) generate(ctx context.Context, p, path string, index int) (string, error) {
	var text string
	err := httputil.Retry(ctx, d.maxRetries, func(ctx context.Context) error {
		out, err := d.gen.Generate(ctx, p)
		if err != nil {
			return err
		}
		text = out
		return nil
	}, func(attempt int, err error) {
		d.log.Warn("retrying chunk", "file", path, "chunk", index, "attempt", attempt, "err", err)
	})
	return text, err
}

func (d *Driver) abort(pw *fsutil.PartialWriter, res Result, cause error) (Result, error) {
	keep := res.Completed > 0
	if err := pw.Abort(keep); err != nil {
		d.log.Warn("cleaning up partial output", "path", pw.PartialPath(), "err", err)
	}
	if keep {
		res.Partial = pw.PartialPath()
		// Drop complete output left by an earlier run.
		if err := d.fs.Remove(res.Output); err != nil && !os.IsNotExist(err) {
			d.log.Warn("removing stale output", "path", res.Output, "err", err)
		}
	}
	return res, cause
}

// CleanFile reads inPath and cleans it into outPath. With a ledger
// configured, a document whose content and settings match a completed
// record, and whose output still exists, is skipped.
func (d *Driver) CleanFile(ctx context.Context, inPath, outPath string) (Result, error) {
	data, err := afero.ReadFile(d.fs, inPath)
	if err != nil {
		return Result{Input: inPath, Output: outPath}, fmt.Errorf("reading %s: %w", inPath, err)
	}
	doc := types.Document{Path: inPath, Text: string(data)}
	digest := d.digest(doc)

	if d.ledger != nil && !d.force && fsutil.Exists(d.fs, outPath) {
		done, err := d.ledger.Done(ctx, string(types.StepLLMCleaning), inPath, digest)
		if err != nil {
			d.log.Warn("ledger lookup failed", "file", inPath, "err", err)
		} else if done {
			return Result{Input: inPath, Output: outPath, Skipped: true}, nil
		}
	}

	res, err := d.CleanDocument(ctx, doc, outPath)
	d.record(ctx, res, digest, err)
	return res, err
}

func (d *Driver) digest(doc types.Document) string {
	return ledger.Digest(
		doc.Text,
		d.composer.Text(),
		d.modelName,
		strconv.Itoa(d.chunker.Size()),
		strconv.Itoa(d.chunker.Overlap()),
	)
}

func (d *Driver) record(ctx context.Context, res Result, digest string, cleanErr error) {
	if d.ledger == nil {
		return
	}
	r := ledger.Record{
		Stage:  string(types.StepLLMCleaning),
		Input:  res.Input,
		Digest: digest,
		Output: res.Output,
		Status: ledger.StatusCompleted,
		Chunks: res.Completed,
	}
	switch {
	case cleanErr != nil && res.Partial != "":
		r.Status, r.Output, r.Error = ledger.StatusPartial, res.Partial, cleanErr.Error()
	case cleanErr != nil:
		r.Status, r.Error = ledger.StatusFailed, cleanErr.Error()
	}
	// A cancelled context must not stop the outcome from being recorded.
	if err := d.ledger.Put(context.WithoutCancel(ctx), r); err != nil {
		d.log.Warn("ledger write failed", "file", res.Input, "err", err)
	}
}

// stopsBatch reports whether err makes the remaining documents pointless:
// cancellation, or an endpoint that cannot be reached.
func stopsBatch(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, types.ErrEndpointUnavailable)
}
