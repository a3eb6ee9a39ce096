// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cleanup

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/pdiddy/pdf-cleanup-agent/internal/fsutil"
)

// inputExtensions are the file types picked up by CleanAll.
var inputExtensions = []string{".txt", ".md"}

// BatchSummary holds counts from a batch cleaning run.
type BatchSummary struct {
	Cleaned int
	Skipped int
	Failed  int
}

// Total returns the number of documents processed.
func (s BatchSummary) Total() int {
	return s.Cleaned + s.Skipped + s.Failed
}

// HasFailures reports whether any document failed.
func (s BatchSummary) HasFailures() bool {
	return s.Failed > 0
}

// CleanAll cleans every .txt and .md file under inputDir, mirroring the
// relative layout into outputDir with a .md extension. A status line per
// document and a final summary are written to w.
//
// A failed document is counted and the batch moves on, except when the
// failure means no later document can succeed (cancellation or an
// unreachable endpoint); then CleanAll stops and returns the error.
func (d *Driver) CleanAll(ctx context.Context, inputDir, outputDir string, w io.Writer) (BatchSummary, error) {
	inputs, err := d.listInputs(inputDir)
	if err != nil {
		return BatchSummary{}, err
	}

	var summary BatchSummary
	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		rel, err := filepath.Rel(inputDir, in)
		if err != nil {
			rel = filepath.Base(in)
		}
		out := filepath.Join(outputDir, strings.TrimSuffix(rel, filepath.Ext(rel))+".md")

		fmt.Fprintf(w, "cleaning %s\n", rel)
		res, err := d.CleanFile(ctx, in, out)
		switch {
		case err != nil:
			fmt.Fprintf(w, "failed  %s: %v\n", rel, err)
			if res.Partial != "" {
				fmt.Fprintf(w, "        incomplete output kept at %s (%d/%d chunks)\n", res.Partial, res.Completed, res.Chunks)
			}
			summary.Failed++
			if stopsBatch(err) {
				printSummary(w, summary)
				return summary, fmt.Errorf("cleaning %s: %w", rel, err)
			}
		case res.Skipped:
			fmt.Fprintf(w, "skipped %s (unchanged)\n", rel)
			summary.Skipped++
		default:
			fmt.Fprintf(w, "cleaned %s (%d chunks) -> %s\n", rel, res.Chunks, out)
			summary.Cleaned++
		}
	}

	printSummary(w, summary)
	return summary, nil
}

func printSummary(w io.Writer, s BatchSummary) {
	fmt.Fprintf(w, "\ncleaned: %d, skipped: %d, failed: %d\n", s.Cleaned, s.Skipped, s.Failed)
}

// listInputs returns the candidate files under dir in lexical order.
func (d *Driver) listInputs(dir string) ([]string, error) {
	files, err := fsutil.ListFiles(d.fs, dir, inputExtensions...)
	if err != nil {
		return nil, fmt.Errorf("listing inputs: %w", err)
	}
	return files, nil
}
