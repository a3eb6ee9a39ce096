// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/pdiddy/pdf-cleanup-agent/internal/fsutil"
	"github.com/pdiddy/pdf-cleanup-agent/internal/segment"
	"github.com/pdiddy/pdf-cleanup-agent/pkg/types"
)

var segmentCmd = &cobra.Command{
	Use:   "segment [pdfs...]",
	Short: "Split PDFs into one text file per section",
	Long: `Segment extracts the text of each PDF and writes one file per section
to <output-dir>/<pdf-name>/. Sections follow the PDF outline when it has one
and fixed page windows otherwise. The outline order is saved as
<pdf-name>-data-order.yml in the YAML directory for the vtt command.

With no arguments every PDF in the configured source directory is segmented.`,
	RunE: runSegment,
}

func runSegment(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	outDir, _ := cmd.Flags().GetString("output-dir")
	if outDir == "" {
		outDir = cfg.Directories.TextOutput
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

	s := segment.New(cfg.Segmentation, segmentOptions(cfg)...)
	ctx, stop := signalContext()
	defer stop()

	summary, err := s.SegmentBatch(ctx, pdfs, outDir, os.Stdout)
	if err != nil {
		return err
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d of %d PDF(s) failed segmentation", summary.Failed, summary.Total())
	}
	return nil
}

// segmentOptions wires the logger, order file directory and the optional
// pdftotext fallback.
func segmentOptions(cfg types.Config) []segment.Option {
	opts := []segment.Option{
		segment.WithLogger(log),
		segment.WithOrderDir(cfg.Directories.YAMLOutput),
	}
	if cfg.Segmentation.Pdftotext {
		pt := segment.NewPdftotext(nil)
		if pt.Available() {
			opts = append(opts, segment.WithFallback(pt))
		} else {
			log.Warn("pdftotext fallback requested but pdftotext is not installed")
		}
	}
	return opts
}

func init() {
	segmentCmd.Flags().String("output-dir", "", "directory for section files (default: directories.txt_output)")
	segmentCmd.Flags().Int("pages-per-section", 0, "pages per section when the PDF has no outline (0 disables)")
	segmentCmd.Flags().Int("toc-depth", 0, "deepest outline level that starts a section")
	segmentCmd.Flags().Bool("pdftotext", false, "use pdftotext for pages the built-in reader cannot extract")

	rootCmd.AddCommand(segmentCmd)
}
