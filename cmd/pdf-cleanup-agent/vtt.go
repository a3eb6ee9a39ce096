// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pdf-cleanup-agent/internal/vtt"
)

var vttCmd = &cobra.Command{
	Use:   "vtt [md-dir]",
	Short: "Export cleaned Markdown as a Foundry VTT journal",
	Long: `Vtt renders each Markdown file of a book directory to HTML and writes a
Foundry VTT JournalEntry JSON file with one text page per file. Pages follow
the outline order saved by segment when it exists, otherwise file name order.

With no arguments every subdirectory of the Markdown directory is exported.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVTT,
}

func runVTT(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	e := vtt.NewExporter(vtt.WithLogger(log))

	if len(args) == 0 {
		ctx, stop := signalContext()
		defer stop()
		summary, err := e.ExportAll(ctx, cfg.Directories.MarkdownOutput, cfg.Directories.YAMLOutput, cfg.Directories.JSONOutput, os.Stdout)
		if err != nil {
			return err
		}
		if summary.HasFailures() {
			return fmt.Errorf("%d of %d book(s) failed export", summary.Failed, summary.Total())
		}
		return nil
	}

	dir := args[0]
	out, _ := cmd.Flags().GetString("output")
	if out == "" {
		out = vtt.OutputPath(cfg.Directories.JSONOutput, dir)
	}
	order, _ := cmd.Flags().GetString("order")
	if order == "" {
		order = vtt.OrderPath(cfg.Directories.YAMLOutput, dir)
	}
	j, err := e.ExportDir(dir, order, out)
	if err != nil {
		return err
	}
	fmt.Printf("exported %s (%d pages) -> %s\n", dir, len(j.Pages), out)
	return nil
}

func init() {
	vttCmd.Flags().String("output", "", "journal JSON file (default: <json_output>/fvtt-JournalEntry-<name>.json)")
	vttCmd.Flags().String("order", "", "outline order file (default: <yml_output>/<name>-data-order.yml)")

	rootCmd.AddCommand(vttCmd)
}
