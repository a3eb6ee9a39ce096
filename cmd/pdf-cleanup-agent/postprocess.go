// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pdf-cleanup-agent/internal/postprocess"
)

var postprocessCmd = &cobra.Command{
	Use:   "postprocess [md-dir]",
	Short: "Tidy model output and promote headings in Markdown files",
	Long: `Postprocess rewrites every .md file under the directory in place. The
tidy pass strips conversational filler the model adds, collapses blank
lines and runs of spaces. The headings pass promotes configured phrases and
ALL-CAPS lines to second-level headings and link lines to third-level
headings. Occurrences of the uncertain marker are counted and reported.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPostprocess,
}

func runPostprocess(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	dir := cfg.Directories.MarkdownOutput
	if len(args) == 1 {
		dir = args[0]
	}
	noTidy, _ := cmd.Flags().GetBool("no-tidy")
	noHeadings, _ := cmd.Flags().GetBool("no-headings")
	steps := postprocess.Steps{Tidy: !noTidy, Headings: !noHeadings}

	p, err := postprocess.New(cfg.PostProcess, postprocess.WithLogger(log))
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()

	summary, err := p.ProcessDir(ctx, dir, steps, os.Stdout)
	if err != nil {
		return err
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d of %d file(s) failed post-processing", summary.Failed, summary.Total())
	}
	return nil
}

func init() {
	postprocessCmd.Flags().Bool("no-tidy", false, "skip the tidy pass")
	postprocessCmd.Flags().Bool("no-headings", false, "skip the headings pass")

	rootCmd.AddCommand(postprocessCmd)
}
