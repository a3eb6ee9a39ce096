// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pdf-cleanup-agent/internal/chunk"
	"github.com/pdiddy/pdf-cleanup-agent/internal/cleanup"
	"github.com/pdiddy/pdf-cleanup-agent/internal/prompt"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [input-dir]",
	Short: "Clean section text files with the language model",
	Long: `Clean splits every .txt and .md file under the input directory into
overlapping chunks, sends each chunk to the model with the instruction
template and writes the responses, in order, to a Markdown file of the
same relative name under the output directory.

Files whose content, prompt, model and chunking are unchanged since the
last successful run are skipped unless --force is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClean,
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	inDir := cfg.Directories.TextOutput
	if len(args) == 1 {
		inDir = args[0]
	}
	outDir, _ := cmd.Flags().GetString("output-dir")
	if outDir == "" {
		outDir = filepath.Join(cfg.Directories.MarkdownOutput, filepath.Base(inDir))
		if len(args) == 0 {
			outDir = cfg.Directories.MarkdownOutput
		}
	}
	force, _ := cmd.Flags().GetBool("force")

	composer := prompt.Default()
	if cfg.Prompt != "" {
		if composer, err = prompt.Load(cfg.Prompt); err != nil {
			return err
		}
	}
	chunker, err := chunk.New(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		return err
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	opts := []cleanup.Option{
		cleanup.WithLogger(log),
		cleanup.WithModelName(cfg.Model.Name),
		cleanup.WithMaxRetries(cfg.Model.MaxRetries),
		cleanup.WithForce(force),
		cleanup.WithProgress(func(p cleanup.Progress) {
			log.Debug("chunk done", "input", filepath.Base(p.Input), "chunk", p.Chunk, "total", p.Total)
		}),
	}
	l, err := openLedger(cfg)
	if err != nil {
		return err
	}
	if l != nil {
		defer l.Close()
		opts = append(opts, cleanup.WithLedger(l))
	}

	log.Info("cleaning", "input", inDir, "output", outDir, "model", cfg.Model.String())
	ctx, stop := signalContext()
	defer stop()

	d := cleanup.NewDriver(client, composer, chunker, opts...)
	summary, err := d.CleanAll(ctx, inDir, outDir, os.Stdout)
	if err != nil {
		return err
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d of %d file(s) failed cleaning", summary.Failed, summary.Total())
	}
	return nil
}

func init() {
	cleanCmd.Flags().String("output-dir", "", "directory for cleaned Markdown (default: directories.markdown_output)")
	cleanCmd.Flags().String("model", "", "model name sent with each request")
	cleanCmd.Flags().String("endpoint", "", "URL of the generate endpoint")
	cleanCmd.Flags().Int("chunk-size", 0, "maximum chunk length in characters")
	cleanCmd.Flags().Int("chunk-overlap", 0, "characters repeated at the start of the next chunk")
	cleanCmd.Flags().Bool("stream", false, "read streamed responses")
	cleanCmd.Flags().Bool("force", false, "clean files even when the ledger says they are unchanged")
	cleanCmd.Flags().Int("max-retries", 0, "retries per failed chunk")
	cleanCmd.Flags().Duration("timeout", 0, "timeout for one model request")
	cleanCmd.Flags().String("prompt", "", "instruction template file (default: built-in)")

	rootCmd.AddCommand(cleanCmd)
}
