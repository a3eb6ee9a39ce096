// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pdf-cleanup-agent/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the pipeline for every PDF dropped into a directory",
	Long: `Watch monitors the PDF source directory and queues each new PDF for the
configured pipeline once the file has stopped changing. PDFs run one at a
time in arrival order. Interrupt to stop; the running PDF is cancelled and
its incomplete outputs are kept as .partial files.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		dir = cfg.Directories.PDFSource
	}
	existing, _ := cmd.Flags().GetBool("existing")
	settle, _ := cmd.Flags().GetDuration("settle")
	force, _ := cmd.Flags().GetBool("force")

	ctx, stop := signalContext()
	defer stop()

	b, err := newBatch(ctx, cfg, force)
	if err != nil {
		return err
	}
	defer b.close()

	w := watch.New(dir, b.submit,
		watch.WithSettle(settle),
		watch.WithExisting(existing),
		watch.WithLogger(log),
	)
	fmt.Printf("watching %s for PDFs (Ctrl-C to stop)\n", dir)
	if err := w.Run(ctx); err != nil {
		return err
	}

	return b.result()
}

func init() {
	watchCmd.Flags().String("dir", "", "directory to watch (default: directories.pdf_source)")
	watchCmd.Flags().Bool("existing", false, "also queue PDFs already in the directory")
	watchCmd.Flags().Duration("settle", watch.DefaultSettle, "how long a file must be unchanged before it is queued")
	watchCmd.Flags().Bool("force", false, "clean sections even when the ledger says they are unchanged")
	watchCmd.Flags().StringSlice("steps", nil, "steps to run, in order (default: configured steps)")

	rootCmd.AddCommand(watchCmd)
}
