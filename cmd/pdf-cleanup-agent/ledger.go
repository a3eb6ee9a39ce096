// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pdf-cleanup-agent/internal/ledger"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect the processing ledger (runs, export)",
	Long: `Ledger reads the SQLite file that records which section files have been
cleaned with which prompt, model and chunking, and the history of pipeline
runs.`,
}

// --- runs subcommand ---

var ledgerRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent pipeline runs",
	Args:  cobra.NoArgs,
	RunE:  runLedgerRuns,
}

func runLedgerRuns(cmd *cobra.Command, args []string) error {
	l, err := ledgerFromConfig(cmd)
	if err != nil {
		return err
	}
	defer l.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	ctx, stop := signalContext()
	defer stop()
	runs, err := l.Runs(ctx, limit)
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}
	fmt.Printf("%-5s  %-19s  %-10s  %-30s  %s\n", "ID", "Started", "Status", "Source", "Error")
	fmt.Println(strings.Repeat("-", 90))
	for _, r := range runs {
		status := string(r.Status)
		if status == "" {
			status = "running"
		}
		source := r.Source
		if len(source) > 30 {
			source = "..." + source[len(source)-27:]
		}
		fmt.Printf("%-5d  %-19s  %-10s  %-30s  %s\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), status, source, r.Error)
	}
	return nil
}

// --- export subcommand ---

var ledgerExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the ledger to YAML or JSON on stdout",
	Args:  cobra.NoArgs,
	RunE:  runLedgerExport,
}

func runLedgerExport(cmd *cobra.Command, args []string) error {
	l, err := ledgerFromConfig(cmd)
	if err != nil {
		return err
	}
	defer l.Close()

	format, _ := cmd.Flags().GetString("format")
	ctx, stop := signalContext()
	defer stop()
	switch format {
	case "yaml":
		return l.ExportYAML(ctx, os.Stdout)
	case "json":
		return l.ExportJSON(ctx, os.Stdout)
	default:
		return fmt.Errorf("unknown export format %q: use yaml or json", format)
	}
}

// ledgerFromConfig opens the configured ledger, failing when it is disabled.
func ledgerFromConfig(cmd *cobra.Command) (*ledger.Ledger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	l, err := openLedger(cfg)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, fmt.Errorf("the ledger is disabled in the configuration")
	}
	return l, nil
}

func init() {
	ledgerRunsCmd.Flags().Int("limit", 20, "maximum number of runs to list (0 for all)")
	ledgerRunsCmd.Flags().Bool("json", false, "output as JSON")

	ledgerExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	ledgerCmd.AddCommand(ledgerRunsCmd, ledgerExportCmd)
	rootCmd.AddCommand(ledgerCmd)
}
