// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pdf-cleanup-agent/internal/models"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Check the local model server and list installed models",
	Long: `Models reports whether the ollama CLI is installed, whether the
configured endpoint answers, which models are installed and whether the
configured model is among them.`,
	Args: cobra.NoArgs,
	RunE: runModels,
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()
	st := models.Check(ctx, models.NewLister(nil), client, cfg.Model.Name)

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}
	printModelStatus(st, cfg.Model.Endpoint)
	if !st.Reachable {
		return fmt.Errorf("model endpoint %s is not reachable", cfg.Model.Endpoint)
	}
	return nil
}

func printModelStatus(st models.Status, endpoint string) {
	mark := func(ok bool) string {
		if ok {
			return "yes"
		}
		return "no"
	}
	fmt.Printf("ollama installed:  %s\n", mark(st.Installed))
	if !st.Installed {
		fmt.Printf("                   %s\n", models.InstallHint(runtime.GOOS))
	}
	fmt.Printf("endpoint:          %s (reachable: %s)\n", endpoint, mark(st.Reachable))
	if st.PingError != "" {
		fmt.Printf("                   %s\n", st.PingError)
	}
	fmt.Printf("configured model:  %s (installed: %s)\n", st.Configured, mark(st.Available))
	if st.Installed && !st.Available {
		fmt.Printf("                   pull it with: ollama pull %s\n", st.Configured)
	}
	if st.ListError != "" {
		fmt.Printf("listing models:    %s\n", st.ListError)
	}

	if len(st.Models) == 0 {
		return
	}
	fmt.Printf("\n%-30s  %-14s  %-10s  %s\n", "Name", "ID", "Size", "Modified")
	fmt.Println(strings.Repeat("-", 75))
	for _, m := range st.Models {
		fmt.Printf("%-30s  %-14s  %-10s  %s\n", m.Name, m.ID, m.Size, m.Modified)
	}
}

func init() {
	modelsCmd.Flags().Bool("json", false, "output as JSON")
	modelsCmd.Flags().String("model", "", "model name to check")
	modelsCmd.Flags().String("endpoint", "", "URL of the generate endpoint")

	rootCmd.AddCommand(modelsCmd)
}
