// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pdf-cleanup-agent/internal/config"
	"github.com/pdiddy/pdf-cleanup-agent/internal/prompt"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: `Config loads the configuration the other commands would use (defaults,
config file, PDF_CLEANUP_AGENT_* environment variables and secrets),
validates it and prints it. API keys are never printed.`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	fmt.Print(config.Describe(cfg))

	showPrompt, _ := cmd.Flags().GetBool("prompt")
	if !showPrompt {
		return nil
	}
	composer := prompt.Default()
	if cfg.Prompt != "" {
		if composer, err = prompt.Load(cfg.Prompt); err != nil {
			return err
		}
	}
	fmt.Printf("\n%s\n", composer.Text())
	return nil
}

func init() {
	configCmd.Flags().Bool("prompt", false, "also print the instruction template")

	rootCmd.AddCommand(configCmd)
}
