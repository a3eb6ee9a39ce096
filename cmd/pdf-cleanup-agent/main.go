// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the pdf-cleanup-agent CLI. Each
// pipeline stage is a subcommand; run chains them for whole PDFs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pdf-cleanup-agent/internal/config"
	"github.com/pdiddy/pdf-cleanup-agent/internal/ledger"
	"github.com/pdiddy/pdf-cleanup-agent/internal/logging"
	"github.com/pdiddy/pdf-cleanup-agent/internal/model"
	"github.com/pdiddy/pdf-cleanup-agent/internal/secrets"
	"github.com/pdiddy/pdf-cleanup-agent/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// log is configured in PersistentPreRunE.
var log = logging.New(logging.Config{})

var rootCmd = &cobra.Command{
	Use:   "pdf-cleanup-agent",
	Short: "Turn PDF rulebooks into clean Markdown with a local language model",
	Long: `pdf-cleanup-agent splits PDF rulebooks into sections, sends each section
through a local language model to repair extraction damage, tidies the
Markdown it returns and exports the result as a Foundry VTT journal.

Each stage is a subcommand: segment, clean, postprocess and vtt. The run
command chains the configured steps for whole PDFs and watch does the same
for every PDF dropped into the source directory.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		if level == "" {
			level = viper.GetString("log_level")
		}
		if !logging.ValidLevel(level) {
			return types.ConfigErrorf("log level %q: use debug, info, warn or error", level)
		}
		asJSON, _ := cmd.Flags().GetBool("log-json")
		log = logging.New(logging.Config{Level: level, JSON: asJSON})

		s, err := secrets.Load(afero.NewOsFs(), secrets.DefaultDir, log)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", secrets.Names(s))
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./pdf-cleanup-agent.yaml or ~/.config/pdf-cleanup-agent/pdf-cleanup-agent.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (default from config, else info)")
	rootCmd.PersistentFlags().Bool("log-json", false, "write logs as JSON")
	rootCmd.PersistentFlags().Bool("no-ledger", false, "do not read or write the processing ledger")
}

func initConfig() {
	config.SetDefaults(viper.GetViper())

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(config.FileName)
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", config.FileName))
		}
	}

	config.BindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		fmt.Fprintf(os.Stderr, "warning: reading config file %s: %v\n", cfgFile, err)
	}
}

// loadConfig builds the effective configuration: file and environment via
// viper, then secrets, then any command flags the user set explicitly.
func loadConfig(cmd *cobra.Command) (types.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return types.Config{}, err
	}
	config.ApplySecrets(&cfg, loadedSecrets)
	applyFlags(cmd, &cfg)
	if err := config.Validate(cfg); err != nil {
		return types.Config{}, err
	}
	log.Debug("configuration", "model", cfg.Model.String(), "chunk_size", cfg.Chunking.Size, "steps", cfg.Steps)
	return cfg, nil
}

// applyFlags copies explicitly set flags over cfg. Commands only declare
// the flags relevant to them; absent flags are ignored.
func applyFlags(cmd *cobra.Command, cfg *types.Config) {
	f := cmd.Flags()
	set := func(name string, apply func()) {
		if fl := f.Lookup(name); fl != nil && fl.Changed {
			apply()
		}
	}
	set("model", func() { cfg.Model.Name, _ = f.GetString("model") })
	set("endpoint", func() { cfg.Model.Endpoint, _ = f.GetString("endpoint") })
	set("stream", func() { cfg.Model.Stream, _ = f.GetBool("stream") })
	set("timeout", func() { cfg.Model.Timeout, _ = f.GetDuration("timeout") })
	set("max-retries", func() { cfg.Model.MaxRetries, _ = f.GetInt("max-retries") })
	set("chunk-size", func() { cfg.Chunking.Size, _ = f.GetInt("chunk-size") })
	set("chunk-overlap", func() { cfg.Chunking.Overlap, _ = f.GetInt("chunk-overlap") })
	set("prompt", func() { cfg.Prompt, _ = f.GetString("prompt") })
	set("pages-per-section", func() { cfg.Segmentation.PagesPerSection, _ = f.GetInt("pages-per-section") })
	set("toc-depth", func() { cfg.Segmentation.TOCDepth, _ = f.GetInt("toc-depth") })
	set("pdftotext", func() { cfg.Segmentation.Pdftotext, _ = f.GetBool("pdftotext") })
	set("steps", func() {
		names, _ := f.GetStringSlice("steps")
		cfg.Steps = make([]types.StepName, len(names))
		for i, n := range names {
			cfg.Steps[i] = types.StepName(n)
		}
	})
	if noLedger, _ := cmd.Flags().GetBool("no-ledger"); noLedger {
		cfg.Ledger = ""
	}
}

// openLedger opens the configured ledger, or returns nil when disabled.
func openLedger(cfg types.Config) (*ledger.Ledger, error) {
	if cfg.Ledger == "" {
		return nil, nil
	}
	l, err := ledger.Open(cfg.Ledger)
	if err != nil {
		return nil, err
	}
	log.Debug("ledger opened", "path", l.Path())
	return l, nil
}

// newClient builds the model client for cfg.
func newClient(cfg types.Config) (*model.Client, error) {
	return model.NewClient(cfg.Model)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
