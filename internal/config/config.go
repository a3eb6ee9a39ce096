// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config builds a types.Config from viper. It is the only package
// besides the CLI that reads viper; every other component receives the
// resulting struct.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/pdiddy/pdf-cleanup-agent/internal/logging"
	"github.com/pdiddy/pdf-cleanup-agent/internal/model"
	"github.com/pdiddy/pdf-cleanup-agent/internal/postprocess"
	"github.com/pdiddy/pdf-cleanup-agent/pkg/types"
)

// EnvPrefix prefixes environment overrides, e.g. PDF_CLEANUP_AGENT_MODEL_NAME.
const EnvPrefix = "PDF_CLEANUP_AGENT"

// FileName is the config file name searched for, without extension.
const FileName = "pdf-cleanup-agent"

// SecretAPIKey is the .secrets/ file holding the model API key.
const SecretAPIKey = "model-api-key"

// Defaults.
const (
	DefaultModel           = "llama3:8b"
	DefaultChunkSize       = 4000
	DefaultTimeout         = model.DefaultTimeout
	DefaultTOCDepth        = 1
	DefaultPagesPerSection = 10
	DefaultLedger          = "data/ledger.db"
)

// SetDefaults registers every known key with its default so that
// environment variables and Unmarshal see the full key set.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("model.name", DefaultModel)
	v.SetDefault("model.endpoint", model.DefaultEndpoint)
	v.SetDefault("model.stream", false)
	v.SetDefault("model.timeout", DefaultTimeout)
	v.SetDefault("model.max_retries", 0)
	v.SetDefault("model.api_key", "")

	v.SetDefault("chunking.size", DefaultChunkSize)
	v.SetDefault("chunking.overlap", 0)

	v.SetDefault("directories.pdf_source", "data/pdf")
	v.SetDefault("directories.txt_output", "data/txt_input")
	v.SetDefault("directories.markdown_output", "data/markdown")
	v.SetDefault("directories.json_output", "data/json")
	v.SetDefault("directories.yml_output", "data/yml")

	v.SetDefault("segmentation.pages_per_section", DefaultPagesPerSection)
	v.SetDefault("segmentation.toc_depth", DefaultTOCDepth)
	v.SetDefault("segmentation.pdftotext", false)

	v.SetDefault("postprocess.artifact_patterns", []string{})
	v.SetDefault("postprocess.heading_phrases", []string{})
	v.SetDefault("postprocess.uncertain_marker", postprocess.DefaultMarker)

	v.SetDefault("prompt", "")
	v.SetDefault("steps", stepStrings(types.DefaultSteps))
	v.SetDefault("ledger", DefaultLedger)
	v.SetDefault("log_level", logging.InfoLevel)
}

// BindEnv enables PDF_CLEANUP_AGENT_* overrides for every key.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load unmarshals v into a Config, fills in defaults for unset values and
// validates the result. Problems are reported as types.ErrConfiguration.
func Load(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, types.ConfigErrorf("decoding configuration: %v", err)
	}
	if cfg.Model.Timeout == 0 {
		cfg.Model.Timeout = DefaultTimeout
	}
	if len(cfg.Steps) == 0 {
		cfg.Steps = append([]types.StepName(nil), types.DefaultSteps...)
	}
	if cfg.Directories.YAMLOutput == "" {
		cfg.Directories.YAMLOutput = "data/yml"
	}
	if err := Validate(cfg); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}

// Validate checks cfg, including settings types.Config cannot check on its own.
func Validate(cfg types.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if !logging.ValidLevel(cfg.LogLevel) {
		return types.ConfigErrorf("log level %q: use debug, info, warn or error", cfg.LogLevel)
	}
	if _, err := postprocess.CompilePatterns(cfg.PostProcess.ArtifactPatterns); err != nil {
		return err
	}
	return nil
}

// ApplySecrets fills the model API key from loaded secrets unless the
// configuration already sets one.
func ApplySecrets(cfg *types.Config, secrets map[string]string) {
	if cfg.Model.APIKey == "" {
		cfg.Model.APIKey = secrets[SecretAPIKey]
	}
}

// Describe renders the effective configuration for the log, without secrets.
func Describe(cfg types.Config) string {
	var b strings.Builder
	fmt.Fprintf(&b, "model: %s\n", cfg.Model)
	fmt.Fprintf(&b, "chunking: size=%d overlap=%d\n", cfg.Chunking.Size, cfg.Chunking.Overlap)
	fmt.Fprintf(&b, "steps: %s\n", strings.Join(stepStrings(cfg.Steps), ", "))
	fmt.Fprintf(&b, "directories: pdf=%s txt=%s markdown=%s json=%s yml=%s\n",
		cfg.Directories.PDFSource, cfg.Directories.TextOutput, cfg.Directories.MarkdownOutput,
		cfg.Directories.JSONOutput, cfg.Directories.YAMLOutput)
	ledger := cfg.Ledger
	if ledger == "" {
		ledger = "disabled"
	}
	fmt.Fprintf(&b, "ledger: %s\n", ledger)
	return b.String()
}

func stepStrings(steps []types.StepName) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = string(s)
	}
	return out
}
