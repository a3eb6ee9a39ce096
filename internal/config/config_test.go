// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pdf-cleanup-agent/internal/postprocess"
	"github.com/pdiddy/pdf-cleanup-agent/internal/prompt"
	"github.com/pdiddy/pdf-cleanup-agent/pkg/types"
)

func newViper(t *testing.T, yaml string) *viper.Viper {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	BindEnv(v)
	if yaml != "" {
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBufferString(yaml)))
	}
	return v
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newViper(t, ""))
	require.NoError(t, err)

	assert.Equal(t, DefaultModel, cfg.Model.Name)
	assert.Equal(t, "http://localhost:11434/api/generate", cfg.Model.Endpoint)
	assert.Equal(t, DefaultTimeout, cfg.Model.Timeout)
	assert.Equal(t, DefaultChunkSize, cfg.Chunking.Size)
	assert.Equal(t, 0, cfg.Chunking.Overlap)
	assert.Equal(t, types.DefaultSteps, cfg.Steps)
	assert.Equal(t, "data/pdf", cfg.Directories.PDFSource)
	assert.Equal(t, "data/yml", cfg.Directories.YAMLOutput)
	assert.Equal(t, DefaultTOCDepth, cfg.Segmentation.TOCDepth)
	assert.Equal(t, postprocess.DefaultMarker, cfg.PostProcess.UncertainMarker)
	assert.Equal(t, DefaultLedger, cfg.Ledger)
}

func TestDefaultMarkerMatchesBuiltInPrompt(t *testing.T) {
	cfg, err := Load(newViper(t, ""))
	require.NoError(t, err)
	assert.Contains(t, prompt.DefaultText(), cfg.PostProcess.UncertainMarker)

	repaired := "The cult" + cfg.PostProcess.UncertainMarker + " met at dusk."
	assert.Equal(t, 1, postprocess.CountMarker(repaired, cfg.PostProcess.UncertainMarker))
}

func TestLoad_File(t *testing.T) {
	cfg, err := Load(newViper(t, `
model:
  name: mistral:7b
  endpoint: http://gpu-box:11434/api/generate
  stream: true
  timeout: 45s
  max_retries: 2
chunking:
  size: 2000
  overlap: 100
steps:
  - llm_cleaning
  - vtt_conversion
postprocess:
  heading_phrases: ["Keeper note:"]
log_level: debug
`))
	require.NoError(t, err)

	assert.Equal(t, "mistral:7b", cfg.Model.Name)
	assert.True(t, cfg.Model.Stream)
	assert.Equal(t, 45*time.Second, cfg.Model.Timeout)
	assert.Equal(t, 2, cfg.Model.MaxRetries)
	assert.Equal(t, 2000, cfg.Chunking.Size)
	assert.Equal(t, 100, cfg.Chunking.Overlap)
	assert.Equal(t, []types.StepName{types.StepLLMCleaning, types.StepVTT}, cfg.Steps)
	assert.Equal(t, []string{"Keeper note:"}, cfg.PostProcess.HeadingPhrases)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("PDF_CLEANUP_AGENT_MODEL_NAME", "phi3")
	t.Setenv("PDF_CLEANUP_AGENT_CHUNKING_SIZE", "1234")

	cfg, err := Load(newViper(t, ""))
	require.NoError(t, err)
	assert.Equal(t, "phi3", cfg.Model.Name)
	assert.Equal(t, 1234, cfg.Chunking.Size)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown step", "steps: [pdf_segmentation, translate]"},
		{"zero chunk size", "chunking: {size: 0}"},
		{"overlap too large", "chunking: {size: 100, overlap: 100}"},
		{"bad endpoint", "model: {endpoint: 'ftp://host/api'}"},
		{"empty model", "model: {name: ''}"},
		{"bad log level", "log_level: loud"},
		{"bad artifact pattern", "postprocess: {artifact_patterns: ['(']}"},
		{"negative retries", "model: {max_retries: -1}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(newViper(t, tt.yaml))
			assert.ErrorIs(t, err, types.ErrConfiguration)
		})
	}
}

func TestLoad_InvalidReportsFirstProblem(t *testing.T) {
	_, err := Load(newViper(t, "model: {name: ''}\nchunking: {size: 0}"))
	require.ErrorIs(t, err, types.ErrConfiguration)
	assert.Contains(t, err.Error(), "model name is empty")
	assert.NotContains(t, err.Error(), "chunk size")
}

func TestApplySecrets(t *testing.T) {
	cfg := types.Config{}
	ApplySecrets(&cfg, map[string]string{SecretAPIKey: "sk-test"})
	assert.Equal(t, "sk-test", cfg.Model.APIKey)

	cfg.Model.APIKey = "from-config"
	ApplySecrets(&cfg, map[string]string{SecretAPIKey: "sk-test"})
	assert.Equal(t, "from-config", cfg.Model.APIKey)
}

func TestDescribe_OmitsAPIKey(t *testing.T) {
	cfg, err := Load(newViper(t, ""))
	require.NoError(t, err)
	cfg.Model.APIKey = "sk-secret"

	out := Describe(cfg)
	assert.Contains(t, out, DefaultModel)
	assert.Contains(t, out, "pdf_segmentation, llm_cleaning")
	assert.NotContains(t, out, "sk-secret")
}
