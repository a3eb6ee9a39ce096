// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pdf-cleanup-agent/pkg/types"
)

func TestApplyFlags_OnlyChangedFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	cmd.Flags().String("model", "", "")
	cmd.Flags().String("endpoint", "", "")
	cmd.Flags().Int("chunk-size", 0, "")
	cmd.Flags().Duration("timeout", 0, "")
	cmd.Flags().StringSlice("steps", nil, "")
	cmd.Flags().Bool("no-ledger", false, "")
	require.NoError(t, cmd.Flags().Parse([]string{"--model", "mistral", "--timeout", "30s", "--steps", "llm_cleaning,vtt_conversion"}))

	cfg := types.Config{
		Model:    types.ModelConfig{Name: "llama3:8b", Endpoint: "http://localhost:11434/api/generate"},
		Chunking: types.ChunkConfig{Size: 4000, Overlap: 200},
		Ledger:   "data/ledger.db",
	}
	applyFlags(cmd, &cfg)

	assert.Equal(t, "mistral", cfg.Model.Name)
	assert.Equal(t, 30*time.Second, cfg.Model.Timeout)
	assert.Equal(t, "http://localhost:11434/api/generate", cfg.Model.Endpoint)
	assert.Equal(t, 4000, cfg.Chunking.Size)
	assert.Equal(t, []types.StepName{types.StepLLMCleaning, types.StepVTT}, cfg.Steps)
	assert.Equal(t, "data/ledger.db", cfg.Ledger)
}

func TestApplyFlags_NoLedger(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	cmd.Flags().Bool("no-ledger", false, "")
	require.NoError(t, cmd.Flags().Parse([]string{"--no-ledger"}))

	cfg := types.Config{Ledger: "data/ledger.db"}
	applyFlags(cmd, &cfg)
	assert.Empty(t, cfg.Ledger)
}

func TestCommandsRegistered(t *testing.T) {
	var names []string
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"segment", "clean", "postprocess", "vtt", "run", "watch", "models", "ledger", "config", "version"} {
		assert.Contains(t, names, want)
	}
}
