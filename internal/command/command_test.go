// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package command

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockExecutor records calls and returns configured responses.
type mockExecutor struct {
	availableBins map[string]bool   // binary -> whether LookPath succeeds
	outputs       map[string]string // "bin arg1 arg2" -> stdout
	failures      map[string]error  // "bin arg1 arg2" -> error
	calls         []string
}

func (m *mockExecutor) LookPath(file string) (string, error) {
	if m.availableBins[file] {
		return "/usr/bin/" + file, nil
	}
	return "", errors.New("not found: " + file)
}

func (m *mockExecutor) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	key := strings.TrimSpace(name + " " + strings.Join(args, " "))
	m.calls = append(m.calls, key)
	if err, ok := m.failures[key]; ok {
		return nil, err
	}
	return []byte(m.outputs[key]), nil
}

func TestTool_Available(t *testing.T) {
	exec := &mockExecutor{availableBins: map[string]bool{"ollama": true}}

	assert.True(t, NewTool("ollama", exec).Available())
	assert.False(t, NewTool("pdftotext", exec).Available())
}

func TestTool_Run(t *testing.T) {
	exec := &mockExecutor{outputs: map[string]string{"ollama list": "NAME ID SIZE MODIFIED\n"}}
	tool := NewTool("ollama", exec)

	out, err := tool.Run(context.Background(), "list")
	require.NoError(t, err)
	assert.Equal(t, "NAME ID SIZE MODIFIED\n", string(out))
	assert.Equal(t, []string{"ollama list"}, exec.calls)
	assert.Equal(t, "ollama", tool.Name())
}

func TestTool_RunError(t *testing.T) {
	exec := &mockExecutor{failures: map[string]error{"pdftotext -v": errors.New("exit status 1")}}

	_, err := NewTool("pdftotext", exec).Run(context.Background(), "-v")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "running pdftotext -v")
}

func TestNewTool_DefaultsToOS(t *testing.T) {
	tool := NewTool("definitely-not-a-real-binary-xyz", nil)
	assert.False(t, tool.Available())
}
