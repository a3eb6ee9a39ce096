// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	charmlog "github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want charmlog.Level
	}{
		{"debug", charmlog.DebugLevel},
		{"INFO", charmlog.InfoLevel},
		{"warn", charmlog.WarnLevel},
		{"warning", charmlog.WarnLevel},
		{"error", charmlog.ErrorLevel},
		{"", charmlog.InfoLevel},
		{"chatty", charmlog.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestValidLevel(t *testing.T) {
	assert.True(t, ValidLevel(""))
	assert.True(t, ValidLevel("Debug"))
	assert.False(t, ValidLevel("verbose"))
}

func TestNew_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "warn", Output: &buf})

	l.Info("hidden")
	l.Warn("shown", "file", "a.txt")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "a.txt")
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "debug", Output: &buf, JSON: true})
	l.Debug("chunk sent", "index", 3)

	line := strings.TrimSpace(buf.String())
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &m))
	assert.Equal(t, "chunk sent", m["msg"])
	assert.EqualValues(t, 3, m["index"])
}

func TestDiscard(t *testing.T) {
	var l Logger = Discard()
	l.Error("nothing happens")
}
