// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pdf-cleanup-agent/pkg/types"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{"renders chunk", "Clean this:\n\n{{.Chunk}}", false},
		{"chunk inside condition", "{{if .Source}}From {{.Source}}\n{{end}}{{.Chunk}}", false},
		{"empty", "", true},
		{"whitespace only", "  \n\t", true},
		{"no placeholder", "Clean the following text.", true},
		{"parse error", "{{.Chunk", true},
		{"unknown field", "{{.Missing}} {{.Chunk}}", true},
		{"placeholder never rendered", "{{if false}}{{.Chunk}}{{end}}", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.text)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, types.ErrConfiguration)
				assert.Nil(t, c)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c)
		})
	}
}

func TestCompose(t *testing.T) {
	c, err := New("Part {{.Index}}/{{.Total}} of {{.Source}}\n\n{{.Chunk}}")
	require.NoError(t, err)

	got, err := c.Compose(Data{Chunk: "raw text", Source: "a.txt", Index: 2, Total: 3})
	require.NoError(t, err)
	assert.Equal(t, "Part 2/3 of a.txt\n\nraw text", got)
}

func TestCompose_IsPure(t *testing.T) {
	c := Default()
	d := Data{Chunk: "Some  OCR  text", Index: 1, Total: 1}

	a, err := c.Compose(d)
	require.NoError(t, err)
	b, err := c.Compose(d)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDefault_EndsWithChunk(t *testing.T) {
	got, err := Default().Compose(Data{Chunk: "CHUNK-BODY"})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(got), "CHUNK-BODY"))
	assert.Contains(t, got, "[UNCERTAIN]")
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.tmpl")
	require.NoError(t, os.WriteFile(good, []byte("Fix:\n{{.Chunk}}"), 0o644))
	bad := filepath.Join(dir, "bad.tmpl")
	require.NoError(t, os.WriteFile(bad, []byte("Fix the text."), 0o644))

	c, err := Load(good)
	require.NoError(t, err)
	out, err := c.Compose(Data{Chunk: "x"})
	require.NoError(t, err)
	assert.Equal(t, "Fix:\nx", out)

	_, err = Load(bad)
	assert.ErrorIs(t, err, types.ErrConfiguration)

	_, err = Load(filepath.Join(dir, "missing.tmpl"))
	assert.ErrorIs(t, err, types.ErrConfiguration)

	c, err = Load("")
	require.NoError(t, err)
	assert.NotNil(t, c)
}
