// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pdf-cleanup-agent/internal/logging"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, fs afero.Fs) string
		want  map[string]string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T, fs afero.Fs) string {
				writeFile(t, fs, ".secrets/model-api-key", "  sk_abc123  \n")
				writeFile(t, fs, ".secrets/other", "value\n")
				return ".secrets"
			},
			want: map[string]string{
				"model-api-key": "sk_abc123",
				"other":         "value",
			},
		},
		{
			name: "returns empty map for nonexistent directory",
			setup: func(t *testing.T, fs afero.Fs) string {
				return "does-not-exist"
			},
			want: map[string]string{},
		},
		{
			name: "skips empty files",
			setup: func(t *testing.T, fs afero.Fs) string {
				writeFile(t, fs, "s/model-api-key", "valid-key")
				writeFile(t, fs, "s/empty-key", "")
				writeFile(t, fs, "s/whitespace-only", "   \n\t  ")
				return "s"
			},
			want: map[string]string{"model-api-key": "valid-key"},
		},
		{
			name: "skips dotfiles and subdirectories",
			setup: func(t *testing.T, fs afero.Fs) string {
				writeFile(t, fs, "s/.gitkeep", "")
				writeFile(t, fs, "s/.hidden-key", "secret")
				writeFile(t, fs, "s/nested/model-api-key", "nested")
				writeFile(t, fs, "s/model-api-key", "real")
				return "s"
			},
			want: map[string]string{"model-api-key": "real"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			dir := tt.setup(t, fs)
			got, err := Load(fs, dir, logging.Discard())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadUnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("file permissions are not enforced for root")
	}
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good-key"), []byte("value123"), 0o644))

	badPath := filepath.Join(dir, "bad-key")
	require.NoError(t, os.WriteFile(badPath, []byte("secret"), 0o000))
	t.Cleanup(func() { os.Chmod(badPath, 0o644) })

	got, err := Load(afero.NewOsFs(), dir, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, "value123", got["good-key"])
	_, hasBad := got["bad-key"]
	assert.False(t, hasBad, "unreadable file should not appear in result")
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Names(map[string]string{"b": "2", "a": "1"}))
	assert.Empty(t, Names(nil))
}

func writeFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
}
