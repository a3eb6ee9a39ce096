// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files.
// Each file is one secret: the file name is the key and the trimmed
// contents are the value.
//
// Recognised keys: model-api-key (bearer token for a hosted completion endpoint).
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/pdiddy/pdf-cleanup-agent/internal/logging"
)

// DefaultDir is the secrets directory, relative to the working directory.
const DefaultDir = ".secrets"

// Load reads every file in dir. A missing directory is not an error and
// yields an empty map. Unreadable files are logged and skipped.
func Load(fs afero.Fs, dir string, log logging.Logger) (map[string]string, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := afero.ReadFile(fs, filepath.Join(dir, name))
		if err != nil {
			log.Warn("could not read secret", "name", name, "err", err)
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}
	return secrets, nil
}

// Names returns the loaded key names in sorted order, for logging.
func Names(secrets map[string]string) []string {
	keys := make([]string, 0, len(secrets))
	for k := range secrets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
