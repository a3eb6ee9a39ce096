// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package segment

import (
	"bytes"
	"fmt"

	"github.com/spf13/afero"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pdf-cleanup-agent/internal/fsutil"
	"github.com/pdiddy/pdf-cleanup-agent/pkg/types"
)

// WriteOrder writes the TOC order file for a segmented PDF.
func WriteOrder(fs afero.Fs, path string, order types.TOCOrder) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(order); err != nil {
		return fmt.Errorf("marshaling order file: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("marshaling order file: %w", err)
	}
	return fsutil.WriteFileAtomic(fs, path, buf.Bytes())
}

// ReadOrder reads a TOC order file.
func ReadOrder(fs afero.Fs, path string) (types.TOCOrder, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return types.TOCOrder{}, fmt.Errorf("reading order file %s: %w", path, err)
	}
	var order types.TOCOrder
	if err := yaml.Unmarshal(data, &order); err != nil {
		return types.TOCOrder{}, fmt.Errorf("parsing order file %s: %w", path, err)
	}
	return order, nil
}
