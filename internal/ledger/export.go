// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"
)

// Export is the serialized form of the ledger.
type Export struct {
	Documents []Record `json:"documents" yaml:"documents"`
	Runs      []Run    `json:"runs" yaml:"runs"`
}

func (l *Ledger) export(ctx context.Context) (Export, error) {
	docs, err := l.List(ctx, "")
	if err != nil {
		return Export{}, err
	}
	runs, err := l.Runs(ctx, 0)
	if err != nil {
		return Export{}, err
	}
	return Export{Documents: docs, Runs: runs}, nil
}

// ExportYAML writes every document record and run to w as YAML.
func (l *Ledger) ExportYAML(ctx context.Context, w io.Writer) error {
	e, err := l.export(ctx)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// ExportJSON writes every document record and run to w as indented JSON.
func (l *Ledger) ExportJSON(ctx context.Context, w io.Writer) error {
	e, err := l.export(ctx)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
