// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package command runs external helper binaries (ollama, pdftotext) behind
// an executor seam so callers can be tested without the binaries installed.
package command

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Executor abstracts command execution for testing.
type Executor interface {
	LookPath(file string) (string, error)
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// OSExecutor is the production executor backed by os/exec.
type OSExecutor struct{}

func (OSExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

// Output runs the command and returns its stdout. On failure the error
// includes the command's stderr.
func (OSExecutor) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%w: %s", err, msg)
		}
		return out, err
	}
	return out, nil
}

// Tool is one external binary.
type Tool struct {
	bin  string
	exec Executor
}

// NewTool returns a Tool for bin. A nil executor selects OSExecutor.
func NewTool(bin string, exec Executor) *Tool {
	if exec == nil {
		exec = OSExecutor{}
	}
	return &Tool{bin: bin, exec: exec}
}

// Name returns the binary name.
func (t *Tool) Name() string { return t.bin }

// Available reports whether the binary exists on PATH.
func (t *Tool) Available() bool {
	_, err := t.exec.LookPath(t.bin)
	return err == nil
}

// Run executes the binary with args and returns its stdout.
func (t *Tool) Run(ctx context.Context, args ...string) ([]byte, error) {
	out, err := t.exec.Output(ctx, t.bin, args...)
	if err != nil {
		return nil, fmt.Errorf("running %s %s: %w", t.bin, strings.Join(args, " "), err)
	}
	return out, nil
}
