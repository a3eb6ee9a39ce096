// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package models reports which local models the ollama CLI has installed
// and whether the completion endpoint answers.
package models

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/pdiddy/pdf-cleanup-agent/internal/command"
)

// ListTimeout bounds a single `ollama list` call.
const ListTimeout = 5 * time.Second

// Model is one row of `ollama list`.
type Model struct {
	Name     string `json:"name" yaml:"name"`
	ID       string `json:"id" yaml:"id"`
	Size     string `json:"size" yaml:"size"`
	Modified string `json:"modified" yaml:"modified"`
}

// columnSep splits tabwriter output, whose columns are padded with at
// least two spaces. Single spaces occur inside SIZE ("4.7 GB") and
// MODIFIED ("2 weeks ago").
var columnSep = regexp.MustCompile(`\t+|\s{2,}`)

// ParseList parses the output of `ollama list`. The header row and
// malformed rows are skipped.
func ParseList(out string) []Model {
	var models []Model
	for i, line := range strings.Split(strings.TrimSpace(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || (i == 0 && strings.HasPrefix(strings.ToUpper(line), "NAME")) {
			continue
		}
		cols := columnSep.Split(line, -1)
		if len(cols) < 4 {
			continue
		}
		models = append(models, Model{
			Name:     cols[0],
			ID:       cols[1],
			Size:     cols[2],
			Modified: strings.Join(cols[3:], " "),
		})
	}
	return models
}

// Lister runs the ollama CLI.
type Lister struct {
	tool *command.Tool
}

// NewLister returns a Lister. A nil executor runs the real binary.
func NewLister(exec command.Executor) *Lister {
	return &Lister{tool: command.NewTool("ollama", exec)}
}

// Installed reports whether the ollama binary is on PATH.
func (l *Lister) Installed() bool { return l.tool.Available() }

// List returns the installed models.
func (l *Lister) List(ctx context.Context) ([]Model, error) {
	if !l.Installed() {
		return nil, fmt.Errorf("%s not found on PATH", l.tool.Name())
	}
	ctx, cancel := context.WithTimeout(ctx, ListTimeout)
	defer cancel()
	out, err := l.tool.Run(ctx, "list")
	if err != nil {
		return nil, err
	}
	return ParseList(string(out)), nil
}

// Pinger checks that a completion endpoint answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Status summarises the local model setup.
type Status struct {
	Installed bool    `json:"installed" yaml:"installed"`
	Reachable bool    `json:"reachable" yaml:"reachable"`
	Models    []Model `json:"models" yaml:"models"`

	// Configured is the model the pipeline will request.
	Configured string `json:"configured" yaml:"configured"`

	// Available reports whether Configured is among Models.
	Available bool `json:"available" yaml:"available"`

	PingError string `json:"ping_error,omitempty" yaml:"ping_error,omitempty"`
	ListError string `json:"list_error,omitempty" yaml:"list_error,omitempty"`
}

// Check gathers a Status. Failures are recorded in the Status rather than
// returned so that a partial picture is still printed.
func Check(ctx context.Context, l *Lister, p Pinger, configured string) Status {
	st := Status{Installed: l.Installed(), Configured: configured}
	if err := p.Ping(ctx); err != nil {
		st.PingError = err.Error()
	} else {
		st.Reachable = true
	}
	if st.Installed {
		models, err := l.List(ctx)
		if err != nil {
			st.ListError = err.Error()
		}
		st.Models = models
	}
	st.Available = HasModel(st.Models, configured)
	return st
}

// HasModel reports whether name is installed. A name without a tag
// matches the ":latest" tag.
func HasModel(models []Model, name string) bool {
	if name == "" {
		return false
	}
	if !strings.Contains(name, ":") {
		name += ":latest"
	}
	for _, m := range models {
		if m.Name == name {
			return true
		}
	}
	return false
}

// InstallHint returns installation instructions for goos.
func InstallHint(goos string) string {
	switch goos {
	case "darwin":
		return "Install Ollama: brew install ollama (see https://ollama.com/download)"
	case "linux":
		return "Install Ollama: curl -fsSL https://ollama.com/install.sh | sh"
	case "windows":
		return "Install Ollama: download from https://ollama.com/download"
	default:
		return "See https://ollama.com/download for instructions."
	}
}
