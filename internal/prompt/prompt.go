// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package prompt merges an instruction template with one chunk of document text.
package prompt

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/pdiddy/pdf-cleanup-agent/pkg/types"
)

// defaultTemplate is used when no prompt file is configured.
//
//go:embed templates/normalize.tmpl
var defaultTemplate string

// probe is rendered in place of the chunk when a template is validated.
const probe = "\x00chunk-placeholder\x00"

// Data is the value a template is executed against.
type Data struct {
	// Chunk is the document text to be cleaned. Every template must render it.
	Chunk string

	// Source is the path of the document the chunk came from.
	Source string

	// Index is the 1-based chunk number and Total the number of chunks.
	Index int
	Total int
}

// Composer renders prompts from a parsed template. It is safe for concurrent use.
type Composer struct {
	tmpl *template.Template
	text string
}

// New parses text as a template. The template must render the {{.Chunk}}
// field; anything else is a configuration error.
func New(text string) (*Composer, error) {
	if strings.TrimSpace(text) == "" {
		return nil, types.ConfigErrorf("prompt template is empty")
	}
	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, types.ConfigErrorf("parsing prompt template: %v", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, Data{Chunk: probe, Index: 1, Total: 1}); err != nil {
		return nil, types.ConfigErrorf("executing prompt template: %v", err)
	}
	if !strings.Contains(buf.String(), probe) {
		return nil, types.ConfigErrorf("prompt template never renders {{.Chunk}}")
	}
	return &Composer{tmpl: tmpl, text: text}, nil
}

// Load reads a template file. An empty path selects the built-in template.
func Load(path string) (*Composer, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.ConfigErrorf("reading prompt %s: %v", path, err)
	}
	c, err := New(string(data))
	if err != nil {
		return nil, fmt.Errorf("prompt %s: %w", path, err)
	}
	return c, nil
}

// Default returns a Composer for the built-in normalization template.
func Default() *Composer {
	c, err := New(defaultTemplate)
	if err != nil {
		panic(fmt.Sprintf("built-in prompt template is invalid: %v", err))
	}
	return c
}

// DefaultText returns the source of the built-in template.
func DefaultText() string {
	return defaultTemplate
}

// Text returns the template source.
func (c *Composer) Text() string { return c.text }

// Compose renders the prompt for one chunk.
func (c *Composer) Compose(d Data) (string, error) {
	var buf bytes.Buffer
	if err := c.tmpl.Execute(&buf, d); err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return buf.String(), nil
}
