// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package segment

import (
	"context"
	"strconv"
	"strings"

	"github.com/pdiddy/pdf-cleanup-agent/internal/command"
)

// PageExtractor extracts one page of a PDF file by other means than the
// primary Source. It is consulted when the Source fails or returns no text.
type PageExtractor interface {
	PageText(ctx context.Context, pdfPath string, page int) (string, error)
}

// Pdftotext extracts pages with the poppler pdftotext binary.
type Pdftotext struct {
	tool *command.Tool
}

// NewPdftotext returns a Pdftotext extractor. A nil executor runs the real binary.
func NewPdftotext(exec command.Executor) *Pdftotext {
	return &Pdftotext{tool: command.NewTool("pdftotext", exec)}
}

// Available reports whether pdftotext is installed.
func (p *Pdftotext) Available() bool { return p.tool.Available() }

// PageText runs pdftotext on a single page in layout mode.
func (p *Pdftotext) PageText(ctx context.Context, pdfPath string, page int) (string, error) {
	n := strconv.Itoa(page)
	out, err := p.tool.Run(ctx, "-f", n, "-l", n, "-layout", "-enc", "UTF-8", pdfPath, "-")
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(out), "\f\n"), nil
}
