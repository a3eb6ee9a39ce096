// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the pdf-cleanup-agent pipeline:
// documents and their chunks, PDF sections and table-of-contents order files,
// model requests, stage configuration, and the error taxonomy.
package types

import "unicode/utf8"

// Document is raw text extracted from a PDF section or a plain-text source.
// It is read once at the start of a pipeline run and never mutated.
type Document struct {
	// Path is the source file the text was read from.
	Path string `json:"path" yaml:"path"`

	// Text is the full document text.
	Text string `json:"text" yaml:"text"`
}

// Len returns the document length in characters (runes).
func (d Document) Len() int {
	return utf8.RuneCountInString(d.Text)
}

// Chunk is a contiguous slice of a Document sent as one model request.
// Text is always Document.Text[Start:End].
type Chunk struct {
	// Index is the zero-based sequence number of the chunk within its document.
	Index int `json:"index" yaml:"index"`

	// Start is the byte offset of the first character of the chunk.
	Start int `json:"start" yaml:"start"`

	// End is the byte offset one past the last character of the chunk.
	End int `json:"end" yaml:"end"`

	// Text is the chunk content.
	Text string `json:"text" yaml:"text"`
}

// Len returns the chunk length in characters (runes).
func (c Chunk) Len() int {
	return utf8.RuneCountInString(c.Text)
}

// PromptRequest is the payload sent to the completion endpoint for one chunk.
type PromptRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// Section is a named range of PDF pages. Page numbers are 1-based and inclusive.
type Section struct {
	// Index is the zero-based position of the section in output order.
	Index int `json:"index" yaml:"index"`

	// Title is the TOC entry title, or "Pages S-E" for page-window sections.
	Title string `json:"title" yaml:"title"`

	// Level is the TOC nesting level (1 = top level). Page-window sections use 1.
	Level int `json:"level" yaml:"level"`

	// Breadcrumb lists the titles from the top-level ancestor down to this section.
	Breadcrumb []string `json:"breadcrumb,omitempty" yaml:"breadcrumb,omitempty"`

	// StartPage is the first page of the section.
	StartPage int `json:"start_page" yaml:"start_page"`

	// EndPage is the last page of the section.
	EndPage int `json:"end_page" yaml:"end_page"`

	// FromTOC reports whether the bounds came from the PDF outline.
	FromTOC bool `json:"from_toc" yaml:"from_toc"`
}

// Pages returns the number of pages covered by the section.
func (s Section) Pages() int {
	if s.EndPage < s.StartPage {
		return 0
	}
	return s.EndPage - s.StartPage + 1
}

// TOCEntry is a single outline entry read from a PDF.
type TOCEntry struct {
	// Level is the nesting depth, starting at 1 for top-level entries.
	Level int `json:"level" yaml:"level"`

	// Title is the outline entry text.
	Title string `json:"title" yaml:"title"`

	// Page is the 1-based destination page. Zero means the destination could not be resolved.
	Page int `json:"page" yaml:"page"`
}

// TOCOrder is persisted next to the segmented output so later stages can
// restore the book's reading order and section titles.
type TOCOrder struct {
	PDFName string          `json:"pdf_name" yaml:"pdf_name"`
	Entries []TOCOrderEntry `json:"toc_entries" yaml:"toc_entries"`
}

// TOCOrderEntry maps a TOC entry to the file stem written for it.
type TOCOrderEntry struct {
	Level    int    `json:"level" yaml:"level"`
	Title    string `json:"title" yaml:"title"`
	Page     int    `json:"page" yaml:"page"`
	Filename string `json:"filename" yaml:"filename"`
}
