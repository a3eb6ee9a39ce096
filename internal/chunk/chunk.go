// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package chunk splits document text into bounded pieces, each small enough
// for a single model request. Cuts prefer blank lines, then sentence ends,
// then whitespace, and fall back to a hard cut at the size limit.
package chunk

import (
	"iter"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/pdf-cleanup-agent/pkg/types"
)

// Chunker produces chunks of at most size characters. Consecutive chunks
// share at most overlap characters.
type Chunker struct {
	size    int
	overlap int
}

// New returns a Chunker. A non-positive size, or an overlap outside
// [0, size), is a configuration error.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, types.ConfigErrorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, types.ConfigErrorf("chunk overlap %d must be in [0, %d)", overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Size returns the maximum chunk length in characters.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured overlap window in characters.
func (c *Chunker) Overlap() int { return c.overlap }

// Chunks returns the chunk sequence for doc. The sequence is computed lazily
// and can be ranged over any number of times. An empty document yields no chunks.
func (c *Chunker) Chunks(doc types.Document) iter.Seq[types.Chunk] {
	return func(yield func(types.Chunk) bool) {
		text := doc.Text
		start, covered := 0, 0
		for i := 0; start < len(text); i++ {
			end := c.cut(text, start, covered)
			covered = end
			if !yield(types.Chunk{Index: i, Start: start, End: end, Text: text[start:end]}) {
				return
			}
			if end >= len(text) {
				return
			}
			next := end
			if c.overlap > 0 {
				next = rewind(text, end, c.overlap)
				if next <= start {
					_, w := utf8.DecodeRuneInString(text[start:])
					next = start + w
				}
			}
			start = next
		}
	}
}

// Split collects every chunk of doc.
func (c *Chunker) Split(doc types.Document) []types.Chunk {
	return slices.Collect(c.Chunks(doc))
}

// cut returns the byte offset where the chunk starting at start should end.
// Boundary cuts must land past covered, the end of the previous chunk, so an
// overlapping chunk always contributes new text.
func (c *Chunker) cut(text string, start, covered int) int {
	limit := advance(text, start, c.size)
	if limit >= len(text) {
		return len(text)
	}
	window := text[start:limit]
	floor := max(covered-start, 0)

	if i := strings.LastIndex(window, "\n\n"); i > 0 {
		j := i
		for j < len(window) && window[j] == '\n' {
			j++
		}
		if j > floor {
			return start + j
		}
	}
	if k := lastSentenceEnd(window); k > floor {
		return start + k
	}
	if k := strings.LastIndexAny(window, " \t\n"); k > 0 && k+1 > floor {
		return start + k + 1
	}
	return limit
}

// lastSentenceEnd returns the offset just past the whitespace that follows the
// last sentence terminator in s, or -1.
func lastSentenceEnd(s string) int {
	for k := len(s) - 2; k >= 0; k-- {
		switch s[k] {
		case '.', '!', '?':
			if isSpace(s[k+1]) {
				return k + 2
			}
		}
	}
	return -1
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}

// advance returns the byte offset n runes after from, capped at len(s).
func advance(s string, from, n int) int {
	i := from
	for ; n > 0 && i < len(s); n-- {
		_, w := utf8.DecodeRuneInString(s[i:])
		i += w
	}
	return i
}

// rewind returns the byte offset n runes before from, floored at 0.
func rewind(s string, from, n int) int {
	i := from
	for ; n > 0 && i > 0; n-- {
		_, w := utf8.DecodeLastRuneInString(s[:i])
		i -= w
	}
	return i
}

// Reassemble rebuilds the original text from chunks in sequence order,
// dropping any overlapped prefix.
func Reassemble(chunks []types.Chunk) string {
	var b strings.Builder
	covered := 0
	for _, ch := range chunks {
		switch {
		case ch.End <= covered:
			continue
		case ch.Start < covered:
			b.WriteString(ch.Text[covered-ch.Start:])
		default:
			b.WriteString(ch.Text)
		}
		covered = ch.End
	}
	return b.String()
}
