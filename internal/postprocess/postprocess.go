// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package postprocess tidies cleaned Markdown: it strips the meta-text models
// wrap around their answers, promotes heading-like lines to Markdown
// headings, and counts the uncertain-fix marker the prompt asks for.
package postprocess

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/pdiddy/pdf-cleanup-agent/pkg/types"
)

// DefaultMarker is the token the built-in prompt asks the model to emit
// beside an uncertain OCR repair.
const DefaultMarker = "[UNCERTAIN]"

// artifactPatterns match whole lines of model chatter. They are applied
// case-insensitively in multiline mode.
var artifactPatterns = []string{
	`^Here is the cleaned.*$`,
	`^Here'?s the (fully )?normalized text:\s*`,
	`^Here is the (fully )?normalized text:\s*`,
	`^Here is the normalized (output|content):?\s*$`,
	`^Here is the cleaned-up Markdown:\s*`,
	`^Here (is|are|was|were) the (cleaned( and repaired)? text|cleaned content|output):?\s*$`,
	`^Here'?s the (cleaned( and repaired)? text|cleaned content|output):?\s*$`,
	`^\*\*Output format:\*\*\s*`,
	`^Output format:\s*`,
	`^Return only the fully normalized text\.\s*`,
	`^Do NOT include any explanations, commentary, or meta-text.*$`,
	`^I'll get to work on cleaning and repairing.*$`,
	`^No artifacts removed yet.*$`,
	`^Removing page artifacts.*$`,
	`^I removed the page header and footer.*$`,
}

var (
	defaultArtifacts = compileAll(artifactPatterns)
	blankRuns        = regexp.MustCompile(`\n[ \t]*\n\s*\n`)
	spaceRuns        = regexp.MustCompile(` {2,}`)
	linkLine         = regexp.MustCompile(`^(?:• )?Link:`)
)

func compileAll(patterns []string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		res[i] = regexp.MustCompile(`(?im)` + p)
	}
	return res
}

// CompilePatterns compiles extra artifact patterns with the same flags as
// the built-in ones. An invalid pattern is a configuration error.
func CompilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(`(?im)` + p)
		if err != nil {
			return nil, types.ConfigErrorf("artifact pattern %q: %v", p, err)
		}
		res = append(res, re)
	}
	return res, nil
}

// Tidy removes model meta-text using the built-in patterns and extra,
// collapses runs of blank lines to a single blank line and runs of spaces
// to one space, and trims the result.
func Tidy(text string, extra []*regexp.Regexp) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	for _, re := range defaultArtifacts {
		text = re.ReplaceAllString(text, "")
	}
	for _, re := range extra {
		text = re.ReplaceAllString(text, "")
	}
	text = blankRuns.ReplaceAllString(text, "\n\n")
	text = spaceRuns.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// FormatHeadings promotes heading-like lines to Markdown headings. A line is
// promoted to "## " when it is one of phrases or is written in capitals
// (with at least three letters); "Link:" lines become "### ". Lines that
// already are headings, list items or page separators are left alone.
func FormatHeadings(text string, phrases []string) string {
	exact := make(map[string]bool, len(phrases))
	for _, p := range phrases {
		exact[strings.TrimSpace(p)] = true
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "", strings.HasPrefix(trimmed, "#"), strings.HasPrefix(trimmed, "---"):
		case linkLine.MatchString(trimmed):
			lines[i] = "### " + trimmed
		case exact[trimmed] || isCapsLine(trimmed):
			lines[i] = "## " + trimmed
		}
	}
	return blankRuns.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
}

// isCapsLine reports whether s looks like a section title set in capitals:
// it starts with a capital letter, has no lowercase letters and contains at
// least three letters.
func isCapsLine(s string) bool {
	letters := 0
	for i, r := range s {
		switch {
		case unicode.IsLower(r):
			return false
		case unicode.IsUpper(r):
			letters++
		case i == 0:
			return false
		case unicode.IsLetter(r):
			return false
		}
	}
	return letters >= 3
}

// CountMarker returns the number of occurrences of marker in text. An empty
// marker counts nothing.
func CountMarker(text, marker string) int {
	if marker == "" {
		return 0
	}
	return strings.Count(text, marker)
}

// Steps selects the passes ProcessDir applies.
type Steps struct {
	Tidy     bool
	Headings bool
}

// String names the selected passes for status output.
func (s Steps) String() string {
	var names []string
	if s.Tidy {
		names = append(names, "tidy")
	}
	if s.Headings {
		names = append(names, "headings")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "+")
}
