// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package segment

import (
	"fmt"

	"github.com/pdiddy/pdf-cleanup-agent/pkg/types"
)

// SectionsFromTOC turns outline entries into page ranges. Only entries with
// Level <= depth start a section (depth <= 0 means 1). Each section ends the
// page before the next one starts; the last ends on the final page. Entries
// whose destination is unresolved or lies outside the document are dropped,
// and bounds are clamped so that 1 <= StartPage <= EndPage <= numPages.
func SectionsFromTOC(entries []types.TOCEntry, numPages, depth int) []types.Section {
	if depth <= 0 {
		depth = 1
	}
	if numPages <= 0 {
		return nil
	}

	type crumb struct {
		level int
		title string
	}
	var (
		stack    []crumb
		sections []types.Section
	)
	for _, e := range entries {
		for len(stack) > 0 && stack[len(stack)-1].level >= e.Level {
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, crumb{e.Level, e.Title})

		if e.Level > depth || e.Page < 1 || e.Page > numPages {
			continue
		}
		breadcrumb := make([]string, len(stack))
		for i, c := range stack {
			breadcrumb[i] = c.title
		}
		sections = append(sections, types.Section{
			Index:      len(sections),
			Title:      e.Title,
			Level:      e.Level,
			Breadcrumb: breadcrumb,
			StartPage:  e.Page,
			FromTOC:    true,
		})
	}

	for i := range sections {
		end := numPages
		if i+1 < len(sections) {
			end = sections[i+1].StartPage - 1
		}
		sections[i].EndPage = min(max(end, sections[i].StartPage), numPages)
	}
	return sections
}

// SectionsByPages splits numPages into windows of perSection pages.
func SectionsByPages(numPages, perSection int) []types.Section {
	if numPages <= 0 || perSection <= 0 {
		return nil
	}
	var sections []types.Section
	for start := 1; start <= numPages; start += perSection {
		end := min(start+perSection-1, numPages)
		title := fmt.Sprintf("Pages %d-%d", start, end)
		sections = append(sections, types.Section{
			Index:      len(sections),
			Title:      title,
			Level:      1,
			Breadcrumb: []string{title},
			StartPage:  start,
			EndPage:    end,
		})
	}
	return sections
}
