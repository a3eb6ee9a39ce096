// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package vtt exports a directory of cleaned Markdown as a Foundry VTT
// JournalEntry: one text page per section file, rendered to HTML, in the
// book's reading order.
package vtt

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SortStep is the gap between consecutive page sort keys. Foundry orders
// pages by sort; the gap leaves room to insert pages by hand.
const SortStep = 100000

// FormatHTML is Foundry's text.format value for HTML page content.
const FormatHTML = 1

// Journal is a Foundry VTT JournalEntry document.
type Journal struct {
	Name       string   `json:"name"`
	Pages      []Page   `json:"pages"`
	Folder     *string  `json:"folder"`
	Categories []string `json:"categories"`
}

// Page is one journal page.
type Page struct {
	Sort     int            `json:"sort"`
	Name     string         `json:"name"`
	Type     string         `json:"type"`
	System   map[string]any `json:"system"`
	Title    PageTitle      `json:"title"`
	Image    map[string]any `json:"image"`
	Text     PageText       `json:"text"`
	Video    PageVideo      `json:"video"`
	Src      *string        `json:"src"`
	Category *string        `json:"category"`
}

type PageTitle struct {
	Show  bool `json:"show"`
	Level int  `json:"level"`
}

type PageText struct {
	Format  int    `json:"format"`
	Content string `json:"content"`
}

type PageVideo struct {
	Controls bool    `json:"controls"`
	Volume   float64 `json:"volume"`
}

// PageSource is the Markdown for one page.
type PageSource struct {
	Name     string
	Markdown string
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Render converts Markdown to HTML. Raw HTML in the input is dropped.
func Render(src string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// BuildJournal renders pages in order into a journal named name.
func BuildJournal(name string, pages []PageSource) (Journal, error) {
	j := Journal{
		Name:       name,
		Pages:      make([]Page, 0, len(pages)),
		Categories: []string{},
	}
	for i, src := range pages {
		html, err := Render(src.Markdown)
		if err != nil {
			return Journal{}, fmt.Errorf("page %q: %w", src.Name, err)
		}
		j.Pages = append(j.Pages, Page{
			Sort:   (i + 1) * SortStep,
			Name:   src.Name,
			Type:   "text",
			System: map[string]any{},
			Title:  PageTitle{Show: true, Level: 1},
			Image:  map[string]any{},
			Text:   PageText{Format: FormatHTML, Content: html},
			Video:  PageVideo{Controls: true, Volume: 0.5},
		})
	}
	return j, nil
}

var numberPrefix = regexp.MustCompile(`^\d+_`)

// DisplayName turns a file or directory stem such as "002_the_big_apple"
// into "The Big Apple".
func DisplayName(stem string) string {
	s := numberPrefix.ReplaceAllString(stem, "")
	s = strings.Join(strings.Fields(strings.ReplaceAll(s, "_", " ")), " ")
	if s == "" {
		return stem
	}
	return cases.Title(language.English).String(s)
}
