// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package segment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pdf-cleanup-agent/pkg/types"
)

// fakeSource is an in-memory Source.
type fakeSource struct {
	pages      []string
	outline    []types.TOCEntry
	outlineErr error
	pageErr    map[int]error
	closed     bool
}

func (f *fakeSource) NumPages() int { return len(f.pages) }

func (f *fakeSource) PageText(n int) (string, error) {
	if err := f.pageErr[n]; err != nil {
		return "", err
	}
	return f.pages[n-1], nil
}

func (f *fakeSource) Outline() ([]types.TOCEntry, error) { return f.outline, f.outlineErr }

func (f *fakeSource) Close() error {
	f.closed = true
	return nil
}

func numberedPages(n int) []string {
	pages := make([]string, n)
	for i := range pages {
		pages[i] = fmt.Sprintf("text of page %d", i+1)
	}
	return pages
}

func newTestSegmenter(src Source, cfg types.SegmentationConfig, opts ...Option) (*Segmenter, afero.Fs) {
	fs := afero.NewMemMapFs()
	opts = append([]Option{
		WithFs(fs),
		WithOpener(func(string) (Source, error) { return src, nil }),
		WithOrderDir("yml"),
	}, opts...)
	return New(cfg, opts...), fs
}

func TestSectionsFromTOC_ThreeEntries(t *testing.T) {
	entries := []types.TOCEntry{
		{Level: 1, Title: "Intro", Page: 1},
		{Level: 1, Title: "Combat", Page: 10},
		{Level: 1, Title: "Magic", Page: 20},
	}
	got := SectionsFromTOC(entries, 30, 1)
	require.Len(t, got, 3)

	bounds := [][2]int{{1, 9}, {10, 19}, {20, 30}}
	for i, sec := range got {
		assert.Equal(t, i, sec.Index)
		assert.Equal(t, bounds[i][0], sec.StartPage, sec.Title)
		assert.Equal(t, bounds[i][1], sec.EndPage, sec.Title)
		assert.True(t, sec.FromTOC)
	}
}

func TestSectionsFromTOC_DepthAndBreadcrumb(t *testing.T) {
	entries := []types.TOCEntry{
		{Level: 1, Title: "Rules", Page: 1},
		{Level: 2, Title: "Combat", Page: 3},
		{Level: 3, Title: "Initiative", Page: 4},
		{Level: 1, Title: "Appendix", Page: 8},
	}

	top := SectionsFromTOC(entries, 10, 1)
	require.Len(t, top, 2)
	assert.Equal(t, 7, top[0].EndPage)

	deep := SectionsFromTOC(entries, 10, 3)
	require.Len(t, deep, 4)
	assert.Equal(t, []string{"Rules", "Combat", "Initiative"}, deep[2].Breadcrumb)
	assert.Equal(t, []string{"Appendix"}, deep[3].Breadcrumb)
	assert.Equal(t, 3, deep[1].StartPage)
	assert.Equal(t, 3, deep[1].EndPage)

	assert.Len(t, SectionsFromTOC(entries, 10, 0), 2, "depth 0 means top level only")
}

func TestSectionsFromTOC_ClampsAndDrops(t *testing.T) {
	entries := []types.TOCEntry{
		{Level: 1, Title: "Unresolved", Page: 0},
		{Level: 1, Title: "A", Page: 2},
		{Level: 1, Title: "Same page", Page: 2},
		{Level: 1, Title: "Backwards", Page: 1},
		{Level: 1, Title: "Beyond", Page: 99},
	}
	got := SectionsFromTOC(entries, 5, 1)
	require.Len(t, got, 3)
	for _, sec := range got {
		assert.GreaterOrEqual(t, sec.EndPage, sec.StartPage, sec.Title)
		assert.GreaterOrEqual(t, sec.StartPage, 1)
		assert.LessOrEqual(t, sec.EndPage, 5)
	}
	assert.Equal(t, "Backwards", got[2].Title)
	assert.Equal(t, 5, got[2].EndPage)

	assert.Empty(t, SectionsFromTOC(entries, 0, 1))
}

func TestSectionsByPages(t *testing.T) {
	got := SectionsByPages(25, 10)
	require.Len(t, got, 3)
	assert.Equal(t, 21, got[2].StartPage)
	assert.Equal(t, 25, got[2].EndPage)
	assert.Equal(t, "Pages 21-25", got[2].Title)
	assert.Nil(t, SectionsByPages(25, 0))
}

func TestCleanName(t *testing.T) {
	assert.Equal(t, "combat_and_magic", CleanName("Combat & Magic"))
	assert.Equal(t, "chapter_1_getting_started", CleanName("Chapter 1: Getting Started!"))
	assert.Equal(t, "section", CleanName("!!!"))
	assert.LessOrEqual(t, len(CleanName(strings.Repeat("long title ", 20))), 50)
}

func TestSegment_ByTOC(t *testing.T) {
	src := &fakeSource{
		pages: numberedPages(30),
		outline: []types.TOCEntry{
			{Level: 1, Title: "Intro", Page: 1},
			{Level: 1, Title: "Combat", Page: 10},
			{Level: 1, Title: "Magic", Page: 20},
		},
	}
	s, fs := newTestSegmenter(src, types.SegmentationConfig{TOCDepth: 1})

	res, err := s.Segment(context.Background(), "pdf/Core Rules.pdf", "txt")
	require.NoError(t, err)
	assert.True(t, res.FromTOC)
	require.Len(t, res.Files, 3)
	assert.True(t, src.closed)

	path := filepath.Join("txt", "Core Rules", "002_combat.txt")
	assert.Equal(t, path, res.Files[1].Path)
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.HasPrefix(content, "# Combat\n\n--- Page 10 ---\n\ntext of page 10"), content)
	assert.Contains(t, content, "--- Page 19 ---")
	assert.NotContains(t, content, "--- Page 20 ---")
	assert.Equal(t, 10, res.Files[1].Pages)

	order, err := ReadOrder(fs, filepath.Join("yml", "Core Rules"+OrderFileSuffix))
	require.NoError(t, err)
	assert.Equal(t, "Core Rules", order.PDFName)
	require.Len(t, order.Entries, 3)
	assert.Equal(t, types.TOCOrderEntry{Level: 1, Title: "Magic", Page: 20, Filename: "003_magic"}, order.Entries[2])
}

func TestSegment_PageFallback(t *testing.T) {
	src := &fakeSource{pages: numberedPages(12)}
	s, fs := newTestSegmenter(src, types.SegmentationConfig{PagesPerSection: 5})

	res, err := s.Segment(context.Background(), "book.pdf", "out")
	require.NoError(t, err)
	assert.False(t, res.FromTOC)
	require.Len(t, res.Files, 3)

	data, err := afero.ReadFile(fs, filepath.Join("out", "book", "pages_011-012.txt"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# Pages 11-12\n\n"))
}

func TestSegment_NoTOCAndFallbackDisabled(t *testing.T) {
	src := &fakeSource{pages: numberedPages(3)}
	s, fs := newTestSegmenter(src, types.SegmentationConfig{PagesPerSection: 0})

	_, err := s.Segment(context.Background(), "book.pdf", "out")
	assert.ErrorIs(t, err, types.ErrUnsupportedDocument)
	exists, _ := afero.DirExists(fs, filepath.Join("out", "book"))
	assert.False(t, exists)
}

func TestSegment_NoExtractableText(t *testing.T) {
	src := &fakeSource{
		pages:   []string{"", "  \n", ""},
		outline: []types.TOCEntry{{Level: 1, Title: "Scanned", Page: 1}},
	}
	s, fs := newTestSegmenter(src, types.SegmentationConfig{PagesPerSection: 10})

	_, err := s.Segment(context.Background(), "scan.pdf", "out")
	assert.ErrorIs(t, err, types.ErrUnsupportedDocument)
	exists, _ := afero.Exists(fs, filepath.Join("yml", "scan"+OrderFileSuffix))
	assert.False(t, exists)
}

func TestSegment_SkipsEmptySections(t *testing.T) {
	pages := numberedPages(6)
	pages[2], pages[3] = "", ""
	src := &fakeSource{
		pages: pages,
		outline: []types.TOCEntry{
			{Level: 1, Title: "One", Page: 1},
			{Level: 1, Title: "Blank", Page: 3},
			{Level: 1, Title: "Two", Page: 5},
		},
	}
	s, _ := newTestSegmenter(src, types.SegmentationConfig{})

	res, err := s.Segment(context.Background(), "b.pdf", "out")
	require.NoError(t, err)
	assert.Len(t, res.Files, 2)
	require.Len(t, res.Empty, 1)
	assert.Equal(t, "Blank", res.Empty[0].Title)
}

type stubExtractor struct{ text string }

func (s stubExtractor) PageText(context.Context, string, int) (string, error) { return s.text, nil }

func TestSegment_FallbackExtractor(t *testing.T) {
	src := &fakeSource{
		pages:   []string{"", "page two"},
		pageErr: map[int]error{1: errors.New("bad font")},
	}
	s, fs := newTestSegmenter(src, types.SegmentationConfig{PagesPerSection: 10},
		WithFallback(stubExtractor{text: "recovered"}))

	res, err := s.Segment(context.Background(), "f.pdf", "out")
	require.NoError(t, err)
	data, err := afero.ReadFile(fs, res.Files[0].Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "--- Page 1 ---\n\nrecovered")
	assert.Contains(t, string(data), "--- Page 2 ---\n\npage two")
}

func TestSegment_OutlineErrorFallsBackToPages(t *testing.T) {
	src := &fakeSource{pages: numberedPages(4), outlineErr: errors.New("broken outline")}
	s, _ := newTestSegmenter(src, types.SegmentationConfig{PagesPerSection: 2})

	res, err := s.Segment(context.Background(), "x.pdf", "out")
	require.NoError(t, err)
	assert.False(t, res.FromTOC)
	assert.Len(t, res.Files, 2)
}

func TestSegmentBatch(t *testing.T) {
	good := &fakeSource{pages: numberedPages(2)}
	fs := afero.NewMemMapFs()
	s := New(types.SegmentationConfig{PagesPerSection: 10},
		WithFs(fs),
		WithOpener(func(path string) (Source, error) {
			if strings.Contains(path, "missing") {
				return nil, fmt.Errorf("opening %s: %w", path, os.ErrNotExist)
			}
			return good, nil
		}))

	var buf bytes.Buffer
	summary, err := s.SegmentBatch(context.Background(), []string{"a.pdf", "missing.pdf"}, "out", &buf)
	require.NoError(t, err)
	assert.Equal(t, BatchSummary{Segmented: 1, Failed: 1, Sections: 1}, summary)
	assert.True(t, summary.HasFailures())
	assert.Equal(t, 2, summary.Total())
	assert.Contains(t, buf.String(), "failed  missing.pdf")
}

func TestOpenPDF_Missing(t *testing.T) {
	_, err := OpenPDF(filepath.Join(t.TempDir(), "nope.pdf"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpenPDF_NotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.pdf")
	require.NoError(t, os.WriteFile(path, []byte("this is not a pdf"), 0o644))

	_, err := OpenPDF(path)
	assert.ErrorIs(t, err, types.ErrUnsupportedDocument)
}
