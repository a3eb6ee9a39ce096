// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package segment splits a PDF rulebook into one text file per section. The
// sections follow the PDF outline when it has one and fixed page windows
// otherwise.
package segment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"
	"github.com/spf13/afero"

	"github.com/pdiddy/pdf-cleanup-agent/internal/fsutil"
	"github.com/pdiddy/pdf-cleanup-agent/internal/logging"
	"github.com/pdiddy/pdf-cleanup-agent/pkg/types"
)

// maxSlugLen caps the title part of a section file name.
const maxSlugLen = 50

// OrderFileSuffix is appended to the PDF stem to name its TOC order file.
const OrderFileSuffix = "-data-order.yml"

// SectionFile is one section written to disk.
type SectionFile struct {
	Section types.Section
	Path    string
	Pages   int // pages that contributed text
}

// Result describes one segmented PDF.
type Result struct {
	PDF       string
	OutputDir string
	FromTOC   bool
	Files     []SectionFile
	Empty     []types.Section // sections skipped for lack of text
	OrderFile string
}

// Segmenter writes section files for PDFs.
type Segmenter struct {
	fs              afero.Fs
	log             logging.Logger
	open            func(path string) (Source, error)
	fallback        PageExtractor
	pagesPerSection int
	tocDepth        int
	orderDir        string
}

// Option customizes a Segmenter.
type Option func(*Segmenter)

// WithFs sets the filesystem output files are written to.
func WithFs(fs afero.Fs) Option { return func(s *Segmenter) { s.fs = fs } }

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option { return func(s *Segmenter) { s.log = l } }

// WithOpener replaces the PDF reader.
func WithOpener(open func(path string) (Source, error)) Option {
	return func(s *Segmenter) { s.open = open }
}

// WithFallback sets an extractor consulted for pages the Source cannot read.
func WithFallback(pe PageExtractor) Option { return func(s *Segmenter) { s.fallback = pe } }

// WithOrderDir sets the directory the TOC order file is written to. Empty
// disables the order file.
func WithOrderDir(dir string) Option { return func(s *Segmenter) { s.orderDir = dir } }

// New returns a Segmenter from cfg.
func New(cfg types.SegmentationConfig, opts ...Option) *Segmenter {
	s := &Segmenter{
		fs:              afero.NewOsFs(),
		log:             logging.Discard(),
		open:            func(path string) (Source, error) { return OpenPDF(path) },
		pagesPerSection: cfg.PagesPerSection,
		tocDepth:        cfg.TOCDepth,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Segment splits the PDF at pdfPath into <outputDir>/<pdf-stem>/ section
// files. A document with no extractable text, or one without an outline
// when the page fallback is disabled, fails with types.ErrUnsupportedDocument
// and writes nothing.
func (s *Segmenter) Segment(ctx context.Context, pdfPath, outputDir string) (Result, error) {
	stem := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
	res := Result{PDF: pdfPath, OutputDir: filepath.Join(outputDir, stem)}

	src, err := s.open(pdfPath)
	if err != nil {
		return res, err
	}
	defer src.Close()

	numPages := src.NumPages()
	if numPages <= 0 {
		return res, fmt.Errorf("%w: %s has no pages", types.ErrUnsupportedDocument, pdfPath)
	}

	pages, err := s.extractPages(ctx, src, pdfPath, numPages)
	if err != nil {
		return res, err
	}

	entries, err := src.Outline()
	if err != nil {
		s.log.Warn("outline unreadable, ignoring it", "pdf", pdfPath, "err", err)
		entries = nil
	}
	sections := SectionsFromTOC(entries, numPages, s.tocDepth)
	res.FromTOC = len(sections) > 0
	if !res.FromTOC {
		if s.pagesPerSection <= 0 {
			return res, fmt.Errorf("%w: %s has no usable table of contents and page fallback is disabled",
				types.ErrUnsupportedDocument, pdfPath)
		}
		s.log.Info("no table of contents, splitting by pages", "pdf", pdfPath, "pages_per_section", s.pagesPerSection)
		sections = SectionsByPages(numPages, s.pagesPerSection)
	}

	order := types.TOCOrder{PDFName: stem}
	for _, sec := range sections {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		body, used := sectionBody(sec, pages)
		if used == 0 {
			s.log.Warn("no text in section, skipping", "pdf", pdfPath, "section", sec.Title,
				"start", sec.StartPage, "end", sec.EndPage)
			res.Empty = append(res.Empty, sec)
			continue
		}

		name := FileStem(sec)
		path := filepath.Join(res.OutputDir, name+".txt")
		content := "# " + strings.Join(sec.Breadcrumb, " > ") + "\n\n" + body
		if err := fsutil.WriteFileAtomic(s.fs, path, []byte(content)); err != nil {
			return res, err
		}
		res.Files = append(res.Files, SectionFile{Section: sec, Path: path, Pages: used})
		order.Entries = append(order.Entries, types.TOCOrderEntry{
			Level:    sec.Level,
			Title:    sec.Title,
			Page:     sec.StartPage,
			Filename: name,
		})
	}

	if s.orderDir != "" && len(order.Entries) > 0 {
		path := filepath.Join(s.orderDir, stem+OrderFileSuffix)
		if err := WriteOrder(s.fs, path, order); err != nil {
			return res, err
		}
		res.OrderFile = path
	}
	return res, nil
}

// extractPages reads every page once. pages[i] holds page i+1, trimmed.
func (s *Segmenter) extractPages(ctx context.Context, src Source, pdfPath string, numPages int) ([]string, error) {
	pages := make([]string, numPages)
	found := false
	for n := 1; n <= numPages; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := src.PageText(n)
		if err != nil {
			s.log.Warn("page extraction failed", "pdf", pdfPath, "page", n, "err", err)
		}
		if strings.TrimSpace(text) == "" && s.fallback != nil {
			alt, ferr := s.fallback.PageText(ctx, pdfPath, n)
			if ferr != nil {
				s.log.Debug("fallback extraction failed", "pdf", pdfPath, "page", n, "err", ferr)
			} else {
				text = alt
			}
		}
		pages[n-1] = strings.TrimSpace(text)
		if pages[n-1] != "" {
			found = true
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: no extractable text in %s", types.ErrUnsupportedDocument, pdfPath)
	}
	return pages, nil
}

// sectionBody joins the non-empty pages of sec with page separators and
// returns the number of pages used.
func sectionBody(sec types.Section, pages []string) (string, int) {
	var b strings.Builder
	used := 0
	for n := sec.StartPage; n <= sec.EndPage && n <= len(pages); n++ {
		text := pages[n-1]
		if text == "" {
			continue
		}
		if used > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "--- Page %d ---\n\n%s", n, text)
		used++
	}
	if used > 0 {
		b.WriteString("\n")
	}
	return b.String(), used
}

// FileStem returns the file name, without extension, used for sec.
// Outline sections are numbered so that lexical order is reading order.
func FileStem(sec types.Section) string {
	if !sec.FromTOC {
		return fmt.Sprintf("pages_%03d-%03d", sec.StartPage, sec.EndPage)
	}
	return fmt.Sprintf("%03d_%s", sec.Index+1, CleanName(sec.Title))
}

// CleanName reduces a title to a lowercase, underscore-separated ASCII name
// of at most 50 characters.
func CleanName(title string) string {
	name := strings.ReplaceAll(slug.Make(title), "-", "_")
	if len(name) > maxSlugLen {
		name = strings.TrimRight(name[:maxSlugLen], "_")
	}
	if name == "" {
		return "section"
	}
	return name
}

// BatchSummary holds counts from segmenting several PDFs.
type BatchSummary struct {
	Segmented int
	Failed    int
	Sections  int
}

// Total returns the number of PDFs processed.
func (s BatchSummary) Total() int { return s.Segmented + s.Failed }

// HasFailures reports whether any PDF failed.
func (s BatchSummary) HasFailures() bool { return s.Failed > 0 }

// SegmentBatch segments each PDF in turn, writing one status line per PDF
// and a summary to w. Failures are counted and the batch continues unless
// ctx is cancelled.
func (s *Segmenter) SegmentBatch(ctx context.Context, pdfPaths []string, outputDir string, w io.Writer) (BatchSummary, error) {
	var summary BatchSummary
	for _, p := range pdfPaths {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		fmt.Fprintf(w, "segmenting %s\n", p)
		res, err := s.Segment(ctx, p, outputDir)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", p, err)
			summary.Failed++
			if errors.Is(err, context.Canceled) {
				return summary, err
			}
			continue
		}
		mode := "pages"
		if res.FromTOC {
			mode = "toc"
		}
		fmt.Fprintf(w, "segmented %s (%d sections, %s) -> %s\n", p, len(res.Files), mode, res.OutputDir)
		summary.Segmented++
		summary.Sections += len(res.Files)
	}
	fmt.Fprintf(w, "\nsegmented: %d, failed: %d, sections: %d\n", summary.Segmented, summary.Failed, summary.Sections)
	return summary, nil
}
