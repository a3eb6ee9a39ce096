// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package segment

import (
	"fmt"
	"os"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/pdiddy/pdf-cleanup-agent/pkg/types"
)

// maxOutlineEntries bounds the outline walk against cyclic Next/First links.
const maxOutlineEntries = 10000

// Source is a paginated document with an optional outline.
type Source interface {
	NumPages() int

	// PageText returns the text of page n (1-based).
	PageText(n int) (string, error)

	// Outline returns the table of contents in document order, or nil when
	// the document has none.
	Outline() ([]types.TOCEntry, error)

	Close() error
}

// PDF is a Source backed by github.com/ledongthuc/pdf. The library panics
// on some malformed files; every entry point converts that into an error.
type PDF struct {
	f *os.File
	r *pdflib.Reader

	// pages maps a page object's serialized form to its page number.
	pages map[string]int
}

// OpenPDF opens the PDF at path.
func OpenPDF(path string) (p *PDF, err error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: parsing %s: %v", types.ErrUnsupportedDocument, path, r)
		}
	}()

	f, r, err := pdflib.Open(path)
	if err != nil {
		if f != nil {
			f.Close()
		}
		return nil, fmt.Errorf("%w: parsing %s: %v", types.ErrUnsupportedDocument, path, err)
	}
	return &PDF{f: f, r: r}, nil
}

// NumPages returns the page count.
func (p *PDF) NumPages() int {
	return p.r.NumPage()
}

// PageText extracts the plain text of page n.
func (p *PDF) PageText(n int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extracting page %d: %v", n, r)
		}
	}()

	page := p.r.Page(n)
	if page.V.IsNull() {
		return "", nil
	}
	text, err = page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("extracting page %d: %w", n, err)
	}
	return text, nil
}

// Outline walks the document outline. Entries whose destination cannot be
// resolved to a page carry Page 0.
func (p *PDF) Outline() (entries []types.TOCEntry, err error) {
	defer func() {
		if r := recover(); r != nil {
			entries, err = nil, fmt.Errorf("reading outline: %v", r)
		}
	}()

	root := p.r.Trailer().Key("Root")
	outlines := root.Key("Outlines")
	if outlines.IsNull() {
		return nil, nil
	}
	p.indexPages()

	var walk func(item pdflib.Value, level int)
	walk = func(item pdflib.Value, level int) {
		for ; !item.IsNull() && len(entries) < maxOutlineEntries; item = item.Key("Next") {
			entries = append(entries, types.TOCEntry{
				Level: level,
				Title: strings.TrimSpace(item.Key("Title").Text()),
				Page:  p.destPage(root, item),
			})
			if kid := item.Key("First"); !kid.IsNull() {
				walk(kid, level+1)
			}
		}
	}
	walk(outlines.Key("First"), 1)
	return entries, nil
}

// Close releases the underlying file.
func (p *PDF) Close() error {
	return p.f.Close()
}

func (p *PDF) indexPages() {
	if p.pages != nil {
		return
	}
	p.pages = make(map[string]int, p.r.NumPage())
	for i := 1; i <= p.r.NumPage(); i++ {
		key := p.r.Page(i).V.String()
		if _, dup := p.pages[key]; !dup {
			p.pages[key] = i
		}
	}
}

// destPage resolves an outline item's /Dest, or the /D of a GoTo action.
func (p *PDF) destPage(root, item pdflib.Value) int {
	dest := item.Key("Dest")
	if dest.IsNull() {
		if action := item.Key("A"); action.Key("S").Name() == "GoTo" {
			dest = action.Key("D")
		}
	}
	return p.resolveDest(root, dest, 0)
}

func (p *PDF) resolveDest(root, dest pdflib.Value, depth int) int {
	if depth > 4 {
		return 0
	}
	switch dest.Kind() {
	case pdflib.Array:
		if dest.Len() == 0 {
			return 0
		}
		target := dest.Index(0)
		switch target.Kind() {
		case pdflib.Integer:
			// Remote destinations carry a zero-based page index.
			return int(target.Int64()) + 1
		case pdflib.Dict:
			return p.pages[target.String()]
		}
	case pdflib.Dict:
		return p.resolveDest(root, dest.Key("D"), depth+1)
	case pdflib.Name:
		return p.resolveDest(root, root.Key("Dests").Key(dest.Name()), depth+1)
	case pdflib.String:
		named := lookupNameTree(root.Key("Names").Key("Dests"), dest.RawString(), 0)
		return p.resolveDest(root, named, depth+1)
	}
	return 0
}

// lookupNameTree finds key in a PDF name tree.
func lookupNameTree(node pdflib.Value, key string, depth int) pdflib.Value {
	if node.IsNull() || depth > 32 {
		return pdflib.Value{}
	}
	if names := node.Key("Names"); names.Kind() == pdflib.Array {
		for i := 0; i+1 < names.Len(); i += 2 {
			if names.Index(i).RawString() == key {
				return names.Index(i + 1)
			}
		}
	}
	kids := node.Key("Kids")
	for i := 0; i < kids.Len(); i++ {
		if v := lookupNameTree(kids.Index(i), key, depth+1); !v.IsNull() {
			return v
		}
	}
	return pdflib.Value{}
}
