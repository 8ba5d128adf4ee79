package extract

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Page is one loaded index page cut into detached listing snapshots.
type Page struct {
	Fragments  []string // outerHTML of each listing, document order
	TotalPages int      // from the pagination control; 1 if absent
}

// SplitPage captures every listing's outerHTML once and reads the
// pagination control.
func (e *Extractor) SplitPage(html string) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Page{}, fmt.Errorf("extract: parse page: %w", err)
	}

	p := Page{TotalPages: e.totalPages(doc)}
	doc.Find(e.sel.Item).Each(func(_ int, s *goquery.Selection) {
		frag, err := goquery.OuterHtml(s)
		if err != nil || strings.TrimSpace(frag) == "" {
			return
		}
		p.Fragments = append(p.Fragments, frag)
	})
	return p, nil
}

// totalPages returns the highest numeric page link, or 1.
func (e *Extractor) totalPages(doc *goquery.Document) int {
	nav := doc.Find(e.sel.Pagination).First()
	if nav.Length() == 0 {
		return 1
	}
	highest := 0
	nav.Find(e.sel.PaginationPages).Each(func(_ int, a *goquery.Selection) {
		if n, err := strconv.Atoi(strings.TrimSpace(a.Text())); err == nil && n > highest {
			highest = n
		}
	})
	if highest < 1 {
		return 1
	}
	return highest
}
