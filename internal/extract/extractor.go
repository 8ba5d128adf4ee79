// Package extract turns listing markup into model.Listing values.
//
// Pages are split into per-listing outerHTML snapshots first, and each
// snapshot is parsed as its own document. Nothing here touches a live page,
// so a page that re-renders mid-crawl cannot change a listing half-way
// through its extraction.
package extract

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"jobmate/harvester-service/internal/model"
	"jobmate/harvester-service/internal/normalize"
)

// ErrEmptyFragment is returned by Extract for blank input.
var ErrEmptyFragment = errors.New("extract: empty listing fragment")

// Config configures an Extractor.
type Config struct {
	BaseURL   string
	Selectors Selectors
	Now       func() time.Time // clock for relative dates; default time.Now
}

// Extractor extracts listings using fallback chains built from Selectors.
type Extractor struct {
	sel   Selectors
	base  *url.URL
	hosts []string
	now   func() time.Time

	title, href, date, bids, description, budget Chain
	clientName, clientCountry, clientRating      Chain
	lastReply                                    Chain
}

// New builds an Extractor. Zero-valued selectors fall back to DefaultSelectors.
func New(cfg Config) *Extractor {
	if cfg.Selectors.Item == "" {
		cfg.Selectors = DefaultSelectors()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	base, _ := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")

	s := cfg.Selectors
	return &Extractor{
		sel:   s,
		base:  base,
		hosts: hostVariants(cfg.BaseURL),
		now:   cfg.Now,

		title:       TextChain(s.TitleLink...),
		href:        AttrChain("href", s.TitleLink...),
		date:        TextChain(s.Date...),
		bids:        TextChain(s.Bids...),
		description: TextChain(s.Description...),
		budget:      TextChain(s.Budget...),

		clientName:    TextChain(s.ClientName...),
		clientCountry: TextChain(s.ClientCountry...),
		clientRating:  AttrChain("title", s.ClientRating...),
		lastReply:     TextChain(s.LastReply...),
	}
}

// Extract parses one listing snapshot. Every field is independent: a
// missing element leaves that field nil (or false) and never fails the
// record. ID is empty when no link could be resolved.
func (e *Extractor) Extract(fragment string) (model.Listing, error) {
	if strings.TrimSpace(fragment) == "" {
		return model.Listing{}, ErrEmptyFragment
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return model.Listing{}, fmt.Errorf("extract: parse fragment: %w", err)
	}

	root := doc.Find(e.sel.Item).First()
	if root.Length() == 0 {
		root = doc.Selection
	}

	l := model.Listing{
		Skills:     e.skills(root),
		BudgetType: model.BudgetUnknown,
	}

	l.Title = optional(e.title.First(root))
	if href, ok := e.href.First(root); ok {
		l.URL = e.absolute(href)
		l.ID = JobIDFromURL(l.URL, e.hosts...)
	}

	if raw, ok := e.date.First(root); ok {
		rel := strings.TrimSpace(stripLabel(raw, "published:"))
		if rel != "" {
			l.PostedRelative = &rel
			l.PostedAt = normalize.ParseRelativeDate(rel, e.now())
		}
	}

	if raw, ok := e.bids.First(root); ok {
		l.BidsCount = normalize.FirstInt(raw)
	}

	l.Description = optional(e.description.First(root))

	if raw, ok := e.budget.First(root); ok {
		b := normalize.ParseBudget(raw)
		l.BudgetRaw = &raw
		l.BudgetMin, l.BudgetMax, l.BudgetType = b.Min, b.Max, b.Type
	}

	l.IsHighlighted = e.sel.MaxBadge != "" && root.Find(e.sel.MaxBadge).Length() > 0
	l.IsFeatured = e.sel.FeaturedClass != "" && root.HasClass(e.sel.FeaturedClass)

	e.client(root, &l)
	return l, nil
}

func (e *Extractor) client(root *goquery.Selection, l *model.Listing) {
	// Renders without the author block still carry loose client markup.
	section := root
	if e.sel.ClientSection != "" {
		if found := root.Find(e.sel.ClientSection).First(); found.Length() > 0 {
			section = found
		}
	}

	l.ClientName = optional(e.clientName.First(section))
	l.ClientCountry = optional(e.clientCountry.First(section))
	if title, ok := e.clientRating.First(section); ok {
		l.ClientRating = normalize.ParseRating(title)
	}
	l.ClientPaymentVerified = e.sel.PaymentVerified != "" &&
		section.Find(e.sel.PaymentVerified).Length() > 0

	if raw, ok := e.lastReply.First(section); ok {
		// "Last reply: 2 hours ago" -> "2 hours ago"
		if _, after, found := strings.Cut(raw, ":"); found {
			raw = strings.TrimSpace(after)
		}
		if raw != "" {
			l.ClientLastReply = &raw
		}
	}
}

func (e *Extractor) skills(root *goquery.Selection) []string {
	skills := make([]string, 0)
	if e.sel.Skills == "" {
		return skills
	}
	root.Find(e.sel.Skills).Each(func(_ int, s *goquery.Selection) {
		if v := cleanText(s.Text()); v != "" {
			skills = append(skills, v)
		}
	})
	return skills
}

func (e *Extractor) absolute(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil || e.base == nil {
		return href
	}
	return e.base.ResolveReference(ref).String()
}

func optional(v string, ok bool) *string {
	if !ok {
		return nil
	}
	return &v
}

// stripLabel removes a leading case-insensitive label such as "Published:".
func stripLabel(s, label string) string {
	if len(s) >= len(label) && strings.EqualFold(s[:len(label)], label) {
		return s[len(label):]
	}
	return s
}
