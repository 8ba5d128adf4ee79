package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Strategy pulls one optional string out of a markup fragment.
type Strategy func(s *goquery.Selection) (string, bool)

// Chain is an ordered list of strategies for one field.
type Chain []Strategy

// First evaluates the chain in order and stops at the first non-empty result.
func (c Chain) First(s *goquery.Selection) (string, bool) {
	for _, strategy := range c {
		if v, ok := strategy(s); ok {
			return v, true
		}
	}
	return "", false
}

// Text matches the first element for selector and returns its trimmed text.
func Text(selector string) Strategy {
	return func(s *goquery.Selection) (string, bool) {
		v := cleanText(s.Find(selector).First().Text())
		return v, v != ""
	}
}

// Attr matches the first element for selector and returns an attribute.
func Attr(selector, attr string) Strategy {
	return func(s *goquery.Selection) (string, bool) {
		v, ok := s.Find(selector).First().Attr(attr)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}
}

// TextChain builds a chain of Text strategies, one per selector.
func TextChain(selectors ...string) Chain {
	c := make(Chain, 0, len(selectors))
	for _, sel := range selectors {
		c = append(c, Text(sel))
	}
	return c
}

// AttrChain builds a chain of Attr strategies reading the same attribute.
func AttrChain(attr string, selectors ...string) Chain {
	c := make(Chain, 0, len(selectors))
	for _, sel := range selectors {
		c = append(c, Attr(sel, attr))
	}
	return c
}

// cleanText collapses runs of whitespace, as rendered text would.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
