package scraper

import (
	"fmt"
	"net/url"
	"strings"
)

// publicationWindow restricts the index to listings published in the last day.
const publicationWindow = "1d"

// BuildJobsURL returns the index URL for one page:
//
//	{jobsURL}?category={category}&language={language}&publication=1d[&page=n]
//
// language is query-escaped, so "en,pt,es" becomes "en%2Cpt%2Ces". The page
// parameter is omitted for page 1.
func BuildJobsURL(jobsURL, category, language string, page int) string {
	u := fmt.Sprintf("%s?category=%s&language=%s&publication=%s",
		strings.TrimRight(jobsURL, "/"),
		url.QueryEscape(category),
		url.QueryEscape(language),
		publicationWindow,
	)
	if page > 1 {
		u += fmt.Sprintf("&page=%d", page)
	}
	return u
}
