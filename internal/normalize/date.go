// Package normalize converts free-text listing values (relative dates,
// budgets, ratings) into typed values. Nothing in this package returns an
// error: text that cannot be understood becomes nil.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const day = 24 * time.Hour

var (
	publishedPrefix = regexp.MustCompile(`^published:\s*`)

	minutesAgo = regexp.MustCompile(`(\d+)\s*(?:minute|min)s?\s*ago`)
	hoursAgo   = regexp.MustCompile(`(\d+)\s*(?:hour|hr)s?\s*ago`)
	daysAgo    = regexp.MustCompile(`(\d+)\s*(?:day|d)s?\s*ago`)
	weeksAgo   = regexp.MustCompile(`(\d+)\s*(?:week|w)s?\s*ago`)
	monthsAgo  = regexp.MustCompile(`(\d+)\s*(?:month|mo)s?\s*ago`)
)

// absoluteLayouts are tried in order once no relative phrase matched.
// MM/DD wins over DD/MM when both would parse.
var absoluteLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
	"January 2, 2006",
}

// ParseRelativeDate turns strings such as "Published: 3 hours ago",
// "yesterday" or "2024-05-01" into a timestamp relative to now.
// A month is approximated as 30 days. Returns nil when nothing matches.
func ParseRelativeDate(text string, now time.Time) *time.Time {
	s := strings.ToLower(strings.TrimSpace(text))
	s = strings.TrimSpace(publishedPrefix.ReplaceAllString(s, ""))
	if s == "" {
		return nil
	}

	if strings.Contains(s, "just now") || s == "now" {
		return at(now.Add(-30 * time.Second))
	}
	if n, ok := leadingCount(minutesAgo, s); ok {
		return at(now.Add(-time.Duration(n) * time.Minute))
	}
	// Checked before "N hours ago", which would otherwise claim "almost 1 hour ago".
	if strings.Contains(s, "almost an hour ago") || strings.Contains(s, "almost 1 hour ago") {
		return at(now.Add(-90 * time.Minute))
	}
	if n, ok := leadingCount(hoursAgo, s); ok {
		return at(now.Add(-time.Duration(n) * time.Hour))
	}
	if n, ok := leadingCount(daysAgo, s); ok {
		return at(now.Add(-time.Duration(n) * day))
	}
	if strings.Contains(s, "yesterday") {
		return at(now.Add(-36 * time.Hour))
	}
	if n, ok := leadingCount(weeksAgo, s); ok {
		return at(now.Add(-time.Duration(7*n) * day))
	}
	if n, ok := leadingCount(monthsAgo, s); ok {
		return at(now.Add(-time.Duration(30*n) * day))
	}

	for _, layout := range absoluteLayouts {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return &t
		}
	}
	return nil
}

func leadingCount(re *regexp.Regexp, s string) (int, bool) {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func at(t time.Time) *time.Time { return &t }
