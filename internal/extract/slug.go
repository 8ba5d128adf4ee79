package extract

import (
	"regexp"
	"strings"
)

var jobSlug = regexp.MustCompile(`/job/([^/?]+)`)

// JobIDFromURL derives the stable listing id from its URL:
//
//	https://www.workana.com/job/build-a-webhook?ref=home -> build-a-webhook
//
// Without a /job/ segment the last non-empty path segment is used.
// hostPrefixes are stripped first.
func JobIDFromURL(rawURL string, hostPrefixes ...string) string {
	u := strings.TrimSpace(rawURL)
	if u == "" {
		return ""
	}
	for _, p := range hostPrefixes {
		if p != "" {
			u = strings.ReplaceAll(u, p, "")
		}
	}

	if m := jobSlug.FindStringSubmatch(u); m != nil {
		return m[1]
	}

	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	parts := strings.Split(strings.Trim(u, "/"), "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] != "" {
			return parts[i]
		}
	}
	return ""
}

// hostVariants returns the http and https forms of baseURL's host prefix.
func hostVariants(baseURL string) []string {
	b := strings.TrimRight(baseURL, "/")
	if b == "" {
		return nil
	}
	host := strings.TrimPrefix(strings.TrimPrefix(b, "https://"), "http://")
	return []string{"https://" + host, "http://" + host}
}
