// Package delivery routes newly stored listings to downstream consumers and
// records each confirmed delivery on the listing's flags.
package delivery

import (
	"strings"

	"jobmate/harvester-service/internal/model"
)

// ContainsRedFlag returns true if any red flag term appears (case-insensitive)
// anywhere in the combined title + client name + description text.
//
// Flagged listings are still stored and exported, but never notified.
func ContainsRedFlag(l model.Listing, redFlags []string) bool {
	if len(redFlags) == 0 {
		return false
	}
	combined := strings.ToLower(deref(l.Title) + " " + deref(l.ClientName) + " " + deref(l.Description))
	for _, flag := range redFlags {
		flag = strings.TrimSpace(flag)
		if flag == "" {
			continue
		}
		if strings.Contains(combined, strings.ToLower(flag)) {
			return true
		}
	}
	return false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
