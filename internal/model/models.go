// Package model defines shared data structures for the harvester service.
package model

import "time"

// BudgetType classifies how a listing is paid.
type BudgetType string

const (
	BudgetFixed   BudgetType = "fixed"
	BudgetHourly  BudgetType = "hourly"
	BudgetUnknown BudgetType = "unknown"
)

// Listing is one job posting as stored in the listings table.
// Optional fields are pointers; nil means the value was absent at
// extraction time. An empty ID means no id could be derived.
type Listing struct {
	ID          string  `json:"id"`
	Title       *string `json:"title,omitempty"`
	URL         string  `json:"url"`
	Description *string `json:"description,omitempty"`

	PostedRelative *string    `json:"postedRelative,omitempty"`
	PostedAt       *time.Time `json:"postedAt,omitempty"`

	BidsCount *int `json:"bidsCount,omitempty"`

	BudgetRaw  *string    `json:"budgetRaw,omitempty"`
	BudgetMin  *float64   `json:"budgetMin,omitempty"`
	BudgetMax  *float64   `json:"budgetMax,omitempty"`
	BudgetType BudgetType `json:"budgetType"`

	Skills []string `json:"skills"` // display order

	ClientName            *string  `json:"clientName,omitempty"`
	ClientCountry         *string  `json:"clientCountry,omitempty"`
	ClientRating          *float64 `json:"clientRating,omitempty"`
	ClientPaymentVerified bool     `json:"clientPaymentVerified"`
	ClientLastReply       *string  `json:"clientLastReply,omitempty"`

	IsFeatured    bool `json:"isFeatured"`
	IsHighlighted bool `json:"isHighlighted"` // "max project" badge

	FirstSeenAt time.Time `json:"firstSeenAt"`
	LastSeenAt  time.Time `json:"lastSeenAt"`
	ScrapedAt   time.Time `json:"scrapedAt"`

	Sent       bool       `json:"sent"`
	SentAt     *time.Time `json:"sentAt,omitempty"`
	Exported   bool       `json:"exported"`
	ExportedAt *time.Time `json:"exportedAt,omitempty"`
}

// DedupKey returns the composite "id|client_name" key for the listing.
func (l Listing) DedupKey() string {
	return DedupKey(l.ID, deref(l.ClientName))
}

// DedupKey builds the composite key used to recognise the same posting by
// the same author across crawls. The same id can reappear under a
// different client on repost, so the id alone is not enough.
func DedupKey(id, clientName string) string {
	return id + "|" + clientName
}

// StopReason records why a crawl session ended.
type StopReason string

const (
	StopExhaustedPages StopReason = "exhausted-pages"
	StopHitKnownJob    StopReason = "hit-known-job"
	StopPageLimit      StopReason = "page-limit"
	StopLoadFailure    StopReason = "load-failure"
	StopCancelled      StopReason = "cancelled"
)

// SessionRecord is one immutable row of the sessions audit table.
type SessionRecord struct {
	ID         int64         `json:"id,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
	JobsFound  int           `json:"jobsFound"`
	NewCount   int           `json:"newCount"`
	Pages      int           `json:"pages"`
	Duration   time.Duration `json:"duration"`
	Category   string        `json:"category"`
	Language   string        `json:"language"`
	StopReason StopReason    `json:"stopReason,omitempty"`
}

// Statistics summarises the store.
type Statistics struct {
	Total         int `json:"total"`
	NewInLast24h  int `json:"newInLast24h"`
	TotalSessions int `json:"totalSessions"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
