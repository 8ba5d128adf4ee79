package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"jobmate/harvester-service/internal/model"
)

const listingColumns = `id, title, url, description, posted_relative, posted_at, bids_count,
	budget_raw, budget_min, budget_max, budget_type, skills,
	client_name, client_country, client_rating, client_payment_verified, client_last_reply,
	is_featured, is_highlighted, first_seen_at, last_seen_at, scraped_at,
	sent_flag, sent_at, exported_flag, exported_at`

// listingRow is the storage shape of model.Listing.
type listingRow struct {
	ID             string          `db:"id"`
	Title          sql.NullString  `db:"title"`
	URL            string          `db:"url"`
	Description    sql.NullString  `db:"description"`
	PostedRelative sql.NullString  `db:"posted_relative"`
	PostedAt       sql.NullInt64   `db:"posted_at"`
	BidsCount      sql.NullInt64   `db:"bids_count"`
	BudgetRaw      sql.NullString  `db:"budget_raw"`
	BudgetMin      sql.NullFloat64 `db:"budget_min"`
	BudgetMax      sql.NullFloat64 `db:"budget_max"`
	BudgetType     string          `db:"budget_type"`
	Skills         string          `db:"skills"`

	ClientName            sql.NullString  `db:"client_name"`
	ClientCountry         sql.NullString  `db:"client_country"`
	ClientRating          sql.NullFloat64 `db:"client_rating"`
	ClientPaymentVerified bool            `db:"client_payment_verified"`
	ClientLastReply       sql.NullString  `db:"client_last_reply"`

	IsFeatured    bool `db:"is_featured"`
	IsHighlighted bool `db:"is_highlighted"`

	FirstSeenAt int64 `db:"first_seen_at"`
	LastSeenAt  int64 `db:"last_seen_at"`
	ScrapedAt   int64 `db:"scraped_at"`

	SentFlag     bool          `db:"sent_flag"`
	SentAt       sql.NullInt64 `db:"sent_at"`
	ExportedFlag bool          `db:"exported_flag"`
	ExportedAt   sql.NullInt64 `db:"exported_at"`
}

func (r listingRow) toModel() (model.Listing, error) {
	l := model.Listing{
		ID:                    r.ID,
		Title:                 nullString(r.Title),
		URL:                   r.URL,
		Description:           nullString(r.Description),
		PostedRelative:        nullString(r.PostedRelative),
		PostedAt:              nullTime(r.PostedAt),
		BudgetRaw:             nullString(r.BudgetRaw),
		BudgetMin:             nullFloat(r.BudgetMin),
		BudgetMax:             nullFloat(r.BudgetMax),
		BudgetType:            model.BudgetType(r.BudgetType),
		ClientName:            nullString(r.ClientName),
		ClientCountry:         nullString(r.ClientCountry),
		ClientRating:          nullFloat(r.ClientRating),
		ClientPaymentVerified: r.ClientPaymentVerified,
		ClientLastReply:       nullString(r.ClientLastReply),
		IsFeatured:            r.IsFeatured,
		IsHighlighted:         r.IsHighlighted,
		FirstSeenAt:           fromMillis(r.FirstSeenAt),
		LastSeenAt:            fromMillis(r.LastSeenAt),
		ScrapedAt:             fromMillis(r.ScrapedAt),
		Sent:                  r.SentFlag,
		SentAt:                nullTime(r.SentAt),
		Exported:              r.ExportedFlag,
		ExportedAt:            nullTime(r.ExportedAt),
	}
	if r.BidsCount.Valid {
		n := int(r.BidsCount.Int64)
		l.BidsCount = &n
	}
	l.Skills = make([]string, 0)
	if r.Skills != "" {
		if err := json.Unmarshal([]byte(r.Skills), &l.Skills); err != nil {
			return model.Listing{}, fmt.Errorf("decode skills of %s: %w", r.ID, err)
		}
	}
	return l, nil
}

// listingArgs returns the business columns of l in listingColumns order,
// stopping before the timestamp and delivery columns.
func listingArgs(l model.Listing) ([]any, error) {
	skills := l.Skills
	if skills == nil {
		skills = []string{}
	}
	encoded, err := json.Marshal(skills)
	if err != nil {
		return nil, fmt.Errorf("encode skills: %w", err)
	}
	budgetType := l.BudgetType
	if budgetType == "" {
		budgetType = model.BudgetUnknown
	}
	return []any{
		l.ID, l.Title, l.URL, l.Description, l.PostedRelative, timeArg(l.PostedAt), l.BidsCount,
		l.BudgetRaw, l.BudgetMin, l.BudgetMax, string(budgetType), string(encoded),
		l.ClientName, l.ClientCountry, l.ClientRating, l.ClientPaymentVerified, l.ClientLastReply,
		l.IsFeatured, l.IsHighlighted,
	}, nil
}

type sessionRow struct {
	ID         int64  `db:"id"`
	StartedAt  int64  `db:"started_at"`
	JobsFound  int    `db:"jobs_found"`
	NewCount   int    `db:"new_count"`
	Pages      int    `db:"pages"`
	DurationMS int64  `db:"duration_ms"`
	Category   string `db:"category"`
	Language   string `db:"language"`
	StopReason string `db:"stop_reason"`
}

func (r sessionRow) toModel() model.SessionRecord {
	return model.SessionRecord{
		ID:         r.ID,
		Timestamp:  fromMillis(r.StartedAt),
		JobsFound:  r.JobsFound,
		NewCount:   r.NewCount,
		Pages:      r.Pages,
		Duration:   time.Duration(r.DurationMS) * time.Millisecond,
		Category:   r.Category,
		Language:   r.Language,
		StopReason: model.StopReason(r.StopReason),
	}
}

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func timeArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func nullTime(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}
