// Package store persists listings and crawl sessions.
//
// One query set serves SQLite and Postgres: statements are written with "?"
// placeholders and rebound for the connection's driver, timestamps are Unix
// milliseconds and booleans are bound as Go bools.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"jobmate/harvester-service/internal/model"
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("store: listing not found")

// Dialect selects dialect-specific DDL.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// Store is the durable listing table plus the sessions audit table. It is
// meant for a single writer.
type Store struct {
	db      *sqlx.DB
	dialect Dialect
	now     func() time.Time
}

// Option customises a Store.
type Option func(*Store)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

// New wraps an open connection. The dialect is inferred from the driver name.
func New(db *sqlx.DB, opts ...Option) *Store {
	s := &Store{db: db, dialect: dialectOf(db.DriverName()), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func dialectOf(driver string) Dialect {
	switch driver {
	case "pgx", "postgres":
		return Postgres
	}
	return SQLite
}

// Dialect reports the backend kind.
func (s *Store) Dialect() Dialect { return s.dialect }

// Close closes the underlying connection.
func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the connection.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Migrate creates tables and indexes if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) q(query string) string { return s.db.Rebind(query) }

// ── Identity ─────────────────────────────────────────────────────────────

// Exists reports whether a listing with id is stored.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n, s.q(`SELECT COUNT(*) FROM listings WHERE id = ?`), id)
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", id, err)
	}
	return n > 0, nil
}

// KnownKeys returns every stored "id|client_name" dedup key.
func (s *Store) KnownKeys(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryxContext(ctx, `SELECT id, client_name FROM listings`)
	if err != nil {
		return nil, fmt.Errorf("query keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]struct{})
	for rows.Next() {
		var id string
		var client sql.NullString
		if err := rows.Scan(&id, &client); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys[model.DedupKey(id, client.String)] = struct{}{}
	}
	return keys, rows.Err()
}

// ── Upsert ───────────────────────────────────────────────────────────────

// Upsert inserts l if its id is unseen and reports true. Otherwise it
// overwrites the mutable business fields and advances last_seen_at and
// scraped_at, leaving first_seen_at and the delivery flags untouched.
func (s *Store) Upsert(ctx context.Context, l model.Listing) (bool, error) {
	if l.ID == "" {
		return false, errors.New("upsert: listing has no id")
	}
	args, err := listingArgs(l)
	if err != nil {
		return false, fmt.Errorf("upsert %s: %w", l.ID, err)
	}
	now := s.now().UnixMilli()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("upsert %s: begin: %w", l.ID, err)
	}
	defer tx.Rollback() //nolint:errcheck

	insertArgs := append(args, now, now, now, false, false)
	res, err := tx.ExecContext(ctx, s.q(`INSERT INTO listings (`+listingColumnsNoDelivery+`)
		VALUES (`+placeholders(len(insertArgs))+`)
		ON CONFLICT (id) DO NOTHING`), insertArgs...)
	if err != nil {
		return false, fmt.Errorf("upsert %s: insert: %w", l.ID, err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("upsert %s: rows affected: %w", l.ID, err)
	}

	if inserted == 0 {
		if _, err := tx.ExecContext(ctx, s.q(updateListing),
			l.Title, l.Description, l.BidsCount,
			args[7], args[8], args[9], args[10], args[11],
			l.ClientRating, l.ClientPaymentVerified, l.ClientLastReply,
			now, now, now, now, l.ID,
		); err != nil {
			return false, fmt.Errorf("upsert %s: update: %w", l.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("upsert %s: commit: %w", l.ID, err)
	}
	return inserted > 0, nil
}

// Same column order as listingArgs, then the insert-time columns.
const listingColumnsNoDelivery = `id, title, url, description, posted_relative, posted_at, bids_count,
	budget_raw, budget_min, budget_max, budget_type, skills,
	client_name, client_country, client_rating, client_payment_verified, client_last_reply,
	is_featured, is_highlighted, first_seen_at, last_seen_at, scraped_at,
	sent_flag, exported_flag`

// last_seen_at never drops below first_seen_at, and scraped_at never below
// last_seen_at, even if the clock steps back.
const updateListing = `UPDATE listings SET
	title = ?, description = ?, bids_count = ?,
	budget_raw = ?, budget_min = ?, budget_max = ?, budget_type = ?, skills = ?,
	client_rating = ?, client_payment_verified = ?, client_last_reply = ?,
	last_seen_at = CASE WHEN ? < first_seen_at THEN first_seen_at ELSE ? END,
	scraped_at = CASE WHEN ? < first_seen_at THEN first_seen_at ELSE ? END
	WHERE id = ?`

func placeholders(n int) string {
	b := make([]byte, 0, n*3)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ", "...)
		}
		b = append(b, '?')
	}
	return string(b)
}

// ── Delivery flags ───────────────────────────────────────────────────────

// MarkSent flips sent_flag to true and stamps sent_at, only if it is still
// false. It reports whether this call performed the transition.
func (s *Store) MarkSent(ctx context.Context, id string) (bool, error) {
	return s.markOnce(ctx, "sent_flag", "sent_at", id)
}

// MarkExported is MarkSent for the spreadsheet flag.
func (s *Store) MarkExported(ctx context.Context, id string) (bool, error) {
	return s.markOnce(ctx, "exported_flag", "exported_at", id)
}

func (s *Store) markOnce(ctx context.Context, flag, at, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		s.q(`UPDATE listings SET `+flag+` = ?, `+at+` = ? WHERE id = ? AND `+flag+` = ?`),
		true, s.now().UnixMilli(), id, false)
	if err != nil {
		return false, fmt.Errorf("mark %s %s: %w", flag, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark %s %s: rows affected: %w", flag, id, err)
	}
	return n > 0, nil
}

// IsSent reports sent_flag; false for an unknown id.
func (s *Store) IsSent(ctx context.Context, id string) (bool, error) {
	return s.flag(ctx, "sent_flag", id)
}

// IsExported reports exported_flag; false for an unknown id.
func (s *Store) IsExported(ctx context.Context, id string) (bool, error) {
	return s.flag(ctx, "exported_flag", id)
}

func (s *Store) flag(ctx context.Context, column, id string) (bool, error) {
	var v bool
	err := s.db.GetContext(ctx, &v, s.q(`SELECT `+column+` FROM listings WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s %s: %w", column, id, err)
	}
	return v, nil
}

// ── Reads ────────────────────────────────────────────────────────────────

// Get returns one listing or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (model.Listing, error) {
	var r listingRow
	err := s.db.GetContext(ctx, &r, s.q(`SELECT `+listingColumns+` FROM listings WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Listing{}, ErrNotFound
	}
	if err != nil {
		return model.Listing{}, fmt.Errorf("get %s: %w", id, err)
	}
	return r.toModel()
}

// Unsent returns listings never delivered to the notifier, newest first.
func (s *Store) Unsent(ctx context.Context) ([]model.Listing, error) {
	return s.selectListings(ctx,
		`WHERE sent_flag = ? ORDER BY first_seen_at DESC, id`, false)
}

// FirstSeenSince returns listings first stored after t, newest first.
func (s *Store) FirstSeenSince(ctx context.Context, t time.Time) ([]model.Listing, error) {
	return s.selectListings(ctx,
		`WHERE first_seen_at > ? ORDER BY first_seen_at DESC, id`, t.UnixMilli())
}

// PostedBetween returns listings whose parsed posting time lies in
// [start, end], most recent first. Listings without a posting time are
// excluded.
func (s *Store) PostedBetween(ctx context.Context, start, end time.Time) ([]model.Listing, error) {
	return s.selectListings(ctx,
		`WHERE posted_at >= ? AND posted_at <= ? ORDER BY posted_at DESC, id`,
		start.UnixMilli(), end.UnixMilli())
}

func (s *Store) selectListings(ctx context.Context, where string, args ...any) ([]model.Listing, error) {
	var rows []listingRow
	if err := s.db.SelectContext(ctx, &rows,
		s.q(`SELECT `+listingColumns+` FROM listings `+where), args...); err != nil {
		return nil, fmt.Errorf("select listings: %w", err)
	}
	out := make([]model.Listing, 0, len(rows))
	for _, r := range rows {
		l, err := r.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

// ── Sessions ─────────────────────────────────────────────────────────────

// RecordSession appends one audit row. Rows are never updated.
func (s *Store) RecordSession(ctx context.Context, rec model.SessionRecord) error {
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}
	_, err := s.db.ExecContext(ctx, s.q(`INSERT INTO sessions
		(started_at, jobs_found, new_count, pages, duration_ms, category, language, stop_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		ts.UnixMilli(), rec.JobsFound, rec.NewCount, rec.Pages,
		rec.Duration.Milliseconds(), rec.Category, rec.Language, string(rec.StopReason))
	if err != nil {
		return fmt.Errorf("record session: %w", err)
	}
	return nil
}

// RecentSessions returns up to limit sessions, newest first.
func (s *Store) RecentSessions(ctx context.Context, limit int) ([]model.SessionRecord, error) {
	var rows []sessionRow
	if err := s.db.SelectContext(ctx, &rows, s.q(`SELECT id, started_at, jobs_found, new_count,
		pages, duration_ms, category, language, stop_reason
		FROM sessions ORDER BY started_at DESC, id DESC LIMIT ?`), limit); err != nil {
		return nil, fmt.Errorf("recent sessions: %w", err)
	}
	out := make([]model.SessionRecord, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// LastSessionAt returns the start of the most recent session, or nil.
func (s *Store) LastSessionAt(ctx context.Context) (*time.Time, error) {
	var ms sql.NullInt64
	if err := s.db.GetContext(ctx, &ms, `SELECT MAX(started_at) FROM sessions`); err != nil {
		return nil, fmt.Errorf("last session: %w", err)
	}
	return nullTime(ms), nil
}

// Statistics summarises the store.
func (s *Store) Statistics(ctx context.Context) (model.Statistics, error) {
	var st model.Statistics
	if err := s.db.GetContext(ctx, &st.Total, `SELECT COUNT(*) FROM listings`); err != nil {
		return st, fmt.Errorf("statistics: total: %w", err)
	}
	since := s.now().Add(-24 * time.Hour).UnixMilli()
	if err := s.db.GetContext(ctx, &st.NewInLast24h,
		s.q(`SELECT COUNT(*) FROM listings WHERE first_seen_at > ?`), since); err != nil {
		return st, fmt.Errorf("statistics: new: %w", err)
	}
	if err := s.db.GetContext(ctx, &st.TotalSessions, `SELECT COUNT(*) FROM sessions`); err != nil {
		return st, fmt.Errorf("statistics: sessions: %w", err)
	}
	return st, nil
}
