package store

// Timestamps are Unix milliseconds in both dialects; skills is a JSON array.
const listingsTable = `
CREATE TABLE IF NOT EXISTS listings (
	id                      TEXT PRIMARY KEY,
	title                   TEXT,
	url                     TEXT NOT NULL,
	description             TEXT,
	posted_relative         TEXT,
	posted_at               BIGINT,
	bids_count              INTEGER,
	budget_raw              TEXT,
	budget_min              DOUBLE PRECISION,
	budget_max              DOUBLE PRECISION,
	budget_type             TEXT NOT NULL DEFAULT 'unknown',
	skills                  TEXT NOT NULL DEFAULT '[]',
	client_name             TEXT,
	client_country          TEXT,
	client_rating           DOUBLE PRECISION,
	client_payment_verified BOOLEAN NOT NULL DEFAULT FALSE,
	client_last_reply       TEXT,
	is_featured             BOOLEAN NOT NULL DEFAULT FALSE,
	is_highlighted          BOOLEAN NOT NULL DEFAULT FALSE,
	first_seen_at           BIGINT NOT NULL,
	last_seen_at            BIGINT NOT NULL,
	scraped_at              BIGINT NOT NULL,
	sent_flag               BOOLEAN NOT NULL DEFAULT FALSE,
	sent_at                 BIGINT,
	exported_flag           BOOLEAN NOT NULL DEFAULT FALSE,
	exported_at             BIGINT
)`

const sessionsColumns = `
	started_at  BIGINT NOT NULL,
	jobs_found  INTEGER NOT NULL,
	new_count   INTEGER NOT NULL,
	pages       INTEGER NOT NULL,
	duration_ms BIGINT NOT NULL,
	category    TEXT NOT NULL,
	language    TEXT NOT NULL,
	stop_reason TEXT NOT NULL DEFAULT ''
)`

const sqliteSessionsTable = `
CREATE TABLE IF NOT EXISTS sessions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,` + sessionsColumns

const postgresSessionsTable = `
CREATE TABLE IF NOT EXISTS sessions (
	id          BIGSERIAL PRIMARY KEY,` + sessionsColumns

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_listings_posted_at ON listings(posted_at)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_scraped_at ON listings(scraped_at)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_first_seen ON listings(first_seen_at)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_last_seen ON listings(last_seen_at)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_client_country ON listings(client_country)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_budget_type ON listings(budget_type)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_sent ON listings(sent_flag)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at)`,
}

func (s *Store) schema() []string {
	stmts := []string{listingsTable}
	if s.dialect == Postgres {
		stmts = append(stmts, postgresSessionsTable)
	} else {
		stmts = append(stmts, sqliteSessionsTable)
	}
	return append(stmts, indexes...)
}
