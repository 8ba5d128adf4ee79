// Package db provides database connection helpers.
package db

import (
	"context"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/jmoiron/sqlx"
)

// Driver names understood by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// NewPostgres opens databaseURL through the pgx stdlib driver and verifies
// connectivity.
func NewPostgres(ctx context.Context, databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	return db, nil
}

// Open connects to the configured backend. path is used for SQLite, url for
// Postgres.
func Open(ctx context.Context, driver, path, url string) (*sqlx.DB, error) {
	switch driver {
	case DriverSQLite, "":
		return NewSQLite(ctx, path)
	case DriverPostgres:
		return NewPostgres(ctx, url)
	}
	return nil, fmt.Errorf("unknown database driver %q", driver)
}
