package app

import (
	"database/sql"
	"fmt"

	"github.com/guttosm/foliopulse/config"

	_ "github.com/lib/pq" // PostgreSQL driver for database/sql
)

// sqlOpener is an indirection for unit testing; defaults to sql.Open
var sqlOpener = sql.Open

// InitPostgres opens a PostgreSQL connection pool using the provided
// configuration and verifies connectivity with a ping.
//
// Returns:
//   - *sql.DB: an open database connection pool (safe for concurrent use).
//   - error: if opening or pinging the database fails.
func InitPostgres(cfg config.Config) (*sql.DB, error) {
	db, err := sqlOpener("postgres", cfg.Postgres.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return db, nil
}

// postgresOpener is an indirection used by InitializeApp; overridden in tests to avoid real connections.
var postgresOpener = InitPostgres
