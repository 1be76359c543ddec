// Package sqlite holds the persistence adapter for the learning store and
// job runner: a single-writer SQLite database reached through
// database/sql and the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"fmt"

	"database/sql"

	_ "modernc.org/sqlite"
)

// Config controls how the database file is opened.
type Config struct {
	// Path to the SQLite file. Use ":memory:" for an ephemeral database.
	Path string
}

// Open creates a *sql.DB configured for a single-writer SQLite database:
// a single open connection avoids SQLITE_BUSY under the job runner's
// one-writer-many-readers discipline (spec.md §5), with WAL journaling
// so readers never observe a partially committed batch.
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}
	return db, nil
}
