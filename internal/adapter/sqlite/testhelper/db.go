// Package testhelper sets up an ephemeral, migrated SQLite database for
// adapter-level tests, grounded on the teacher's Postgres testhelper but
// simplified: SQLite is file-based, so no container orchestration is
// needed to test against it.
package testhelper

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/pressly/goose/v3"

	sqliteadapter "github.com/hjonck/leadscout-sub002/internal/adapter/sqlite"
)

// SetupTestDB opens a fresh temp-file SQLite database, applies every
// goose migration under internal/adapter/sqlite/migrations, and returns
// the *sql.DB. The database file is removed via t.Cleanup.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := sqliteadapter.Open(ctx, sqliteadapter.Config{Path: dbPath})
	if err != nil {
		t.Fatalf("testhelper: open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, os.DirFS(migrationsPath()))
	if err != nil {
		t.Fatalf("testhelper: goose new provider: %v", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		t.Fatalf("testhelper: goose up: %v", err)
	}

	return db
}

// migrationsPath resolves the absolute path to the migrations directory
// relative to this source file using runtime.Caller.
func migrationsPath() string {
	_, currentFile, _, _ := runtime.Caller(0)
	// currentFile is .../internal/adapter/sqlite/testhelper/db.go
	return filepath.Join(filepath.Dir(currentFile), "..", "migrations")
}
