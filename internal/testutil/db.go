// Package testutil provides shared test fixtures.
package testutil

import (
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/binSaed/flutter-redirectly/internal/db"
	_ "modernc.org/sqlite"
)

// NewTestDB opens an in-memory SQLite DB and runs all migrations.
func NewTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	// A named shared-cache in-memory database lets every pool connection see
	// the same data; naming it after the test keeps tests apart.
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared&_busy_timeout=5000"
	conn, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open in-memory sqlite: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	if err := db.Migrate(conn, "sqlite3"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	// Shared-cache connections fail concurrent writes with a table lock
	// rather than waiting, so handlers under test share one connection.
	conn.SetMaxOpenConns(1)
	return conn
}
