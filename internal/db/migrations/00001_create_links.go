package migrations

// Column types differ per driver: DATETIME for SQLite, TIMESTAMPTZ for
// PostgreSQL and DATETIME(6) for MySQL, which also needs bounded VARCHAR keys
// for the unique index.

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateLinks, downCreateLinks)
}

func upCreateLinks(ctx context.Context, tx *sql.Tx) error {
	var ddl string
	switch dialect {
	case "postgres":
		ddl = `CREATE TABLE IF NOT EXISTS links (
    id         TEXT PRIMARY KEY,
    username   TEXT NOT NULL,
    slug       TEXT NOT NULL,
    target     TEXT NOT NULL,
    metadata   TEXT,
    expires_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
)`
	case "mysql":
		ddl = `CREATE TABLE IF NOT EXISTS links (
    id         VARCHAR(36) PRIMARY KEY,
    username   VARCHAR(63) NOT NULL,
    slug       VARCHAR(255) NOT NULL,
    target     TEXT NOT NULL,
    metadata   TEXT,
    expires_at DATETIME(6) NULL,
    created_at DATETIME(6) NOT NULL,
    updated_at DATETIME(6) NOT NULL
)`
	default: // sqlite3
		ddl = `CREATE TABLE IF NOT EXISTS links (
    id         TEXT PRIMARY KEY,
    username   TEXT NOT NULL,
    slug       TEXT NOT NULL,
    target     TEXT NOT NULL,
    metadata   TEXT,
    expires_at DATETIME,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
)`
	}
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create links table: %w", err)
	}
	_, err := tx.ExecContext(ctx, `CREATE UNIQUE INDEX idx_links_username_slug ON links (username, slug)`)
	return err
}

func downCreateLinks(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS links`)
	return err
}
