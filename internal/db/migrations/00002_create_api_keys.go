package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateAPIKeys, downCreateAPIKeys)
}

func upCreateAPIKeys(ctx context.Context, tx *sql.Tx) error {
	var ddl string
	switch dialect {
	case "postgres":
		ddl = `CREATE TABLE IF NOT EXISTS api_keys (
    id           TEXT PRIMARY KEY,
    username     TEXT NOT NULL,
    name         TEXT NOT NULL,
    key_hash     TEXT NOT NULL UNIQUE,
    last_used_at TIMESTAMPTZ,
    created_at   TIMESTAMPTZ NOT NULL,
    revoked_at   TIMESTAMPTZ
)`
	case "mysql":
		ddl = `CREATE TABLE IF NOT EXISTS api_keys (
    id           VARCHAR(36) PRIMARY KEY,
    username     VARCHAR(63) NOT NULL,
    name         VARCHAR(255) NOT NULL,
    key_hash     VARCHAR(64) NOT NULL UNIQUE,
    last_used_at DATETIME(6) NULL,
    created_at   DATETIME(6) NOT NULL,
    revoked_at   DATETIME(6) NULL
)`
	default: // sqlite3
		ddl = `CREATE TABLE IF NOT EXISTS api_keys (
    id           TEXT PRIMARY KEY,
    username     TEXT NOT NULL,
    name         TEXT NOT NULL,
    key_hash     TEXT NOT NULL UNIQUE,
    last_used_at DATETIME,
    created_at   DATETIME NOT NULL,
    revoked_at   DATETIME
)`
	}
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create api_keys table: %w", err)
	}
	_, err := tx.ExecContext(ctx, `CREATE INDEX idx_api_keys_username ON api_keys (username)`)
	return err
}

func downCreateAPIKeys(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS api_keys`)
	return err
}
