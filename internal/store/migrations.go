package store

import (
	"context"
	"database/sql"
)

// schema contains the DDL for the client storage tables.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS clients (
		id         TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		last_seen  INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_clients_last_seen ON clients(last_seen)`,

	`CREATE TABLE IF NOT EXISTS client_storage (
		client_id  TEXT NOT NULL,
		key        TEXT NOT NULL,
		value      TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (client_id, key)
	)`,
}

// migrate executes all schema DDL statements.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
