package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}

	// Every :memory: connection is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// Client returns the storage scoped to clientID.
func (s *SQLiteStore) Client(clientID string) KV {
	return &sqliteKV{store: s, clientID: clientID}
}

// --- Client operations ---

func (s *SQLiteStore) Touch(ctx context.Context, clientID string) error {
	s.logger.Debug("sql", "op", "upsert", "table", "clients", "id", clientID)

	now := time.Now().Unix()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO clients (id, created_at, last_seen) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET last_seen = excluded.last_seen`,
		clientID, now, now,
	)
	return err
}

func (s *SQLiteStore) DeleteClient(ctx context.Context, clientID string) error {
	s.logger.Debug("sql", "op", "delete", "table", "clients", "id", clientID)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM client_storage WHERE client_id = ?`, clientID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, clientID); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) DeleteIdleClients(ctx context.Context, before time.Time) (int64, error) {
	s.logger.Debug("sql", "op", "delete_idle", "table", "clients")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	cutoff := before.Unix()
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM client_storage WHERE client_id IN (SELECT id FROM clients WHERE last_seen < ?)`, cutoff); err != nil {
		return 0, err
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM clients WHERE last_seen < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

// --- Key-value operations ---

type sqliteKV struct {
	store    *SQLiteStore
	clientID string
}

func (kv *sqliteKV) Get(ctx context.Context, key string) (string, bool, error) {
	kv.store.logger.Debug("sql", "op", "select", "table", "client_storage", "client", kv.clientID, "key", key)

	var value string
	err := kv.store.db.QueryRowContext(ctx,
		`SELECT value FROM client_storage WHERE client_id = ? AND key = ?`, kv.clientID, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (kv *sqliteKV) Set(ctx context.Context, key, value string) error {
	kv.store.logger.Debug("sql", "op", "upsert", "table", "client_storage", "client", kv.clientID, "key", key)

	_, err := kv.store.db.ExecContext(ctx,
		`INSERT INTO client_storage (client_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(client_id, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		kv.clientID, key, value, time.Now().Unix(),
	)
	return err
}

func (kv *sqliteKV) Delete(ctx context.Context, key string) error {
	kv.store.logger.Debug("sql", "op", "delete", "table", "client_storage", "client", kv.clientID, "key", key)

	_, err := kv.store.db.ExecContext(ctx,
		`DELETE FROM client_storage WHERE client_id = ? AND key = ?`, kv.clientID, key)
	return err
}
