// Package postgres backs the memory store with a PostgreSQL table.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"taskpilot/store"

	_ "github.com/lib/pq"
)

// Store implements store.Store on a single memory_records table with a
// (collection, user_id, key) primary key. Put upserts via ON CONFLICT, so
// each record write is one atomic statement.
type Store struct {
	db *sql.DB
}

// Open connects to PostgreSQL and runs schema setup.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &Store{db: db}
	if err := s.setup(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) setup(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS memory_records (
    collection  TEXT        NOT NULL,
    user_id     TEXT        NOT NULL,
    key         TEXT        NOT NULL,
    value       JSONB       NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (collection, user_id, key)
)`)
	if err != nil {
		return fmt.Errorf("create memory_records: %w", err)
	}
	return nil
}

// Search returns the namespace's records ordered by creation time.
func (s *Store) Search(ctx context.Context, ns store.Namespace) ([]store.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT key, value FROM memory_records
WHERE collection = $1 AND user_id = $2
ORDER BY created_at, key`, string(ns.Collection), ns.UserID)
	if err != nil {
		return nil, fmt.Errorf("select records: %w", err)
	}
	defer rows.Close()

	var items []store.Item
	for rows.Next() {
		var item store.Item
		var value []byte
		if err := rows.Scan(&item.Key, &value); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		item.Value = json.RawMessage(value)
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return items, nil
}

// Get retrieves a single record by key.
func (s *Store) Get(ctx context.Context, ns store.Namespace, key string) (json.RawMessage, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `
SELECT value FROM memory_records
WHERE collection = $1 AND user_id = $2 AND key = $3`,
		string(ns.Collection), ns.UserID, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select record: %w", err)
	}
	return json.RawMessage(value), true, nil
}

// Put creates or replaces a record.
func (s *Store) Put(ctx context.Context, ns store.Namespace, key string, value json.RawMessage) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO memory_records (collection, user_id, key, value)
VALUES ($1, $2, $3, $4)
ON CONFLICT (collection, user_id, key) DO UPDATE SET
    value = EXCLUDED.value,
    updated_at = now()`,
		string(ns.Collection), ns.UserID, key, []byte(value))
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
