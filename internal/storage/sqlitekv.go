package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// EnsureSchema creates the durable-storage table if it does not already
// exist, matching the teacher's own init() pattern of a guarded CREATE
// TABLE IF NOT EXISTS run once at process start.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS doc_storage (
		doc_name text not null,
		key text not null,
		value blob not null,
		primary key (doc_name, key)
	)`)
	if err != nil {
		return fmt.Errorf("create doc_storage table: %w", err)
	}
	return nil
}

// SQLiteKV is a KVStore backed by sqlite, scoped to a single document name —
// "each durable storage handle is exclusively owned by its document's
// actor" (spec §5).
type SQLiteKV struct {
	db   *sql.DB
	name string
}

// NewSQLiteKV returns the durable storage handle for one document.
func NewSQLiteKV(db *sql.DB, docName string) *SQLiteKV {
	return &SQLiteKV{db: db, name: docName}
}

func (s *SQLiteKV) List(ctx context.Context) (map[string][]byte, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM doc_storage WHERE doc_name = ?`, s.name)
	if err != nil {
		return nil, fmt.Errorf("query doc_storage: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan doc_storage row: %w", err)
		}
		out[key] = value
	}
	return out, rows.Err()
}

func (s *SQLiteKV) Put(ctx context.Context, fields map[string][]byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for key, value := range fields {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO doc_storage(doc_name, key, value) VALUES (?, ?, ?)
			 ON CONFLICT(doc_name, key) DO UPDATE SET value = excluded.value`,
			s.name, key, value,
		); err != nil {
			return fmt.Errorf("upsert doc_storage %s: %w", key, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteKV) DeleteAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM doc_storage WHERE doc_name = ?`, s.name); err != nil {
		return fmt.Errorf("delete doc_storage: %w", err)
	}
	return nil
}
