// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go driver, no cgo
)

// SQLiteBackend persists the chat record in a single-row key-value
// table. Same record, same storage key as the file backend; the two are
// interchangeable through the config.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens (creating if needed) the database at path.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer; WAL keeps readers unblocked during saves.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS chat_records (
	key        TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteBackend{db: db}, nil
}

// Load reads the record; (nil, nil) when none exists yet.
func (b *SQLiteBackend) Load() ([]byte, error) {
	var data []byte
	err := b.db.QueryRow(
		"SELECT data FROM chat_records WHERE key = ?", StorageKey,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load record: %w", err)
	}
	return data, nil
}

// Save upserts the record under the storage key.
func (b *SQLiteBackend) Save(data []byte) error {
	_, err := b.db.Exec(`
INSERT INTO chat_records (key, data, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		StorageKey, data, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
