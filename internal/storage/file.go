// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jeranaias/chainchat-tui/internal/util"
)

// FileBackend persists the chat record as a single JSON file named
// after the storage key. Writes are atomic (temp file + fsync + rename)
// so a crash mid-save never leaves a corrupt record.
type FileBackend struct {
	dir string
}

// NewFileBackend creates a backend rooted at dir. When dir is empty the
// default ~/.chainchat directory is used.
func NewFileBackend(dir string) (*FileBackend, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dir = filepath.Join(home, ".chainchat")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

// Path returns the record file path.
func (b *FileBackend) Path() string {
	return filepath.Join(b.dir, StorageKey+".json")
}

// Load reads the record; (nil, nil) when none exists yet.
func (b *FileBackend) Load() ([]byte, error) {
	data, err := os.ReadFile(b.Path())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Save writes the record atomically with owner-only permissions.
func (b *FileBackend) Save(data []byte) error {
	return util.AtomicWriteFile(b.Path(), data, 0600)
}
