// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chats.go - Saved chat listing.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chainchat-tui/internal/config"
	"github.com/jeranaias/chainchat-tui/internal/storage"
	"github.com/jeranaias/chainchat-tui/internal/ui/styles"
)

var (
	chatTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(styles.Purple)
	chatMetaStyle  = lipgloss.NewStyle().Foreground(styles.TextMuted)
	activeStyle    = lipgloss.NewStyle().Foreground(styles.Cyan)
)

// NewBackendFromConfig builds the persistence backend selected in the
// configuration. The caller owns the returned closer (nil for backends
// without one).
func NewBackendFromConfig(cfg *config.Config) (storage.Backend, func() error, error) {
	switch cfg.Storage.Backend {
	case "sqlite":
		path := cfg.Storage.Path
		if path == "" {
			dir, err := config.ConfigDir()
			if err != nil {
				return nil, nil, err
			}
			path = dir + "/chats.db"
		}
		backend, err := storage.NewSQLiteBackend(path)
		if err != nil {
			return nil, nil, err
		}
		return backend, backend.Close, nil

	default:
		backend, err := storage.NewFileBackend(cfg.Storage.Path)
		if err != nil {
			return nil, nil, err
		}
		return backend, nil, nil
	}
}

// HandleChats handles the "chats" command and exits on failure.
func HandleChats(args Args) {
	if err := HandleChatsCommand(args); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("Error: %v", err)))
		os.Exit(GetExitCode(err))
	}
}

// HandleChatsCommand lists saved chats, newest first.
func HandleChatsCommand(args Args) error {
	cfg := config.Global()
	backend, closer, err := NewBackendFromConfig(cfg)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer()
	}

	store := storage.NewChatStore(backend)
	if err := store.Hydrate(); err != nil {
		return err
	}

	chats := store.Chats()

	if args.JSON {
		out, err := json.MarshalIndent(chats, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if len(chats) == 0 {
		fmt.Println("No saved chats.")
		return nil
	}

	active := store.ActiveID()
	for _, c := range chats {
		marker := "  "
		if c.ID == active {
			marker = activeStyle.Render("* ")
		}
		fmt.Printf("%s%s  %s\n", marker,
			chatTitleStyle.Render(c.Name),
			chatMetaStyle.Render(fmt.Sprintf("%d messages, %s",
				len(c.Messages), c.LastActivity.Format("2006-01-02 15:04"))))
	}
	return nil
}
