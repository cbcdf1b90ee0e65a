// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Configuration command.
package cli

import (
	"fmt"
	"os"

	"github.com/jeranaias/chainchat-tui/internal/config"
	"github.com/jeranaias/chainchat-tui/internal/nebula"
)

// HandleConfig handles the "config" command and exits on failure.
func HandleConfig(args Args) {
	if err := HandleConfigCommand(args); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("Error: %v", err)))
		os.Exit(GetExitCode(err))
	}
}

// HandleConfigCommand runs the config subcommands.
func HandleConfigCommand(args Args) error {
	switch args.Subcommand {
	case "", "show":
		return configShow()

	case "set":
		if args.ConfigKey == "" || args.ConfigVal == "" {
			return fmt.Errorf("usage: chainchat config set KEY VALUE")
		}
		return configSet(args.ConfigKey, args.ConfigVal)

	case "path":
		path, err := config.ConfigPath()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil

	default:
		return fmt.Errorf("unknown config subcommand: %s", args.Subcommand)
	}
}

func configShow() error {
	cfg := config.Global()

	// SECURITY: Never print the raw secret key.
	key := "(not set)"
	if cfg.Nebula.SecretKey != "" {
		key = NewClientFromConfig(cfg).APIKeyMasked()
	}
	walletAddr := "(not set)"
	if cfg.Wallet.Address != "" {
		walletAddr = nebula.RedactAddress(cfg.Wallet.Address)
	}

	fmt.Println("[nebula]")
	fmt.Printf("  secret_key = %s\n", key)
	fmt.Printf("  client_id  = %s\n", orUnset(cfg.Nebula.ClientID))
	fmt.Printf("  base_url   = %s\n", cfg.Nebula.BaseURL)
	fmt.Printf("  relay_url  = %s\n", orUnset(cfg.Nebula.RelayURL))
	fmt.Printf("  user_id    = %s\n", cfg.Nebula.UserID)
	fmt.Println("[wallet]")
	fmt.Printf("  address    = %s\n", walletAddr)
	fmt.Println("[storage]")
	fmt.Printf("  backend    = %s\n", cfg.Storage.Backend)
	fmt.Printf("  path       = %s\n", orUnset(cfg.Storage.Path))
	fmt.Println("[ui]")
	fmt.Printf("  theme      = %s\n", cfg.UI.Theme)
	fmt.Printf("  markdown   = %t\n", cfg.UI.Markdown)
	return nil
}

func configSet(key, value string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Set(key, value); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return err
	}
	config.SetGlobal(cfg)
	fmt.Printf("Set %s\n", key)
	return nil
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
