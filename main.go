// chainchat - A terminal client for the Nebula blockchain AI.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chainchat-tui/internal/cli"
	"github.com/jeranaias/chainchat-tui/internal/config"
	"github.com/jeranaias/chainchat-tui/internal/storage"
	"github.com/jeranaias/chainchat-tui/internal/ui/chat"
	"github.com/jeranaias/chainchat-tui/internal/ui/styles"
)

// Build-time variables (set via -ldflags)
var (
	Version   = "0.3.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdAsk:
		cli.HandleAsk(args)
	case cli.CmdChats:
		cli.HandleChats(args)
	case cli.CmdConfig:
		cli.HandleConfig(args)
	case cli.CmdVersion:
		cli.HandleVersion(args)
	case cli.CmdHelp:
		cli.HandleHelp()
	default:
		runTUI(args)
	}
}

func runTUI(args cli.Args) {
	cfg := config.Global()

	backend, closer, err := cli.NewBackendFromConfig(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: storage unavailable: %v\n", err)
		os.Exit(cli.ExitConfigError)
	}
	if closer != nil {
		defer closer()
	}

	store := storage.NewChatStore(backend)
	if err := store.Hydrate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading chats: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}

	client := cli.NewClientFromConfig(cfg)
	if !client.IsConfigured() {
		fmt.Fprintln(os.Stderr, "Warning: no Nebula credential configured. "+
			"Run 'chainchat config set nebula.secret_key KEY' or export CHAINCHAT_SECRET_KEY.")
	}

	walletAddr := cfg.Wallet.Address
	if args.Wallet != "" {
		walletAddr = args.Wallet
	}

	m := chat.New(chat.Config{
		Store:         store,
		Client:        client,
		Signer:        nil, // no local signer yet; requests are surfaced, not signed
		WalletAddress: walletAddr,
		Theme:         styles.NewTheme(cfg.UI.Theme),
		Markdown:      cfg.UI.Markdown,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())

	// Pick up config edits made while the TUI is running. Reload
	// failures are logged and skipped inside the watcher.
	if path, err := config.ConfigPath(); err == nil {
		if watcher, werr := config.NewWatcher(path); werr == nil {
			defer watcher.Close()
			go func() {
				for updated := range watcher.Updates() {
					config.SetGlobal(updated)
					p.Send(chat.ConfigReloadedMsg{
						WalletAddress: updated.Wallet.Address,
						Markdown:      updated.UI.Markdown,
					})
				}
			}()
		} else {
			log.Printf("config: watcher unavailable: %v", werr)
		}
	}

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.ExitGeneralError)
	}
}
