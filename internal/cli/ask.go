// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question command (non-streaming).
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/chainchat-tui/internal/config"
	"github.com/jeranaias/chainchat-tui/internal/nebula"
	"github.com/jeranaias/chainchat-tui/internal/ui/styles"
	"github.com/jeranaias/chainchat-tui/internal/wallet"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer is the global glamour renderer for markdown output.
var markdownRenderer *glamour.TermRenderer

func init() {
	var err error
	markdownRenderer, err = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		// Fall back to plain text if renderer initialization fails
		markdownRenderer = nil
	}
}

// renderMarkdown renders markdown content for terminal display.
// Returns the original content if rendering fails or renderer is unavailable.
func renderMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}
	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// displayResponse displays a response with markdown rendering when
// stdout is a TTY; piped output stays plain.
func displayResponse(response string) {
	if IsStdoutTTY() {
		fmt.Print(renderMarkdown(response))
	} else {
		fmt.Println(response)
	}
}

var (
	actionStyle = lipgloss.NewStyle().Foreground(styles.Amber)
	errorStyle  = lipgloss.NewStyle().Foreground(styles.Rose)
)

// =============================================================================
// ASK COMMAND
// =============================================================================

// NewClientFromConfig builds a Nebula client from configuration.
func NewClientFromConfig(cfg *config.Config) *nebula.Client {
	client := nebula.NewClient(cfg.Nebula.SecretKey).
		WithBaseURL(cfg.Nebula.BaseURL).
		WithRelayURL(cfg.Nebula.RelayURL).
		WithClientID(cfg.Nebula.ClientID).
		WithUserID(cfg.Nebula.UserID)
	if cfg.Nebula.RateLimit > 0 {
		client = client.WithRateLimit(cfg.Nebula.RateLimit, 1)
	}
	return client
}

// HandleAsk handles the "ask" command and exits on failure.
func HandleAsk(args Args) {
	if err := HandleAskCommand(args); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("Error: %v", err)))
		os.Exit(GetExitCode(err))
	}
}

// HandleAskCommand runs a one-shot, non-streaming question.
func HandleAskCommand(args Args) error {
	if args.Query == "" {
		return errors.New("usage: chainchat ask \"question\"")
	}

	cfg := config.Global()
	client := NewClientFromConfig(cfg)
	if !client.IsConfigured() {
		return fmt.Errorf("%w: set nebula.secret_key or nebula.relay_url in the config, "+
			"or export CHAINCHAT_SECRET_KEY", nebula.ErrMissingCredential)
	}

	walletAddr := cfg.Wallet.Address
	if args.Wallet != "" {
		walletAddr = args.Wallet
	}

	result, err := client.Chat(context.Background(), nebula.ChatRequest{
		Message:       args.Query,
		WalletAddress: walletAddr,
	})
	if err != nil {
		return err
	}

	if args.JSON {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	displayResponse(result.Message)

	for _, action := range result.Actions {
		req, err := wallet.ParseTransactionRequest(action.Payload)
		if err != nil {
			continue
		}
		fmt.Println()
		fmt.Println(actionStyle.Render("Transaction request (" + action.Kind + "):"))
		fmt.Println(actionStyle.Render(req.Describe()))
	}
	return nil
}
