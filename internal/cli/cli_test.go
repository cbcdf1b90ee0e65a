// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jeranaias/chainchat-tui/internal/nebula"
	"github.com/jeranaias/chainchat-tui/internal/storage"
)

func parseArgs(t *testing.T, argv ...string) (Command, Args) {
	t.Helper()
	old := os.Args
	os.Args = append([]string{"chainchat"}, argv...)
	defer func() { os.Args = old }()
	return Parse()
}

func TestParseDefaultIsTUI(t *testing.T) {
	cmd, _ := parseArgs(t)
	if cmd != CmdTUI {
		t.Errorf("cmd = %v, want CmdTUI", cmd)
	}
}

func TestParseAsk(t *testing.T) {
	cmd, args := parseArgs(t, "ask", "price", "of", "ETH")
	if cmd != CmdAsk {
		t.Fatalf("cmd = %v, want CmdAsk", cmd)
	}
	if args.Query != "price of ETH" {
		t.Errorf("query = %q", args.Query)
	}
}

func TestParseBareQuestionFallsBackToAsk(t *testing.T) {
	cmd, args := parseArgs(t, "what", "is", "gas")
	if cmd != CmdAsk {
		t.Fatalf("cmd = %v, want CmdAsk", cmd)
	}
	if args.Query != "what is gas" {
		t.Errorf("query = %q", args.Query)
	}
}

func TestParseGlobalFlags(t *testing.T) {
	cmd, args := parseArgs(t, "--json", "--wallet", "0xabc", "ask", "gm")
	if cmd != CmdAsk {
		t.Fatalf("cmd = %v, want CmdAsk", cmd)
	}
	if !args.JSON {
		t.Error("JSON flag not set")
	}
	if args.Wallet != "0xabc" {
		t.Errorf("wallet = %q", args.Wallet)
	}

	_, args = parseArgs(t, "--wallet=0xdef", "chats")
	if args.Wallet != "0xdef" {
		t.Errorf("wallet = %q", args.Wallet)
	}
}

func TestParseConfigSet(t *testing.T) {
	cmd, args := parseArgs(t, "config", "set", "nebula.user_id", "alice")
	if cmd != CmdConfig {
		t.Fatalf("cmd = %v, want CmdConfig", cmd)
	}
	if args.Subcommand != "set" || args.ConfigKey != "nebula.user_id" || args.ConfigVal != "alice" {
		t.Errorf("parsed %+v", args)
	}
}

func TestParseVersionAndHelp(t *testing.T) {
	if cmd, _ := parseArgs(t, "version"); cmd != CmdVersion {
		t.Errorf("version not recognized")
	}
	if cmd, _ := parseArgs(t, "--help"); cmd != CmdHelp {
		t.Errorf("--help not recognized")
	}
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"missing credential", nebula.ErrMissingCredential, ExitAuthError},
		{"unauthorized upstream", &nebula.UpstreamError{Status: 401}, ExitAuthError},
		{"server error upstream", &nebula.UpstreamError{Status: 502}, ExitNetworkError},
		{"chat not found", storage.ErrChatNotFound, ExitNotFoundError},
		{"timeout", context.DeadlineExceeded, ExitTimeoutError},
		{"generic", errors.New("boom"), ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.want {
				t.Errorf("GetExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
