// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command dispatch for chainchat.
package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChats
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	JSON    bool
	Wallet  string // Override wallet address for this invocation

	// Command-specific
	Query      string
	Subcommand string
	ConfigKey  string
	ConfigVal  string

	// Raw args (remaining after flag parsing)
	Raw []string
}

const usageText = `chainchat - terminal chat for the Nebula blockchain AI

Chainchat talks to thirdweb's Nebula API from the terminal.

It provides:
  - Streaming chat with on-chain context
  - Persistent conversation history
  - Transaction requests handed to a local signer

Usage:
  chainchat                   Start TUI (default)
  chainchat ask "question"    Ask a single question
  chainchat chats             List saved chats
  chainchat config [show|set|path]  Configuration
  chainchat version           Show version
  chainchat help              Show this help

Config Commands:
  chainchat config show             Show current configuration
  chainchat config set KEY VALUE    Set a value (dot notation)
  chainchat config path             Print the config file path

Global Flags:
  --wallet ADDRESS   Override the signer wallet address
  -q, --quiet        Minimal output
  -v, --verbose      Debug output
  --json             Output in JSON format

Examples:
  chainchat                                   Start the TUI
  chainchat ask "price of ETH"                One-shot question
  chainchat ask "balance of vitalik.eth" --json
  chainchat config set nebula.secret_key sk-...
  chainchat config set storage.backend sqlite

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("chainchat version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
	fmt.Printf("  Go version: %s\n", runtime.Version())
}

// Parse parses command-line arguments and returns the command and args.
func Parse() (Command, Args) {
	args := os.Args[1:]
	remaining, parsedArgs := parseGlobalFlags(args)

	if len(remaining) == 0 {
		return CmdTUI, parsedArgs
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsedArgs.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, parsedArgs

	case "ask":
		parseAskArgs(&parsedArgs, remaining)
		return CmdAsk, parsedArgs

	case "chats", "history":
		if len(remaining) > 0 {
			parsedArgs.Subcommand = remaining[0]
		}
		return CmdChats, parsedArgs

	case "config":
		parseConfigArgs(&parsedArgs, remaining)
		return CmdConfig, parsedArgs

	case "version", "-v", "--version":
		return CmdVersion, parsedArgs

	case "help", "-h", "--help":
		return CmdHelp, parsedArgs

	default:
		// Unknown command - treat it as a direct question.
		parsedArgs.Query = strings.Join(append([]string{cmd}, remaining...), " ")
		return CmdAsk, parsedArgs
	}
}

// parseGlobalFlags extracts global flags from args and returns remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	var parsedArgs Args

	i := 0
	for i < len(args) {
		arg := args[i]

		switch arg {
		case "-q", "--quiet":
			parsedArgs.Quiet = true
		case "-v", "--verbose":
			parsedArgs.Verbose = true
		case "--json":
			parsedArgs.JSON = true
		case "--wallet":
			if i+1 < len(args) {
				i++
				parsedArgs.Wallet = args[i]
			}
		default:
			if strings.HasPrefix(arg, "--wallet=") {
				parsedArgs.Wallet = strings.TrimPrefix(arg, "--wallet=")
			} else {
				remaining = append(remaining, arg)
			}
		}
		i++
	}
	return remaining, parsedArgs
}

// parseAskArgs parses ask command specific arguments.
func parseAskArgs(args *Args, remaining []string) {
	var query []string
	for _, arg := range remaining {
		if !strings.HasPrefix(arg, "-") {
			query = append(query, arg)
		}
	}
	args.Query = strings.Join(query, " ")
}

// parseConfigArgs parses config command specific arguments.
func parseConfigArgs(args *Args, remaining []string) {
	if len(remaining) > 0 {
		args.Subcommand = remaining[0]
		if len(remaining) > 1 {
			args.ConfigKey = remaining[1]
		}
		if len(remaining) > 2 {
			args.ConfigVal = remaining[2]
		}
	}
}

// HandleVersion handles the "version" command.
func HandleVersion(args Args) {
	if args.JSON {
		fmt.Printf("{\"version\":%q,\"git_commit\":%q,\"build_date\":%q,\"go_version\":%q}\n",
			Version, GitCommit, BuildDate, runtime.Version())
		return
	}
	PrintVersion()
}

// HandleHelp handles the "help" command.
func HandleHelp() {
	PrintUsage()
}
