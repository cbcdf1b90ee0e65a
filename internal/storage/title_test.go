// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"strings"
	"testing"
)

func TestGenerateChatName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"deployment with name", "deploy an ERC20 token named MyToken", "MyToken ERC20 token"},
		{"deployment without name", "deploy a token contract", "New token"},
		{"ens name returned verbatim", "send 0.001 ETH on Sepolia to vitalik.eth", "vitalik.eth"},
		{"hex address shortened", "check 0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045 for me", "0xd8dA...6045"},
		{"contract analysis", "explain the functions of contract 0xabc", "Analyze 0xabc"},
		{"token with chain", "price of USDC on Polygon", "USDC on Polygon"},
		{"token without chain", "supply of DAI", "DAI"},
		{"transaction lookup", "tx details for abcdef1234567890", "Tx abcdef12..."},
		{"chain query", "gas on Ethereum", "Ethereum Info"},
		{"wallet query", "holdings for vitalik", "vitalik Portfolio"},
		{"mint", "mint an NFT on Base", "Mint NFT"},
		{"dev question", "how to verify a contract on etherscan", "Dev: verify a contract on etherscan"},
		{"send to recipient", "pay to bob", "bob"},
		{"fallback truncates at word boundary", "gm what a lovely day on the blockchain today", "gm what a lovely day on the"},
		{"unmatchable single word", "supercalifragilisticexpialidocious", "New Chat"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GenerateChatName(tt.input); got != tt.want {
				t.Errorf("GenerateChatName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestGenerateChatNamePriorityOrder(t *testing.T) {
	// An ENS name wins over the send-to fallback even though both match.
	got := GenerateChatName("send 1 ETH to vitalik.eth")
	if got != "vitalik.eth" {
		t.Errorf("got %q, want the ENS matcher to win", got)
	}

	// A token lookup wins over the wallet matcher for "balance of".
	got = GenerateChatName("balance of USDC")
	if got != "USDC" {
		t.Errorf("got %q, want the token matcher to win", got)
	}
}

func TestGenerateChatNameFallbackIsPrefix(t *testing.T) {
	input := "this message matches none of the known patterns at all"
	got := GenerateChatName(input)
	if got == "" || got == input {
		t.Fatalf("expected a truncated prefix, got %q", got)
	}
	if !strings.HasPrefix(input, got) {
		t.Errorf("%q is not a prefix of the input", got)
	}
	if strings.HasSuffix(got, " ") {
		t.Errorf("%q ends with whitespace", got)
	}
}
