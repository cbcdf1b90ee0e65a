// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"regexp"
	"strings"

	"github.com/jeranaias/chainchat-tui/internal/model"
	"github.com/jeranaias/chainchat-tui/internal/util"
)

// =============================================================================
// TITLE HEURISTIC
// =============================================================================

// titleMaxLen bounds the truncation fallback.
const titleMaxLen = 30

// The matchers run in priority order, first match wins. The order is
// load-bearing: reordering changes observed titles (a "balance of X"
// message is a token lookup, not a wallet query, because the token
// matcher runs first).
var (
	deployRe   = regexp.MustCompile(`(?i)deploy\s+(?:an?\s+)?([^\n.]+?)(?:\s+contract)?(?:\s+(?:named|called)\s+['"]?([^'".\n]+?)['"]?)?\s*$`)
	ensRe      = regexp.MustCompile(`(?i)\b\w+\.eth\b`)
	addressRe  = regexp.MustCompile(`0x[a-fA-F0-9]{40}`)
	analysisRe = regexp.MustCompile(`(?i)(?:what|explain|analyze|show|get)\s+(?:is|are|the)?\s*(?:functions?|standards?|interface|details?)\s+(?:(?:of|for|in|at|about)\s+)?(?:contract\s+)?([^?.,\n]+)`)
	tokenRe    = regexp.MustCompile(`(?i)(?:price|address|supply|balance)\s+(?:of\s+)?([A-Za-z0-9]+)(?:\s+(?:on|in|at)\s+([A-Za-z]+))?`)
	txRe       = regexp.MustCompile(`(?i)(?:transaction|tx)\s+(?:(?:details?|info|about)\s+)?(?:for\s+)?(\w+)`)
	chainRe    = regexp.MustCompile(`(?i)(?:gas|block|status|info)\s+(?:on|for|in|at)\s+([A-Za-z]+)`)
	walletRe   = regexp.MustCompile(`(?i)(?:balance|holdings?|nfts?|tokens?)\s+(?:of|in|for)\s+([^?.,\n]+)`)
	mintRe     = regexp.MustCompile(`(?i)(?:mint|create|generate)\s+(?:an?\s+)?([^\n.]+?)(?:\s+(?:on|to|with)\s+[^.,\n]*)?\s*$`)
	devRe      = regexp.MustCompile(`(?i)how\s+(?:to|do\s+i)\s+([^?.,\n]+)`)
	sendToRe   = regexp.MustCompile(`(?i)(?:send|transfer|pay)(?:\s+[\d.]+\s*\w+)?\s+to\s+([^,.\s]+)`)
)

// GenerateChatName derives a chat title from the first user message.
// Best-effort pattern extraction; when nothing matches, a whole-word
// prefix of the raw text is used, and the sentinel name as a last resort.
func GenerateChatName(message string) string {
	// 1. Contract deployments
	if m := deployRe.FindStringSubmatch(message); m != nil {
		contractType := strings.TrimSpace(m[1])
		contractName := strings.TrimSpace(m[2])
		if contractName != "" {
			return contractName + " " + contractType
		}
		return "New " + contractType
	}

	// 2. ENS names and raw addresses
	if m := ensRe.FindString(message); m != "" {
		return m
	}
	if m := addressRe.FindString(message); m != "" {
		return m[:6] + "..." + m[len(m)-4:]
	}

	// 3. Contract analysis
	if m := analysisRe.FindStringSubmatch(message); m != nil {
		return "Analyze " + strings.TrimSpace(m[1])
	}

	// 4. Token research / price checks
	if m := tokenRe.FindStringSubmatch(message); m != nil {
		if chain := strings.TrimSpace(m[2]); chain != "" {
			return m[1] + " on " + chain
		}
		return m[1]
	}

	// 5. Transaction analysis
	if m := txRe.FindStringSubmatch(message); m != nil {
		id := m[1]
		if len(id) > 8 {
			id = id[:8]
		}
		return "Tx " + id + "..."
	}

	// 6. Network / chain queries
	if m := chainRe.FindStringSubmatch(message); m != nil {
		return m[1] + " Info"
	}

	// 7. Wallet queries
	if m := walletRe.FindStringSubmatch(message); m != nil {
		return strings.TrimSpace(m[1]) + " Portfolio"
	}

	// 8. Contract interactions (minting etc)
	if m := mintRe.FindStringSubmatch(message); m != nil {
		return "Mint " + strings.TrimSpace(m[1])
	}

	// 9. General development queries
	if m := devRe.FindStringSubmatch(message); m != nil {
		topic := []rune(strings.TrimSpace(m[1]))
		if len(topic) > titleMaxLen {
			topic = topic[:titleMaxLen]
		}
		return "Dev: " + string(topic)
	}

	// 10. Transfer / payment patterns
	if m := sendToRe.FindStringSubmatch(message); m != nil && m[1] != "" {
		return m[1]
	}

	// Fallback: whole-word prefix of the raw text
	if truncated := util.TruncateWords(message, titleMaxLen); truncated != "" {
		return truncated
	}
	return model.DefaultChatName
}
