// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import "strings"

// TruncateRunes shortens s to at most maxLen runes, appending "..." when
// truncation happened. Rune-based so multi-byte characters are never split.
func TruncateRunes(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// TruncateWords cuts s to at most maxLen runes and then drops the final
// space-delimited field so the result ends on a whole word. The final field
// is dropped even when s fit within maxLen: a cut mid-word and a cut at the
// end of the string are treated the same. Returns "" when nothing survives.
func TruncateWords(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) > maxLen {
		s = string(runes[:maxLen])
	}
	fields := strings.Split(s, " ")
	if len(fields) <= 1 {
		return ""
	}
	return strings.TrimSpace(strings.Join(fields[:len(fields)-1], " "))
}
