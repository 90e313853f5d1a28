// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

// UNICODE: every function here counts characters (runes), never bytes, so no
// caller can split a multi-byte character.

// RuneLen returns the number of runes (characters) in a string.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

// RunePrefix returns the first n runes of s without allocating.
// n <= 0 yields "" and n beyond the end yields s.
func RunePrefix(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// TruncateRunes truncates a string to a maximum number of runes.
// If the string is truncated, "..." is appended.
func TruncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 {
		return ""
	}
	if RuneLen(s) <= maxRunes {
		return s
	}
	if maxRunes <= 3 {
		return RunePrefix(s, maxRunes)
	}
	return RunePrefix(s, maxRunes-3) + "..."
}

// TruncateWidth truncates a string to a maximum display width, counting
// double-width characters (CJK) as two columns.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, "...")
}
