// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides utility functions shared across dropin.
//
// # Key Functions
//
// String Utilities:
//   - RuneLen, RunePrefix: character-based length and prefix slicing
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth: display-width truncation (CJK aware, via go-runewidth)
//
// File Operations:
//   - AtomicWriteFile: Crash-safe file writing with fsync
package util
