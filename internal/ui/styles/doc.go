// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the dropin TUI.
//
// All colors are Lip Gloss AdaptiveColors, so the same palette works on
// light and dark terminals. Theme groups the styles the chat view needs and
// records what termenv detected about the terminal.
package styles
