// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ingest folds a streamed agent reply into the conversation log.
//
// An Ingestor owns the message log, at most one live message, and the
// session guard that keeps a single turn in flight. It is driven by one
// event loop: in the TUI every call happens inside Bubble Tea's Update, in
// headless mode Run drives a whole turn on the calling goroutine. Neither
// path needs locks because log mutation is never concurrent.
//
// Turn lifecycle:
//
//	Submit -> Open -> Fold* -> Finish
//	                        \-> Fail
package ingest
