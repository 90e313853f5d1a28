// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// The Bubble Tea Update loop is the only place the conversation log
// changes. Two independent message sources feed it:
//
//   - the stream read loop: readChunkCmd blocks on Stream.Next in a command
//     goroutine and returns exactly one ChunkMsg, StreamEndMsg or
//     StreamFailedMsg; Update folds the chunk and re-arms the read
//   - the reveal ticker: RevealTickMsg advances every attached reveal
//     buffer; it is only scheduled while a live message exists
//
// Historic replies render through glamour. The live reply shows the
// revealed prefix with a cursor, or a spinner while it is still empty.
package chat
