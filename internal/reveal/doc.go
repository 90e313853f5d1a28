// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reveal paces how fast a streaming reply appears on screen.
//
// Network delivery is bursty: a reply may arrive as one large block or as a
// trickle of single characters. A Buffer decouples the two by revealing a
// growing prefix of the target text once per tick. The step size grows with
// the backlog, so small increments type out one character at a time while
// large bursts are caught up within a few ticks.
//
// # Key Types
//
//   - Policy: maps a backlog (unrevealed characters) to a step size
//   - Buffer: reveal state for a single message
//   - Table: side-table of buffers keyed by message ID
//
// Reveal state is decoration, not message data: buffers are attached when a
// message goes live and detached when it stops being live.
package reveal
