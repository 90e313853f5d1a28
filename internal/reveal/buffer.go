// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reveal

import (
	"github.com/jeranaias/dropin-tui/internal/util"
)

// Source returns the current target text. It is called on every tick and
// may return a longer string each time; it must never return a shorter one.
type Source func() string

// Buffer reveals a growing prefix of a target text.
//
// Invariant: 0 <= revealed <= RuneLen(source()). revealed never decreases.
//
// A Buffer only reads its source; it never mutates the message it animates.
// It is not safe for concurrent use and is meant to be driven from the same
// event loop that updates the source.
type Buffer struct {
	source   Source
	policy   Policy
	revealed int
}

// NewBuffer creates a buffer with nothing revealed.
func NewBuffer(source Source, policy Policy) *Buffer {
	return &Buffer{source: source, policy: policy}
}

// Tick advances the reveal by one step and returns the visible prefix.
// advanced is false when the buffer was already caught up; that is the
// steady state, not an error, and the next tick resumes on its own once the
// target has grown.
func (b *Buffer) Tick() (shown string, advanced bool) {
	target := b.source()
	total := util.RuneLen(target)
	if b.revealed > total {
		// The source shrank, which it must not do. Hold position.
		return target, false
	}

	backlog := total - b.revealed
	if backlog == 0 {
		return target, false
	}

	b.revealed += b.policy.Step(backlog)
	return util.RunePrefix(target, b.revealed), true
}

// View returns the currently revealed prefix without advancing.
func (b *Buffer) View() string {
	return util.RunePrefix(b.source(), b.revealed)
}

// Revealed returns the number of characters revealed so far.
func (b *Buffer) Revealed() int {
	return b.revealed
}

// Backlog returns the number of characters available but not yet revealed.
func (b *Buffer) Backlog() int {
	backlog := util.RuneLen(b.source()) - b.revealed
	if backlog < 0 {
		return 0
	}
	return backlog
}

// CaughtUp reports whether everything currently available is revealed.
func (b *Buffer) CaughtUp() bool {
	return b.Backlog() == 0
}

// SetPolicy swaps the step curve. The revealed length is kept.
func (b *Buffer) SetPolicy(p Policy) {
	b.policy = p
}
