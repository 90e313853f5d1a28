// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// GUARD
// =============================================================================

// Guard tracks the session's thread ID and whether a turn is in flight.
// All methods are safe for concurrent use.
type Guard struct {
	threadID  string
	startTime time.Time

	inFlight atomic.Bool
	turns    atomic.Int64
}

// New creates a guard with a freshly generated thread ID.
// The ID is fixed for the lifetime of the guard.
func New() *Guard {
	return NewWithThread(uuid.NewString())
}

// NewWithThread creates a guard for a known thread ID.
func NewWithThread(threadID string) *Guard {
	return &Guard{
		threadID:  threadID,
		startTime: time.Now(),
	}
}

// ThreadID returns the session's thread identifier.
func (g *Guard) ThreadID() string {
	return g.threadID
}

// TryAcquire marks a turn as in flight. It never blocks: false means another
// turn already holds the guard and the caller should drop its submission.
func (g *Guard) TryAcquire() bool {
	if !g.inFlight.CompareAndSwap(false, true) {
		return false
	}
	g.turns.Add(1)
	return true
}

// Release ends the in-flight turn. Releasing an idle guard is a no-op.
func (g *Guard) Release() {
	g.inFlight.Store(false)
}

// InFlight reports whether a turn is outstanding.
func (g *Guard) InFlight() bool {
	return g.inFlight.Load()
}

// =============================================================================
// SESSION STATUS
// =============================================================================

// Status is a point-in-time view of the session for display.
type Status struct {
	ThreadID string
	Duration time.Duration
	Turns    int
	InFlight bool
}

// Status returns the current session status.
func (g *Guard) Status() Status {
	return Status{
		ThreadID: g.threadID,
		Duration: time.Since(g.startTime),
		Turns:    int(g.turns.Load()),
		InFlight: g.inFlight.Load(),
	}
}

// FormatDuration returns a human-readable duration string.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return strconv.Itoa(int(d.Seconds())) + "s"
	}
	mins := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	if secs == 0 {
		return strconv.Itoa(mins) + "m"
	}
	return strconv.Itoa(mins) + "m " + strconv.Itoa(secs) + "s"
}
