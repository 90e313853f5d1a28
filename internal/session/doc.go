// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session provides single-flight admission control for chat turns
// and the conversation's stable thread identifier.
//
// A Guard admits at most one turn at a time. A second submission while a
// turn is in flight is rejected on the spot rather than queued, which keeps
// an accidental double Enter from sending the same turn twice.
//
// Example:
//
//	g := session.New()
//	if !g.TryAcquire() {
//	    return // already busy; drop the submission
//	}
//	defer g.Release()
package session
