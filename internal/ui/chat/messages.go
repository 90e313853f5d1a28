// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/jeranaias/dropin-tui/internal/config"
	"github.com/jeranaias/dropin-tui/internal/ingest"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// StreamOpenedMsg carries the reply stream for the live message.
type StreamOpenedMsg struct {
	MessageID string
	Stream    ingest.Stream
}

// ChunkMsg delivers one piece of reply text.
type ChunkMsg struct {
	MessageID string
	Text      string
}

// StreamEndMsg signals that the server closed the reply normally.
type StreamEndMsg struct {
	MessageID string
}

// StreamFailedMsg signals a transport failure for the live message.
type StreamFailedMsg struct {
	MessageID string
	Err       error
}

// =============================================================================
// REVEAL MESSAGES
// =============================================================================

// RevealTickMsg advances the reveal buffers. Gen identifies the tick loop
// that scheduled it; ticks from a superseded loop are dropped.
type RevealTickMsg struct {
	Gen  int
	Time time.Time
}

// =============================================================================
// STATUS MESSAGES
// =============================================================================

// HealthMsg reports the agent health probe result.
type HealthMsg struct {
	Err error
}

// ConfigReloadedMsg carries a config loaded after the file changed.
type ConfigReloadedMsg struct {
	Config *config.Config
}

// CopiedMsg reports a clipboard copy.
type CopiedMsg struct {
	Chars int
	Err   error
}

// noticeExpiredMsg clears a transient notice.
type noticeExpiredMsg struct {
	Seq int
}
