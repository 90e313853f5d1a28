// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/dropin-tui/internal/session"
	"github.com/jeranaias/dropin-tui/internal/ui/styles"
	"github.com/jeranaias/dropin-tui/internal/util"
)

// =============================================================================
// HEADER COMPONENT
// =============================================================================

// AgentState is the last known health of the agent.
type AgentState int

const (
	AgentUnknown AgentState = iota
	AgentOnline
	AgentDown
)

// String returns the display string for the state
func (s AgentState) String() string {
	switch s {
	case AgentOnline:
		return "online"
	case AgentDown:
		return "unreachable"
	default:
		return "checking"
	}
}

// Header is the one-line title bar above the transcript.
type Header struct {
	Title     string // Brand (default: "dropin")
	AgentURL  string // Agent base URL, hidden on narrow terminals
	State     AgentState
	Streaming bool // A turn is in flight
	ThreadID  string
	Turns     int
	Elapsed   time.Duration
	Width     int
	theme     *styles.Theme
}

// NewHeader creates a Header with default values
func NewHeader(theme *styles.Theme) *Header {
	return &Header{
		Title: "dropin",
		Width: 80,
		theme: theme,
	}
}

// SetWidth updates the header width
func (h *Header) SetWidth(width int) {
	h.Width = width
}

// SetSession copies thread bookkeeping from a session status.
func (h *Header) SetSession(st session.Status) {
	h.ThreadID = st.ThreadID
	h.Turns = st.Turns
	h.Elapsed = st.Duration
	h.Streaming = st.InFlight
}

const (
	// compactWidth is the width below which optional parts are dropped.
	compactWidth = 72

	maxURLWidth = 40
)

// View renders the header, clipped to one line.
func (h *Header) View() string {
	parts := []string{h.theme.HeaderBrand.Render(h.Title), h.stateBadge()}

	if h.AgentURL != "" && h.Width >= compactWidth {
		parts = append(parts, util.TruncateWidth(h.AgentURL, maxURLWidth))
	}
	if h.Streaming {
		parts = append(parts, h.theme.StatusBusy.Render("streaming"))
	}
	if h.ThreadID != "" {
		parts = append(parts, "thread "+util.RunePrefix(h.ThreadID, 8))
	}
	if h.Width >= compactWidth {
		parts = append(parts,
			fmt.Sprintf("%d %s", h.Turns, plural(h.Turns, "turn", "turns")),
			session.FormatDuration(h.Elapsed),
		)
	}

	separator := lipgloss.NewStyle().
		Foreground(styles.Overlay).
		Render(" │ ")

	return h.theme.Header.
		Width(max(h.Width, 20)).
		MaxHeight(1).
		Render(strings.Join(parts, separator))
}

// stateBadge returns the colored health indicator
func (h *Header) stateBadge() string {
	switch h.State {
	case AgentOnline:
		return h.theme.StatusOK.Render("● " + h.State.String())
	case AgentDown:
		return h.theme.StatusDown.Render("● " + h.State.String())
	default:
		return h.theme.StatusBusy.Render("○ " + h.State.String())
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
