// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/dropin-tui/internal/ingest"
	"github.com/jeranaias/dropin-tui/internal/model"
)

// cursorGlyph trails the revealed text of the live message.
const cursorGlyph = "▌"

// =============================================================================
// MAIN RENDER
// =============================================================================

// View implements tea.Model.
// Layout: header (1 line) + transcript (viewport) + input (2 lines) + footer (1 line).
func (m Model) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.renderInput(),
		m.renderFooter(),
	)
}

// =============================================================================
// HEADER
// =============================================================================

func (m Model) renderHeader() string {
	if m.ingestor != nil {
		m.header.SetSession(m.ingestor.Status())
	}
	return m.header.View()
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// renderTranscript renders every message in the log. The live message shows
// its revealed prefix; all others render in full.
func (m Model) renderTranscript() string {
	if m.ingestor == nil || m.ingestor.Log().Len() == 0 {
		return m.theme.Help.Render("Type a message and press Enter.")
	}

	log := m.ingestor.Log()
	blocks := make([]string, 0, log.Len())
	for i := 0; i < log.Len(); i++ {
		blocks = append(blocks, m.renderMessage(log.At(i)))
	}
	return strings.Join(blocks, "\n\n")
}

func (m Model) renderMessage(msg model.Message) string {
	label := m.theme.UserLabel.Render(msg.Role.DisplayName())
	if msg.Role == model.RoleAgent {
		label = m.theme.AgentLabel.Render(msg.Role.DisplayName())
	}
	if m.cfg.UI.ShowTimestamps && !msg.Timestamp.IsZero() {
		label += " " + m.theme.Timestamp.Render(msg.Timestamp.Format("15:04"))
	}

	width := m.theme.ContentWidth()
	var body string
	switch {
	case msg.Role == model.RoleUser:
		body = m.theme.UserBubble.Width(width).Render(msg.Content)
	case m.ingestor.IsLive(msg.ID):
		body = m.theme.AgentBubble.Width(width).Render(m.renderLive(msg))
	case msg.Content == ingest.FailureText:
		body = m.theme.Failure.Width(width).Render(msg.Content)
	default:
		body = m.theme.AgentBubble.Render(m.markdown.Render(msg.ID, msg.Content))
	}
	return label + "\n" + body
}

// renderLive shows the spinner while nothing has arrived, then the
// revealed prefix followed by a cursor.
func (m Model) renderLive(msg model.Message) string {
	if msg.Content == "" {
		return m.spinner.View() + " working…"
	}
	shown := msg.Content
	if b, ok := m.reveals.Get(msg.ID); ok {
		shown = b.View()
	}
	return shown + m.theme.Cursor.Render(cursorGlyph)
}

// =============================================================================
// INPUT AND FOOTER
// =============================================================================

func (m Model) renderInput() string {
	return m.theme.InputContainer.Width(m.width).Render(m.input.View())
}

func (m Model) renderFooter() string {
	if m.notice != "" {
		return m.theme.Help.Render(m.notice)
	}
	return m.help.View(m.keys)
}
