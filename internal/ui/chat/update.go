// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/jeranaias/dropin-tui/internal/agent"
	"github.com/jeranaias/dropin-tui/internal/config"
	"github.com/jeranaias/dropin-tui/internal/ingest"
	"github.com/jeranaias/dropin-tui/internal/model"
	"github.com/jeranaias/dropin-tui/internal/ui/components"
)

// noticeTTL is how long a transient footer notice stays visible.
const noticeTTL = 3 * time.Second

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model. It is the only place the log changes.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		m.follow = m.viewport.AtBottom()
		return m, cmd

	case StreamOpenedMsg:
		return m.handleStreamOpened(msg)

	case ChunkMsg:
		return m.handleChunk(msg)

	case StreamEndMsg:
		return m.handleStreamEnd(msg), nil

	case StreamFailedMsg:
		return m.handleStreamFailed(msg), nil

	case RevealTickMsg:
		return m.handleRevealTick(msg)

	case spinner.TickMsg:
		if !m.spinning {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd

	case HealthMsg:
		if msg.Err != nil {
			m.header.State = components.AgentDown
			m.logger.Warn("agent health check failed", zap.Error(msg.Err))
		} else {
			m.header.State = components.AgentOnline
		}
		return m, nil

	case ConfigReloadedMsg:
		return m.handleConfigReloaded(msg)

	case CopiedMsg:
		if msg.Err != nil {
			return m.setNotice("Copy failed: " + msg.Err.Error())
		}
		return m.setNotice(fmt.Sprintf("Copied %d characters", msg.Chars))

	case noticeExpiredMsg:
		if msg.Seq == m.noticeSeq {
			m.notice = ""
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		text, ok := m.lastReply()
		if !ok {
			return m.setNotice("Nothing to copy")
		}
		return m, copyCmd(m.copy, text)

	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.Up):
		m.viewport.LineUp(1)
		m.follow = m.viewport.AtBottom()
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.viewport.LineDown(1)
		m.follow = m.viewport.AtBottom()
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.ViewUp()
		m.follow = m.viewport.AtBottom()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.ViewDown()
		m.follow = m.viewport.AtBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit hands the input line to the ingestor. Blank input and input typed
// while a turn is in flight are dropped and the line is kept.
func (m Model) submit() (tea.Model, tea.Cmd) {
	if m.ingestor == nil {
		return m, nil
	}
	turn, ok := m.ingestor.Submit(m.input.Value())
	if !ok {
		return m, nil
	}
	m.input.Reset()

	ing := m.ingestor
	id := turn.AgentID
	m.reveals.Attach(id, func() string {
		log := ing.Log()
		if idx := log.IndexOf(id); idx >= 0 {
			return log.At(idx).Content
		}
		return ""
	})

	m.follow = true
	m.refresh()

	cmds := []tea.Cmd{openStreamCmd(m.ctx, m.ingestor, turn)}
	var tick tea.Cmd
	m, tick = m.ensureTicking()
	cmds = append(cmds, tick)
	if !m.spinning {
		m.spinning = true
		cmds = append(cmds, m.spinner.Tick)
	}
	return m, tea.Batch(cmds...)
}

// =============================================================================
// STREAM
// =============================================================================

func (m Model) handleStreamOpened(msg StreamOpenedMsg) (tea.Model, tea.Cmd) {
	if !m.ingestor.IsLive(msg.MessageID) {
		msg.Stream.Close()
		return m, nil
	}
	m.stream = msg.Stream
	m.streamID = msg.MessageID
	return m, readChunkCmd(m.ctx, msg.MessageID, msg.Stream)
}

func (m Model) handleChunk(msg ChunkMsg) (tea.Model, tea.Cmd) {
	if msg.MessageID != m.streamID || m.stream == nil {
		return m, nil
	}
	m.ingestor.Fold(msg.MessageID, msg.Text)
	m.header.State = components.AgentOnline
	return m, readChunkCmd(m.ctx, msg.MessageID, m.stream)
}

func (m Model) handleStreamEnd(msg StreamEndMsg) Model {
	m.ingestor.Finish(msg.MessageID)
	return m.closeTurn(msg.MessageID)
}

func (m Model) handleStreamFailed(msg StreamFailedMsg) Model {
	m.ingestor.Fail(msg.MessageID, msg.Err)
	if agent.IsConnection(msg.Err) || agent.IsTimeout(msg.Err) {
		m.header.State = components.AgentDown
	}
	return m.closeTurn(msg.MessageID)
}

// closeTurn detaches the reveal and releases the stream for id. The
// message renders in full from here on.
func (m Model) closeTurn(id string) Model {
	m.reveals.Detach(id)
	m.markdown.forget(id)
	if m.streamID == id && m.stream != nil {
		m.stream.Close()
		m.stream = nil
		m.streamID = ""
	}
	if !m.ingestor.InFlight() {
		m.spinning = false
	}
	m.refresh()
	return m
}

// =============================================================================
// REVEAL
// =============================================================================

// ensureTicking starts the reveal tick loop if it is not running.
func (m Model) ensureTicking() (Model, tea.Cmd) {
	if m.ticking || m.reveals.Len() == 0 {
		return m, nil
	}
	m.ticking = true
	m.tickGen++
	return m, revealTickCmd(m.tickGen, m.tick)
}

// handleRevealTick advances every attached buffer. The loop keeps running
// while any buffer is attached, including caught-up ticks, so the reveal
// resumes as soon as more text is folded in.
func (m Model) handleRevealTick(msg RevealTickMsg) (tea.Model, tea.Cmd) {
	if msg.Gen != m.tickGen {
		return m, nil
	}
	if m.reveals.Len() == 0 {
		m.ticking = false
		return m, nil
	}
	if m.reveals.TickAll() {
		m.refresh()
	}
	return m, revealTickCmd(m.tickGen, m.tick)
}

// =============================================================================
// CONFIG
// =============================================================================

func (m Model) handleConfigReloaded(msg ConfigReloadedMsg) (tea.Model, tea.Cmd) {
	next := waitForConfigCmd(m.ctx, m.updates)
	if msg.Config == nil {
		return m, next
	}
	m.applyConfig(msg.Config)
	m.logger.Info("config reloaded",
		zap.Duration("tick", m.tick),
		zap.Int("tiers", len(msg.Config.Reveal.Tiers)))
	updated, notice := m.setNotice("Config reloaded")
	return updated, tea.Batch(next, notice)
}

// applyConfig swaps in cfg. A new tick period applies from the next
// scheduled tick.
func (m *Model) applyConfig(cfg *config.Config) {
	m.cfg = cfg
	m.tick = cfg.Reveal.TickInterval()
	m.reveals.SetPolicy(cfg.Reveal.Policy())
	m.markdown = newMarkdownRenderer(m.theme.GlamourStyle(), m.wrapWidth(), cfg.UI.Markdown)
	m.refresh()
}

// =============================================================================
// LAYOUT
// =============================================================================

// chromeHeight is the rows used by header, input and footer.
const chromeHeight = 4

func (m Model) handleResize(msg tea.WindowSizeMsg) Model {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)

	m.viewport.Width = msg.Width
	m.layout()
	m.input.Width = max(msg.Width-len(m.input.Prompt)-2, 10)
	m.help.Width = msg.Width
	m.header.SetWidth(msg.Width)

	m.markdown = newMarkdownRenderer(m.theme.GlamourStyle(), m.wrapWidth(), m.cfg.UI.Markdown)
	m.refresh()
	return m
}

// layout sizes the viewport to what the header, input and footer leave.
func (m *Model) layout() {
	footer := lipgloss.Height(m.help.View(m.keys))
	m.viewport.Height = max(m.height-chromeHeight-footer+1, 1)
	if m.follow {
		m.viewport.GotoBottom()
	}
}

// refresh re-renders the transcript into the viewport and keeps it pinned
// to the bottom while following.
func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	if m.follow {
		m.viewport.GotoBottom()
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func (m Model) setNotice(text string) (tea.Model, tea.Cmd) {
	m.noticeSeq++
	m.notice = text
	return m, expireNoticeCmd(m.noticeSeq, noticeTTL)
}

// lastReply returns the newest completed agent reply that is not the
// failure text.
func (m Model) lastReply() (string, bool) {
	if m.ingestor == nil {
		return "", false
	}
	log := m.ingestor.Log()
	for i := log.Len() - 1; i >= 0; i-- {
		msg := log.At(i)
		if msg.Role != model.RoleAgent || m.ingestor.IsLive(msg.ID) {
			continue
		}
		if msg.IsEmpty() || msg.Content == ingest.FailureText {
			continue
		}
		return msg.Content, true
	}
	return "", false
}
