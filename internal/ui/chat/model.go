// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/dropin-tui/internal/config"
	"github.com/jeranaias/dropin-tui/internal/ingest"
	"github.com/jeranaias/dropin-tui/internal/reveal"
	"github.com/jeranaias/dropin-tui/internal/ui/components"
	"github.com/jeranaias/dropin-tui/internal/ui/styles"
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options wires the chat view to its collaborators.
type Options struct {
	// Ingestor owns the conversation (required)
	Ingestor *ingest.Ingestor

	// Config supplies reveal and UI settings (default: config.Default())
	Config *config.Config

	// ConfigUpdates, if set, delivers live config reloads
	ConfigUpdates <-chan *config.Config

	// Health, if set, is probed once at start
	Health func(context.Context) error

	// Theme (default: styles.NewTheme(Config.UI.Theme))
	Theme *styles.Theme

	// Logger (default: no-op)
	Logger *zap.Logger

	// Clipboard writes copied text (default: system clipboard)
	Clipboard func(string) error

	// AgentURL is shown in the header
	AgentURL string
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the chat view.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	ingestor *ingest.Ingestor
	cfg      *config.Config
	updates  <-chan *config.Config
	probe    func(context.Context) error
	logger   *zap.Logger
	copy     func(string) error

	// Live stream
	stream   ingest.Stream
	streamID string

	// Reveal
	reveals *reveal.Table
	tick    time.Duration
	tickGen int
	ticking bool

	// Widgets
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	spinning bool
	help     help.Model
	keys     KeyMap
	theme    *styles.Theme
	markdown *markdownRenderer
	header   *components.Header

	// Layout
	width  int
	height int
	follow bool

	// Notice
	notice    string
	noticeSeq int
}

// New creates the chat view.
func New(opts Options) Model {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme(cfg.UI.Theme)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	copyFn := opts.Clipboard
	if copyFn == nil {
		copyFn = clipboard.WriteAll
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.PromptStyle = theme.InputPrompt
	ti.Placeholder = "Ask the agent..."
	ti.PlaceholderStyle = theme.InputPlaceholder
	ti.CharLimit = 8192
	ti.Focus()

	vp := viewport.New(80, 20)
	vp.SetContent("")

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner

	ctx, cancel := context.WithCancel(context.Background())

	m := Model{
		ctx:      ctx,
		cancel:   cancel,
		ingestor: opts.Ingestor,
		cfg:      cfg,
		updates:  opts.ConfigUpdates,
		probe:    opts.Health,
		logger:   logger.Named("chat"),
		copy:     copyFn,
		reveals:  reveal.NewTable(cfg.Reveal.Policy()),
		tick:     cfg.Reveal.TickInterval(),
		viewport: vp,
		input:    ti,
		spinner:  sp,
		help:     help.New(),
		keys:     DefaultKeyMap(),
		theme:    theme,
		follow:   true,
		width:    80,
		height:   24,
	}
	m.header = components.NewHeader(theme)
	m.header.AgentURL = opts.AgentURL
	m.theme.SetSize(m.width, m.height)
	m.markdown = newMarkdownRenderer(theme.GlamourStyle(), m.wrapWidth(), cfg.UI.Markdown)
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.probe != nil {
		cmds = append(cmds, healthCmd(m.ctx, m.probe))
	}
	if m.updates != nil {
		cmds = append(cmds, waitForConfigCmd(m.ctx, m.updates))
	}
	return tea.Batch(cmds...)
}

// Close cancels in-flight work and releases the live stream.
func (m Model) Close() {
	m.cancel()
	if m.stream != nil {
		m.stream.Close()
	}
}

// wrapWidth returns the markdown wrap column.
func (m Model) wrapWidth() int {
	if m.cfg.UI.WordWrap > 0 && m.cfg.UI.WordWrap < m.theme.ContentWidth() {
		return m.cfg.UI.WordWrap
	}
	return m.theme.ContentWidth()
}
