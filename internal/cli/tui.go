// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/dropin-tui/internal/config"
	"github.com/jeranaias/dropin-tui/internal/ingest"
	"github.com/jeranaias/dropin-tui/internal/session"
	"github.com/jeranaias/dropin-tui/internal/ui/chat"
	"github.com/jeranaias/dropin-tui/internal/ui/styles"
)

// runTUI starts the interactive chat interface.
func runTUI(ctx context.Context, a *app) error {
	if !IsTTY() {
		return usageErrorf("interactive mode needs a terminal (use `dropin ask` for pipes)")
	}

	client := a.client()
	ing := ingest.New(ingest.HTTP(client), session.New(), a.logger)

	opts := chat.Options{
		Ingestor: ing,
		Config:   a.cfg,
		Health:   client.Health,
		Theme:    styles.NewTheme(a.cfg.UI.Theme),
		Logger:   a.logger,
		AgentURL: client.BaseURL(),
	}

	if path, ok := a.watchPath(); ok {
		w, err := config.NewWatcher(path, config.DefaultDebounce, a.logger)
		if err != nil {
			a.logger.Warn("config reload disabled", zap.Error(err))
		} else {
			w.Start()
			defer w.Close()
			opts.ConfigUpdates = w.Updates()

			watchCtx, stop := context.WithCancel(ctx)
			defer stop()
			go logReloadErrors(watchCtx, w, a.logger)
		}
	}

	a.logger.Info("session started",
		zap.String("thread_id", ing.ThreadID()),
		zap.String("agent", client.BaseURL()))

	p := tea.NewProgram(chat.New(opts),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	final, err := p.Run()
	if m, ok := final.(chat.Model); ok {
		m.Close()
	}

	status := ing.Status()
	a.logger.Info("session ended",
		zap.Int("turns", status.Turns),
		zap.Duration("duration", status.Duration))

	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run chat: %w", err)
	}
	return nil
}

// logReloadErrors records failed reloads. The previous config stays active.
func logReloadErrors(ctx context.Context, w *config.Watcher, logger *zap.Logger) {
	for {
		select {
		case err := <-w.Errors():
			logger.Warn("config reload failed", zap.String("path", w.Path()), zap.Error(err))
		case <-ctx.Done():
			return
		}
	}
}
