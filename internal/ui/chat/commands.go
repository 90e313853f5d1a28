// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/dropin-tui/internal/config"
	"github.com/jeranaias/dropin-tui/internal/ingest"
)

// =============================================================================
// COMMAND CREATORS
// =============================================================================

// openStreamCmd opens the reply stream for an admitted turn.
func openStreamCmd(ctx context.Context, ing *ingest.Ingestor, turn ingest.Turn) tea.Cmd {
	return func() tea.Msg {
		stream, err := ing.Open(ctx, turn)
		if err != nil {
			return StreamFailedMsg{MessageID: turn.AgentID, Err: err}
		}
		return StreamOpenedMsg{MessageID: turn.AgentID, Stream: stream}
	}
}

// readChunkCmd blocks for the next piece of the reply and returns exactly
// one message. Update re-arms it after each ChunkMsg.
func readChunkCmd(ctx context.Context, id string, stream ingest.Stream) tea.Cmd {
	return func() (msg tea.Msg) {
		defer func() {
			if r := recover(); r != nil {
				msg = StreamFailedMsg{MessageID: id, Err: fmt.Errorf("stream panic: %v", r)}
			}
		}()

		text, err := stream.Next(ctx)
		switch {
		case errors.Is(err, io.EOF):
			return StreamEndMsg{MessageID: id}
		case err != nil:
			return StreamFailedMsg{MessageID: id, Err: err}
		default:
			return ChunkMsg{MessageID: id, Text: text}
		}
	}
}

// revealTickCmd schedules one reveal tick.
func revealTickCmd(gen int, every time.Duration) tea.Cmd {
	return tea.Tick(every, func(t time.Time) tea.Msg {
		return RevealTickMsg{Gen: gen, Time: t}
	})
}

// healthCmd probes the agent once.
func healthCmd(ctx context.Context, probe func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return HealthMsg{Err: probe(ctx)}
	}
}

// waitForConfigCmd waits for the next reloaded config.
func waitForConfigCmd(ctx context.Context, updates <-chan *config.Config) tea.Cmd {
	if updates == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case cfg, ok := <-updates:
			if !ok {
				return nil
			}
			return ConfigReloadedMsg{Config: cfg}
		case <-ctx.Done():
			return nil
		}
	}
}

// copyCmd writes text to the clipboard.
func copyCmd(write func(string) error, text string) tea.Cmd {
	return func() tea.Msg {
		return CopiedMsg{Chars: len([]rune(text)), Err: write(text)}
	}
}

// expireNoticeCmd clears the notice with sequence seq after d.
func expireNoticeCmd(seq int, d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return noticeExpiredMsg{Seq: seq}
	})
}
