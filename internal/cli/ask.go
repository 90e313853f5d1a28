// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/jeranaias/dropin-tui/internal/ingest"
	"github.com/jeranaias/dropin-tui/internal/model"
	"github.com/jeranaias/dropin-tui/internal/session"
)

// MaxStdinSize bounds a question read from stdin (64KB).
const MaxStdinSize = 64 * 1024

func newAskCommand(a *app) *cobra.Command {
	var (
		raw    bool
		thread string
	)
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask one question and stream the reply",
		Long: `Sends one turn to the agent and writes the reply to stdout.

When stdout is a pipe the reply is written chunk by chunk as it arrives.
On a terminal the finished reply is rendered as markdown (disable with --raw).
With no arguments the question is read from stdin.`,
		Example: `  dropin ask "What is a thread id?"
  echo "summarize this" | dropin ask
  dropin ask --raw "list three colors" > colors.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			question, err := askQuestion(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			guard := session.New()
			if thread != "" {
				guard = session.NewWithThread(thread)
			}
			ing := ingest.New(ingest.HTTP(a.client()), guard, a.logger)

			out := cmd.OutOrStdout()
			pretty := !raw && a.cfg.UI.Markdown && isTerminalWriter(out)
			return runAsk(cmd, ing, question, pretty)
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "write the reply as plain text even on a terminal")
	cmd.Flags().StringVar(&thread, "thread", "", "thread id to send (default: a new one)")
	return cmd
}

// askQuestion joins args, or reads stdin when there are none.
func askQuestion(stdin io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		q := strings.TrimSpace(strings.Join(args, " "))
		if q == "" {
			return "", usageErrorf("question is empty")
		}
		return q, nil
	}
	data, err := io.ReadAll(io.LimitReader(stdin, MaxStdinSize+1))
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	if len(data) > MaxStdinSize {
		return "", usageErrorf("question exceeds %d bytes", MaxStdinSize)
	}
	q := strings.TrimSpace(string(data))
	if q == "" {
		return "", usageErrorf("no question given (pass it as an argument or on stdin)")
	}
	return q, nil
}

// runAsk drives one turn. Plain output is written as each chunk is folded;
// pretty output waits for the whole reply.
func runAsk(cmd *cobra.Command, ing *ingest.Ingestor, question string, pretty bool) error {
	out := cmd.OutOrStdout()

	var (
		replyID string
		written int
	)
	err := ing.Run(cmd.Context(), question, func(log model.Log) {
		last, ok := log.Last()
		if !ok || last.Role != model.RoleAgent || !ing.IsLive(last.ID) {
			return
		}
		if last.ID != replyID {
			replyID, written = last.ID, 0
		}
		if !pretty {
			io.WriteString(out, last.Content[written:])
		}
		written = len(last.Content)
	})

	reply := finalReply(ing.Log(), replyID)
	switch {
	case pretty && reply != "":
		io.WriteString(out, renderMarkdown(reply, terminalWidth(out)))
	case !pretty && written > 0:
		io.WriteString(out, "\n")
	}

	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), dimStyle.Render(ingest.FailureText))
		return err
	}
	return nil
}

// finalReply returns the content of message id.
func finalReply(log model.Log, id string) string {
	if idx := log.IndexOf(id); idx >= 0 {
		return log.At(idx).Content
	}
	return ""
}

// renderMarkdown renders content for a terminal of the given width.
// Returns the original content if rendering fails.
func renderMarkdown(content string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-2),
	)
	if err != nil {
		return content
	}
	rendered, err := r.Render(content)
	if err != nil {
		return content
	}
	return rendered
}
