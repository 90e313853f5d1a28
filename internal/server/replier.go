// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/jeranaias/dropin-tui/internal/model"
	"github.com/jeranaias/dropin-tui/internal/util"
)

// Replier produces the full reply text for a conversation.
type Replier interface {
	Reply(ctx context.Context, payload model.Payload) (string, error)
}

// ReplierFunc adapts a function to Replier.
type ReplierFunc func(ctx context.Context, payload model.Payload) (string, error)

// Reply calls f.
func (f ReplierFunc) Reply(ctx context.Context, payload model.Payload) (string, error) {
	return f(ctx, payload)
}

// EchoReplier answers with a short markdown summary of the last user turn.
// The reply always contains multi-byte characters so chunk cuts split some.
type EchoReplier struct{}

// Reply implements Replier.
func (EchoReplier) Reply(ctx context.Context, p model.Payload) (string, error) {
	last := p.LastUserContent()
	if last == "" {
		return "", errors.New("no user message to answer")
	}

	turns := 0
	for _, m := range p.Messages {
		if m.Role == model.RoleUser {
			turns++
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "**Echo** · turn %d · thread `%s`\n\n", turns, util.RunePrefix(p.ThreadID, 8))
	for _, line := range strings.Split(last, "\n") {
		sb.WriteString("> ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "\nThat was %d characters across %d message(s) of history. ",
		util.RuneLen(last), len(p.Messages))
	sb.WriteString("Déjà vu: 世界 🎉\n")
	return sb.String(), nil
}

// ScriptReplier returns canned replies in order, wrapping around.
type ScriptReplier struct {
	replies []string
	next    atomic.Int64
}

// NewScriptReplier creates a replier cycling through replies.
func NewScriptReplier(replies ...string) (*ScriptReplier, error) {
	if len(replies) == 0 {
		return nil, errors.New("script has no replies")
	}
	return &ScriptReplier{replies: replies}, nil
}

// LoadScript reads replies from a file, separated by lines holding only "---".
func LoadScript(path string) (*ScriptReplier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	var replies []string
	var cur []string
	flush := func() {
		if text := strings.TrimSpace(strings.Join(cur, "\n")); text != "" {
			replies = append(replies, text)
		}
		cur = cur[:0]
	}
	for _, line := range strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == "---" {
			flush()
			continue
		}
		cur = append(cur, line)
	}
	flush()
	return NewScriptReplier(replies...)
}

// Len returns the number of replies in the script.
func (s *ScriptReplier) Len() int { return len(s.replies) }

// Reply implements Replier.
func (s *ScriptReplier) Reply(ctx context.Context, _ model.Payload) (string, error) {
	i := s.next.Add(1) - 1
	return s.replies[int(i%int64(len(s.replies)))], nil
}
