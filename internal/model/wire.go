// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// WireMessage is a message as the agent endpoint expects it.
type WireMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Payload is the request body for one turn: the full ordered history,
// including the new user message, plus the session's thread identifier.
type Payload struct {
	Messages []WireMessage `json:"messages"`
	ThreadID string        `json:"threadId"`
}

// LastUserContent returns the content of the final user message in the
// payload, or "" if there is none.
func (p Payload) LastUserContent() string {
	for i := len(p.Messages) - 1; i >= 0; i-- {
		if p.Messages[i].Role == RoleUser {
			return p.Messages[i].Content
		}
	}
	return ""
}
