// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"testing"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestRole_DisplayName(t *testing.T) {
	tests := []struct {
		role Role
		want string
	}{
		{RoleUser, "You"},
		{RoleAgent, "Agent"},
		{Role("tool"), "tool"},
	}
	for _, tt := range tests {
		if got := tt.role.DisplayName(); got != tt.want {
			t.Errorf("%q.DisplayName() = %q, want %q", tt.role, got, tt.want)
		}
	}
}

func TestNewMessage_UniqueIDs(t *testing.T) {
	a := NewUserMessage("hi")
	b := NewUserMessage("hi")
	if a.ID == "" || b.ID == "" {
		t.Fatal("expected generated IDs")
	}
	if a.ID == b.ID {
		t.Errorf("expected distinct IDs, both were %q", a.ID)
	}
}

func TestMessage_WithAppendedLeavesOriginal(t *testing.T) {
	orig := NewAgentMessage()
	next := orig.WithAppended("Hel")

	if orig.Content != "" {
		t.Errorf("original mutated: %q", orig.Content)
	}
	if next.Content != "Hel" {
		t.Errorf("expected 'Hel', got %q", next.Content)
	}
	if next.ID != orig.ID {
		t.Error("appending must keep the message identity")
	}
}

// =============================================================================
// LOG TESTS
// =============================================================================

func TestLog_ZeroValue(t *testing.T) {
	var l Log
	if l.Len() != 0 {
		t.Errorf("expected empty log, got %d", l.Len())
	}
	if _, ok := l.Last(); ok {
		t.Error("Last() on empty log should report false")
	}
}

func TestLog_AppendDoesNotMutateReceiver(t *testing.T) {
	base := NewLog(NewUserMessage("one"))
	a := base.Append(NewAgentMessage())
	b := base.Append(NewUserMessage("two"))

	if base.Len() != 1 {
		t.Fatalf("base changed length to %d", base.Len())
	}
	if a.At(1).Role != RoleAgent || b.At(1).Role != RoleUser {
		t.Error("sibling appends interfered with each other")
	}
}

func TestLog_ReplaceLastIsCopyOnWrite(t *testing.T) {
	agent := NewAgentMessage()
	before := NewLog(NewUserMessage("q"), agent)

	after := before.ReplaceLast(agent.WithAppended("answer"))

	if got := before.At(1).Content; got != "" {
		t.Errorf("previous snapshot mutated: %q", got)
	}
	if got := after.At(1).Content; got != "answer" {
		t.Errorf("expected 'answer', got %q", got)
	}
	if after.At(0).ID != before.At(0).ID {
		t.Error("non-tail entries must be preserved")
	}
}

func TestLog_ReplaceLastOnEmptyAppends(t *testing.T) {
	l := Log{}.ReplaceLast(NewAgentMessage())
	if l.Len() != 1 {
		t.Errorf("expected 1 message, got %d", l.Len())
	}
}

func TestLog_MessagesReturnsCopy(t *testing.T) {
	l := NewLog(NewUserMessage("a"))
	msgs := l.Messages()
	msgs[0].Content = "changed"

	if l.At(0).Content != "a" {
		t.Error("Messages() leaked the backing array")
	}
}

func TestLog_IndexOf(t *testing.T) {
	u := NewUserMessage("a")
	g := NewAgentMessage()
	l := NewLog(u, g)

	if i := l.IndexOf(g.ID); i != 1 {
		t.Errorf("IndexOf(agent) = %d, want 1", i)
	}
	if i := l.IndexOf("missing"); i != -1 {
		t.Errorf("IndexOf(missing) = %d, want -1", i)
	}
}

// =============================================================================
// WIRE TESTS
// =============================================================================

func TestPayload_JSONShape(t *testing.T) {
	l := NewLog(NewUserMessage("What is APOC?"))
	p := Payload{Messages: l.Wire(), ThreadID: "thread-1"}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"messages":[{"role":"user","content":"What is APOC?"}],"threadId":"thread-1"}`
	if string(data) != want {
		t.Errorf("got %s\nwant %s", data, want)
	}
}

func TestPayload_LastUserContent(t *testing.T) {
	p := Payload{Messages: []WireMessage{
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "reply"},
		{Role: "user", Content: "second"},
	}}
	if got := p.LastUserContent(); got != "second" {
		t.Errorf("got %q, want 'second'", got)
	}
	if got := (Payload{}).LastUserContent(); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}

func TestMessage_WireKeepsRole(t *testing.T) {
	w := NewMessage(RoleAgent, "reply").Wire()
	if w.Role != RoleAgent {
		t.Errorf("got role %q, want %q", w.Role, RoleAgent)
	}
	p := Payload{Messages: []WireMessage{NewUserMessage("q").Wire(), w}}
	if got := p.LastUserContent(); got != "q" {
		t.Errorf("got %q, want 'q'", got)
	}
}
