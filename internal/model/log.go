// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// LOG TYPE
// =============================================================================

// Log is an ordered, immutable snapshot of a conversation.
// Insertion order is display order is conversation order.
//
// The zero value is an empty log. Every operation returns a new Log that
// shares nothing writable with its receiver, so a renderer comparing the
// previous snapshot sees no mutation.
type Log struct {
	messages []Message
}

// NewLog creates a log holding a copy of msgs.
func NewLog(msgs ...Message) Log {
	return Log{}.Append(msgs...)
}

// Len returns the number of messages.
func (l Log) Len() int {
	return len(l.messages)
}

// At returns the message at index i. It panics if i is out of range.
func (l Log) At(i int) Message {
	return l.messages[i]
}

// Last returns the final message, if any.
func (l Log) Last() (Message, bool) {
	if len(l.messages) == 0 {
		return Message{}, false
	}
	return l.messages[len(l.messages)-1], true
}

// Messages returns a copy of the messages in order.
func (l Log) Messages() []Message {
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Append returns a new log with msgs added at the tail.
func (l Log) Append(msgs ...Message) Log {
	next := make([]Message, len(l.messages), len(l.messages)+len(msgs))
	copy(next, l.messages)
	return Log{messages: append(next, msgs...)}
}

// ReplaceLast returns a new log with the tail entry replaced by m.
// Replacing the tail of an empty log appends m.
func (l Log) ReplaceLast(m Message) Log {
	if len(l.messages) == 0 {
		return l.Append(m)
	}
	next := make([]Message, len(l.messages))
	copy(next, l.messages)
	next[len(next)-1] = m
	return Log{messages: next}
}

// IndexOf returns the index of the message with the given ID, or -1.
func (l Log) IndexOf(id string) int {
	for i := len(l.messages) - 1; i >= 0; i-- {
		if l.messages[i].ID == id {
			return i
		}
	}
	return -1
}

// Wire converts the whole log to its request representation.
func (l Log) Wire() []WireMessage {
	out := make([]WireMessage, 0, len(l.messages))
	for _, m := range l.messages {
		out = append(out, m.Wire())
	}
	return out
}
