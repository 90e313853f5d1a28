// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reveal

// Table keeps one Buffer per live message, keyed by message ID.
// Messages without an entry are historic and render their full content.
type Table struct {
	policy  Policy
	buffers map[string]*Buffer
}

// NewTable creates an empty table whose buffers use policy.
func NewTable(policy Policy) *Table {
	return &Table{
		policy:  policy,
		buffers: make(map[string]*Buffer),
	}
}

// Attach starts revealing the message with the given ID.
// Attaching an ID that is already attached keeps the existing buffer.
func (t *Table) Attach(id string, source Source) *Buffer {
	if b, ok := t.buffers[id]; ok {
		return b
	}
	b := NewBuffer(source, t.policy)
	t.buffers[id] = b
	return b
}

// Get returns the buffer for id, if the message is being revealed.
func (t *Table) Get(id string) (*Buffer, bool) {
	b, ok := t.buffers[id]
	return b, ok
}

// Detach discards the buffer for id. The message then renders in full.
func (t *Table) Detach(id string) {
	delete(t.buffers, id)
}

// Len returns the number of attached buffers.
func (t *Table) Len() int {
	return len(t.buffers)
}

// TickAll ticks every attached buffer and reports whether any of them
// revealed more text.
func (t *Table) TickAll() bool {
	grew := false
	for _, b := range t.buffers {
		if _, advanced := b.Tick(); advanced {
			grew = true
		}
	}
	return grew
}

// SetPolicy replaces the policy for attached and future buffers.
func (t *Table) SetPolicy(p Policy) {
	t.policy = p
	for _, b := range t.buffers {
		b.SetPolicy(p)
	}
}
