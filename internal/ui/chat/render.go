// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// markdownRenderer renders completed agent replies with glamour and caches
// the output per message. Completed messages never change, so an entry is
// valid until the renderer is rebuilt.
type markdownRenderer struct {
	enabled  bool
	renderer *glamour.TermRenderer
	cache    map[string]string
}

// newMarkdownRenderer builds a renderer for style wrapped at width. When
// enabled is false, or glamour cannot be set up, Render returns the text as is.
func newMarkdownRenderer(style string, width int, enabled bool) *markdownRenderer {
	r := &markdownRenderer{enabled: enabled, cache: make(map[string]string)}
	if !enabled {
		return r
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		r.enabled = false
		return r
	}
	r.renderer = tr
	return r
}

// Render returns the rendered form of content for message id.
func (r *markdownRenderer) Render(id, content string) string {
	if !r.enabled || r.renderer == nil {
		return content
	}
	if out, ok := r.cache[id]; ok {
		return out
	}
	out, err := r.renderer.Render(content)
	if err != nil {
		return content
	}
	out = strings.Trim(out, "\n")
	r.cache[id] = out
	return out
}

// forget drops the cached output for id.
func (r *markdownRenderer) forget(id string) {
	delete(r.cache, id)
}
