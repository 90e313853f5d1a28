// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"testing"

	"github.com/muesli/termenv"
)

func TestNewTheme_ForcedModes(t *testing.T) {
	dark := NewTheme("dark")
	if !dark.IsDark {
		t.Error("dark theme should report IsDark")
	}
	light := NewTheme("light")
	if light.IsDark {
		t.Error("light theme should not report IsDark")
	}
}

func TestGlamourStyle(t *testing.T) {
	th := &Theme{IsDark: true, ColorProfile: termenv.TrueColor}
	if got := th.GlamourStyle(); got != "dark" {
		t.Errorf("GlamourStyle() = %q, want dark", got)
	}
	th.IsDark = false
	if got := th.GlamourStyle(); got != "light" {
		t.Errorf("GlamourStyle() = %q, want light", got)
	}
	th.ColorProfile = termenv.Ascii
	if got := th.GlamourStyle(); got != "notty" {
		t.Errorf("GlamourStyle() = %q, want notty", got)
	}
}

func TestContentWidth(t *testing.T) {
	th := NewTheme("dark")
	th.SetSize(80, 24)
	if got := th.ContentWidth(); got != 78 {
		t.Errorf("ContentWidth() = %d, want 78", got)
	}
	th.SetSize(4, 24)
	if got := th.ContentWidth(); got != 10 {
		t.Errorf("ContentWidth() = %d, want 10", got)
	}
}
