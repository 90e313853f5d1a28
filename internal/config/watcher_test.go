// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestWatcher_DeliversReload(t *testing.T) {
	defer goleak.VerifyNone(t)
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[reveal]\ntick_ms = 15\n")

	w, err := NewWatcher(path, 20*time.Millisecond, nil)
	require.NoError(t, err)
	w.Start()
	defer w.Close()

	writeFile(t, path, "[reveal]\ntick_ms = 45\n")

	select {
	case cfg := <-w.Updates():
		assert.Equal(t, 45, cfg.Reveal.TickMs)
	case err := <-w.Errors():
		t.Fatalf("unexpected reload error: %v", err)
	case <-time.After(3 * time.Second):
		t.Fatal("no reload delivered")
	}
}

func TestWatcher_ReportsInvalidFile(t *testing.T) {
	defer goleak.VerifyNone(t)
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[reveal]\ntick_ms = 15\n")

	w, err := NewWatcher(path, 20*time.Millisecond, nil)
	require.NoError(t, err)
	w.Start()
	defer w.Close()

	writeFile(t, path, "[reveal]\ntick_ms = -1\n")

	select {
	case err := <-w.Errors():
		assert.Contains(t, err.Error(), "reveal.tick_ms")
	case <-w.Updates():
		t.Fatal("invalid config should not be delivered")
	case <-time.After(3 * time.Second):
		t.Fatal("no error delivered")
	}
}

func TestWatcher_IgnoresSiblingFiles(t *testing.T) {
	defer goleak.VerifyNone(t)
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, "")

	w, err := NewWatcher(path, 20*time.Millisecond, nil)
	require.NoError(t, err)
	w.Start()
	defer w.Close()

	writeFile(t, filepath.Join(dir, "other.toml"), "[reveal]\ntick_ms = 99\n")

	select {
	case <-w.Updates():
		t.Fatal("sibling file triggered a reload")
	case <-time.After(200 * time.Millisecond):
	}
}
