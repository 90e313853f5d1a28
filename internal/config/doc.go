// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and live reload for dropin.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - AgentConfig: Where the agent lives and how long to wait for it
//   - RevealConfig: Tick period and step curve of the reply animation
//   - Watcher: Delivers a freshly loaded Config whenever the file changes
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Command line flags (applied by the cli package)
//   - Environment variables (DROPIN_*)
//   - ~/.dropin/config.toml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	tick := cfg.Reveal.TickInterval()
package config
