// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the dropin command tree.
//
// # Commands
//
//   - dropin: interactive chat (default)
//   - ask: one turn, reply streamed to stdout
//   - health: probe the agent's health endpoint
//   - serve: run the loopback demo agent
//   - config init|show|path: manage ~/.dropin/config.toml
//   - version: build information
//
// # Global Flags
//
//	--config PATH      config file (default ~/.dropin/config.toml)
//	--base-url URL     agent base URL (overrides config and env)
//	--log-level LEVEL  debug, info, warn, error or off
//
// Errors are returned from RunE and mapped to an exit code by ExitCode.
package cli
