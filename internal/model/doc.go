// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the core domain types shared by the ingestor, the
// reveal engine and the chat view.
//
// # Key Types
//
//   - Message: Single message with role, content and timestamp
//   - Log: Immutable, ordered snapshot of the conversation
//   - Payload: The request body sent to the agent for one turn
//   - Role: Message role enumeration (user, assistant)
//
// # Usage
//
// Every update produces a new Log; previous snapshots are never touched:
//
//	log := model.Log{}.Append(model.NewUserMessage("Hello!"), model.NewAgentMessage())
//	last, _ := log.Last()
//	log = log.ReplaceLast(last.WithAppended("Hi"))
package model
