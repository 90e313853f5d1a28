// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides a loopback agent speaking the same HTTP contract
// as the real one, for local development and tests.
//
// # Endpoints
//
//   - POST /stream        - {messages, threadId} in, chunked text/plain reply out
//   - GET  /health_check  - Health check with request counters
//
// The reply is cut into deliberately uneven byte chunks that ignore
// character boundaries, and paced by a token bucket, so a client sees the
// same bursty delivery and split UTF-8 sequences a real model produces.
// No model is called: a Replier decides the text.
//
// # Usage
//
//	srv := server.New(server.DefaultConfig(), logger)
//	go srv.Start()
//	defer srv.Shutdown(ctx)
package server
