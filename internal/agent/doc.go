// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package agent provides the HTTP client for the remote chat agent.
//
// The agent exposes two endpoints:
//   - POST /stream        - takes {messages, threadId}, replies with a chunked
//     text/plain body that ends when the server closes it
//   - GET  /health_check  - liveness probe
//
// Chunk boundaries are whatever the network delivers. A Stream re-assembles
// UTF-8 sequences split across reads so callers only ever see whole
// characters.
//
// Example:
//
//	client := agent.NewClient(agent.DefaultConfig())
//	stream, err := client.Open(ctx, payload)
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//	for {
//	    chunk, err := stream.Next(ctx)
//	    if err == io.EOF {
//	        break
//	    }
//	    ...
//	}
package agent
