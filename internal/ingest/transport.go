// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import (
	"context"

	"github.com/jeranaias/dropin-tui/internal/agent"
	"github.com/jeranaias/dropin-tui/internal/model"
)

// Stream yields the text of one reply.
// Next returns io.EOF after the last chunk. Any other error is a failure.
type Stream interface {
	Next(ctx context.Context) (string, error)
	Close() error
}

// Transport opens one reply stream per turn.
type Transport interface {
	Open(ctx context.Context, payload model.Payload) (Stream, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, payload model.Payload) (Stream, error)

// Open calls f.
func (f TransportFunc) Open(ctx context.Context, payload model.Payload) (Stream, error) {
	return f(ctx, payload)
}

// HTTP returns a Transport backed by the agent HTTP client.
func HTTP(client *agent.Client) Transport {
	return TransportFunc(func(ctx context.Context, payload model.Payload) (Stream, error) {
		s, err := client.Open(ctx, payload)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}
