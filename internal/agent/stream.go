// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"context"
	"errors"
	"io"
	"sync"

	"go.uber.org/zap"
)

// =============================================================================
// STREAM
// =============================================================================

const readBufferSize = 4096

// Stream reads the agent's chunked text reply.
//
// Next and Close may be called from different goroutines; Next itself must
// not be called concurrently.
type Stream struct {
	body    io.ReadCloser
	buf     []byte
	decoder Decoder
	total   int64
	chunks  int
	err     error
	log     *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

func newStream(body io.ReadCloser, log *zap.Logger) *Stream {
	return &Stream{
		body: body,
		buf:  make([]byte, readBufferSize),
		log:  log,
	}
}

// Next blocks until the next non-empty piece of text is available.
// It returns io.EOF once the server has closed the body. A body that closes
// without sending a single byte yields ErrEmptyBody. Once Next has returned
// an error it keeps returning the same error.
func (s *Stream) Next(ctx context.Context) (string, error) {
	if s.err != nil {
		return "", s.err
	}

	for {
		if err := ctx.Err(); err != nil {
			s.err = &ClientError{Type: ErrTypeAborted, Message: "stream cancelled", Cause: err}
			return "", s.err
		}

		n, err := s.body.Read(s.buf)
		var text string
		if n > 0 {
			s.total += int64(n)
			text = s.decoder.Decode(s.buf[:n])
		}
		if err != nil {
			s.err = s.terminate(ctx, err)
		}

		// Text that arrived with the final read is delivered first.
		if text != "" {
			s.chunks++
			return text, nil
		}
		if s.err != nil {
			return "", s.err
		}
	}
}

func (s *Stream) terminate(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, io.EOF):
		return s.finish()
	case ctx.Err() != nil:
		return &ClientError{Type: ErrTypeAborted, Message: "stream cancelled", Cause: ctx.Err()}
	default:
		return &ClientError{Type: ErrTypeConnection, Message: "connection lost mid-stream", Cause: err}
	}
}

// finish handles end of body and returns io.EOF or ErrEmptyBody.
func (s *Stream) finish() error {
	if dropped := s.decoder.Flush(); dropped > 0 {
		s.log.Debug("dropped incomplete trailing sequence", zap.Int("bytes", dropped))
	}
	if s.total == 0 {
		return ErrEmptyBody
	}
	s.log.Debug("stream complete",
		zap.Int64("bytes", s.total),
		zap.Int("chunks", s.chunks),
		zap.Int("dropped_bytes", s.decoder.Dropped()))
	return io.EOF
}

// Close releases the underlying connection. It is safe to call more than once.
func (s *Stream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}

// BytesRead returns the number of raw bytes received so far.
func (s *Stream) BytesRead() int64 {
	return s.total
}
