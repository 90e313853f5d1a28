// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jeranaias/dropin-tui/internal/agent"
	"github.com/jeranaias/dropin-tui/internal/model"
	"github.com/jeranaias/dropin-tui/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// httptest keep-alive connections wind down asynchronously
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
	)
}

// =============================================================================
// FAKES
// =============================================================================

type scriptStream struct {
	chunks []string
	err    error // returned after chunks instead of io.EOF
	panics bool
	closed atomic.Bool
}

func (s *scriptStream) Next(ctx context.Context) (string, error) {
	if s.panics {
		panic("boom")
	}
	if len(s.chunks) == 0 {
		if s.err != nil {
			return "", s.err
		}
		return "", io.EOF
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	return c, nil
}

func (s *scriptStream) Close() error {
	s.closed.Store(true)
	return nil
}

type fakeTransport struct {
	calls    atomic.Int32
	stream   *scriptStream
	openErr  error
	payloads []model.Payload
}

func (f *fakeTransport) Open(ctx context.Context, p model.Payload) (Stream, error) {
	f.calls.Add(1)
	f.payloads = append(f.payloads, p)
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.stream, nil
}

func newIngestor(tr Transport) *Ingestor {
	return New(tr, session.NewWithThread("thread-1"), nil)
}

// =============================================================================
// SUBMIT
// =============================================================================

func TestSubmit_AppendsUserAndPlaceholder(t *testing.T) {
	in := newIngestor(&fakeTransport{})

	turn, ok := in.Submit("  What is APOC?  ")
	require.True(t, ok)

	log := in.Log()
	require.Equal(t, 2, log.Len())
	assert.Equal(t, model.RoleUser, log.At(0).Role)
	assert.Equal(t, "What is APOC?", log.At(0).Content)
	assert.Equal(t, turn.UserID, log.At(0).ID)

	assert.Equal(t, model.RoleAgent, log.At(1).Role)
	assert.True(t, log.At(1).IsEmpty())
	assert.Equal(t, turn.AgentID, log.At(1).ID)

	id, live := in.Live()
	assert.True(t, live)
	assert.Equal(t, turn.AgentID, id)
	assert.True(t, in.InFlight())

	// Payload ends with the new user message, never the placeholder
	require.Len(t, turn.Payload.Messages, 1)
	assert.Equal(t, "What is APOC?", turn.Payload.LastUserContent())
	assert.Equal(t, "thread-1", turn.Payload.ThreadID)
}

func TestSubmit_RejectsBlank(t *testing.T) {
	in := newIngestor(&fakeTransport{})
	for _, text := range []string{"", "   ", "\n\t "} {
		_, ok := in.Submit(text)
		assert.False(t, ok, "%q", text)
	}
	assert.Equal(t, 0, in.Log().Len())
	assert.False(t, in.InFlight())
}

func TestSubmit_SingleFlight(t *testing.T) {
	tr := &fakeTransport{stream: &scriptStream{chunks: []string{"ok"}}}
	in := newIngestor(tr)

	first, ok := in.Submit("one")
	require.True(t, ok)
	_, ok = in.Submit("two")
	assert.False(t, ok)

	stream, err := in.Open(context.Background(), first)
	require.NoError(t, err)
	defer stream.Close()

	assert.Equal(t, int32(1), tr.calls.Load())
	users := 0
	for _, m := range in.Log().Messages() {
		if m.Role == model.RoleUser {
			users++
			assert.Equal(t, "one", m.Content)
		}
	}
	assert.Equal(t, 1, users)
}

func TestSubmit_PayloadCarriesHistory(t *testing.T) {
	tr := &fakeTransport{stream: &scriptStream{chunks: []string{"first reply"}}}
	in := newIngestor(tr)
	require.NoError(t, in.Run(context.Background(), "first", nil))

	tr.stream = &scriptStream{chunks: []string{"second reply"}}
	require.NoError(t, in.Run(context.Background(), "second", nil))

	require.Len(t, tr.payloads, 2)
	second := tr.payloads[1].Messages
	require.Len(t, second, 3)
	assert.Equal(t, model.WireMessage{Role: model.RoleUser, Content: "first"}, second[0])
	assert.Equal(t, model.WireMessage{Role: model.RoleAgent, Content: "first reply"}, second[1])
	assert.Equal(t, model.WireMessage{Role: model.RoleUser, Content: "second"}, second[2])
}

// =============================================================================
// FOLD
// =============================================================================

func TestFold_AppendsInOrder(t *testing.T) {
	in := newIngestor(&fakeTransport{})
	turn, ok := in.Submit("hi")
	require.True(t, ok)

	prev := ""
	for _, chunk := range []string{"Hel", "lo, ", "world"} {
		before := in.Log()
		require.True(t, in.Fold(turn.AgentID, chunk))

		last, _ := in.Log().Last()
		assert.True(t, strings.HasPrefix(last.Content, prev))
		prev = last.Content

		// Earlier snapshot is untouched
		old, _ := before.Last()
		assert.Equal(t, len(last.Content)-len(chunk), len(old.Content))
	}
	assert.Equal(t, "Hello, world", prev)
	assert.True(t, in.IsLive(turn.AgentID))
}

func TestFold_IgnoresStaleAndEmpty(t *testing.T) {
	in := newIngestor(&fakeTransport{})
	turn, _ := in.Submit("hi")

	assert.False(t, in.Fold("not-a-message", "x"))
	assert.False(t, in.Fold(turn.AgentID, ""))

	require.True(t, in.Fold(turn.AgentID, "done"))
	require.True(t, in.Finish(turn.AgentID))

	assert.False(t, in.Fold(turn.AgentID, "late"))
	last, _ := in.Log().Last()
	assert.Equal(t, "done", last.Content)
	assert.False(t, in.IsLive(turn.AgentID))
	assert.False(t, in.InFlight())
}

// =============================================================================
// FAILURE
// =============================================================================

func TestFail_ReplacesEmptyPlaceholder(t *testing.T) {
	in := newIngestor(&fakeTransport{})
	turn, _ := in.Submit("hi")

	in.Fail(turn.AgentID, errors.New("connection refused"))

	log := in.Log()
	require.Equal(t, 2, log.Len())
	last, _ := log.Last()
	assert.Equal(t, turn.AgentID, last.ID)
	assert.Equal(t, model.RoleAgent, last.Role)
	assert.Equal(t, FailureText, last.Content)
	assert.False(t, in.InFlight())

	_, ok := in.Submit("again")
	assert.True(t, ok)
}

func TestFail_KeepsPartialReply(t *testing.T) {
	in := newIngestor(&fakeTransport{})
	turn, _ := in.Submit("hi")
	in.Fold(turn.AgentID, "partial")

	in.Fail(turn.AgentID, errors.New("reset by peer"))

	log := in.Log()
	require.Equal(t, 3, log.Len())
	assert.Equal(t, "partial", log.At(1).Content)
	assert.Equal(t, FailureText, log.At(2).Content)
	assert.Equal(t, model.RoleAgent, log.At(2).Role)
	_, live := in.Live()
	assert.False(t, live)
}

func TestFail_StaleIDIgnored(t *testing.T) {
	in := newIngestor(&fakeTransport{})
	turn, _ := in.Submit("hi")
	in.Fold(turn.AgentID, "ok")
	in.Finish(turn.AgentID)

	in.Fail(turn.AgentID, errors.New("late"))
	assert.Equal(t, 2, in.Log().Len())
}

func TestFinish_EmptyReplyFails(t *testing.T) {
	in := newIngestor(&fakeTransport{})
	turn, _ := in.Submit("hi")

	assert.False(t, in.Finish(turn.AgentID))
	last, _ := in.Log().Last()
	assert.Equal(t, FailureText, last.Content)
	assert.False(t, in.InFlight())
}

// =============================================================================
// RUN
// =============================================================================

func TestRun_Success(t *testing.T) {
	stream := &scriptStream{chunks: []string{"Hel", "lo, ", "world"}}
	in := newIngestor(&fakeTransport{stream: stream})

	var snapshots []string
	err := in.Run(context.Background(), "hi", func(l model.Log) {
		last, _ := l.Last()
		snapshots = append(snapshots, last.Content)
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Hel", "Hello, ", "Hello, world", "Hello, world"}, snapshots)
	assert.True(t, stream.closed.Load())
	assert.False(t, in.InFlight())
}

func TestRun_OpenError(t *testing.T) {
	openErr := &agent.ClientError{Type: agent.ErrTypeConnection, Message: "agent is not reachable"}
	in := newIngestor(&fakeTransport{openErr: openErr})

	err := in.Run(context.Background(), "hi", nil)
	require.Error(t, err)
	assert.True(t, agent.IsConnection(err))

	log := in.Log()
	require.Equal(t, 2, log.Len())
	assert.Equal(t, FailureText, log.At(1).Content)
	assert.False(t, in.InFlight())
}

func TestRun_StreamErrorMidway(t *testing.T) {
	stream := &scriptStream{chunks: []string{"par"}, err: io.ErrUnexpectedEOF}
	in := newIngestor(&fakeTransport{stream: stream})

	err := in.Run(context.Background(), "hi", nil)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, 3, in.Log().Len())
	assert.True(t, stream.closed.Load())
	assert.False(t, in.InFlight())
}

func TestRun_PanicReleasesGuard(t *testing.T) {
	stream := &scriptStream{panics: true}
	in := newIngestor(&fakeTransport{stream: stream})

	err := in.Run(context.Background(), "hi", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")
	assert.True(t, stream.closed.Load())
	assert.False(t, in.InFlight())

	last, _ := in.Log().Last()
	assert.Equal(t, FailureText, last.Content)
}

func TestRun_Rejected(t *testing.T) {
	in := newIngestor(&fakeTransport{})
	assert.ErrorIs(t, in.Run(context.Background(), "  ", nil), ErrRejected)
}

func TestRun_ThreadIDStable(t *testing.T) {
	tr := &fakeTransport{stream: &scriptStream{chunks: []string{"a"}}}
	in := New(tr, nil, nil)
	require.NoError(t, in.Run(context.Background(), "one", nil))
	tr.stream = &scriptStream{chunks: []string{"b"}}
	require.NoError(t, in.Run(context.Background(), "two", nil))

	require.Len(t, tr.payloads, 2)
	assert.NotEmpty(t, tr.payloads[0].ThreadID)
	assert.Equal(t, tr.payloads[0].ThreadID, tr.payloads[1].ThreadID)
	assert.Equal(t, in.ThreadID(), tr.payloads[1].ThreadID)
}

func TestOpen_NoTransport(t *testing.T) {
	in := New(nil, nil, nil)
	turn, ok := in.Submit("hi")
	require.True(t, ok)
	_, err := in.Open(context.Background(), turn)
	assert.Error(t, err)
}

// =============================================================================
// HTTP TRANSPORT
// =============================================================================

func TestRun_OverHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f := w.(http.Flusher)
		for _, p := range []string{"Hel", "lo, ", "world"} {
			io.WriteString(w, p)
			f.Flush()
		}
	}))
	defer srv.Close()

	in := newIngestor(HTTP(agent.NewClient(&agent.ClientConfig{BaseURL: srv.URL})))
	require.NoError(t, in.Run(context.Background(), "hi", nil))

	last, _ := in.Log().Last()
	assert.Equal(t, "Hello, world", last.Content)
}

func TestRun_OverHTTP_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	in := newIngestor(HTTP(agent.NewClient(&agent.ClientConfig{BaseURL: url})))
	err := in.Run(context.Background(), "hi", nil)
	require.Error(t, err)

	log := in.Log()
	require.Equal(t, 2, log.Len())
	assert.Equal(t, FailureText, log.At(1).Content)
	_, ok := in.Submit("retry")
	assert.True(t, ok)
}
