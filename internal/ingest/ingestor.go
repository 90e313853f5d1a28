// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/jeranaias/dropin-tui/internal/model"
	"github.com/jeranaias/dropin-tui/internal/session"
)

// FailureText replaces the reply of any turn whose stream failed.
// Transport detail goes to the log file, never into the transcript.
const FailureText = "Sorry, the agent could not be reached. Please try again."

var (
	// ErrRejected is returned by Run when the submission was empty or a
	// turn was already in flight.
	ErrRejected = errors.New("submission rejected")

	// ErrNoContent marks a stream that ended without any text.
	ErrNoContent = errors.New("stream ended without content")
)

// Turn describes one admitted submission.
type Turn struct {
	UserID  string
	AgentID string
	Payload model.Payload
}

// Ingestor owns the conversation log and the live reply.
// It is not safe for concurrent use.
type Ingestor struct {
	transport Transport
	guard     *session.Guard
	logger    *zap.Logger

	log    model.Log
	liveID string
}

// New creates an Ingestor. A nil guard starts a fresh session and a nil
// logger discards output.
func New(transport Transport, guard *session.Guard, logger *zap.Logger) *Ingestor {
	if guard == nil {
		guard = session.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{
		transport: transport,
		guard:     guard,
		logger:    logger.Named("ingest").With(zap.String("thread_id", guard.ThreadID())),
	}
}

// Log returns the current snapshot.
func (i *Ingestor) Log() model.Log { return i.log }

// ThreadID returns the session's thread identifier.
func (i *Ingestor) ThreadID() string { return i.guard.ThreadID() }

// InFlight reports whether a turn is outstanding.
func (i *Ingestor) InFlight() bool { return i.guard.InFlight() }

// Status returns session bookkeeping for display.
func (i *Ingestor) Status() session.Status { return i.guard.Status() }

// Live returns the id of the message receiving chunks, if any.
func (i *Ingestor) Live() (string, bool) {
	return i.liveID, i.liveID != ""
}

// IsLive reports whether id is the live message.
func (i *Ingestor) IsLive(id string) bool {
	return id != "" && id == i.liveID
}

// Submit admits text as a new turn. Whitespace-only text, or text submitted
// while another turn is in flight, is dropped and ok is false.
//
// On success the user message and an empty agent placeholder are appended
// and the placeholder becomes live. The payload carries the full log up to
// and including the new user message.
func (i *Ingestor) Submit(text string) (turn Turn, ok bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Turn{}, false
	}
	if !i.guard.TryAcquire() {
		i.logger.Debug("submission dropped, turn in flight")
		return Turn{}, false
	}

	user := model.NewUserMessage(text)
	placeholder := model.NewAgentMessage()

	withUser := i.log.Append(user)
	turn = Turn{
		UserID:  user.ID,
		AgentID: placeholder.ID,
		Payload: model.Payload{
			Messages: withUser.Wire(),
			ThreadID: i.guard.ThreadID(),
		},
	}

	i.log = withUser.Append(placeholder)
	i.liveID = placeholder.ID

	i.logger.Debug("turn submitted",
		zap.String("message_id", placeholder.ID),
		zap.Int("history", len(turn.Payload.Messages)))
	return turn, true
}

// Open starts the reply stream for turn. A panicking transport is reported
// as an error.
func (i *Ingestor) Open(ctx context.Context, turn Turn) (stream Stream, err error) {
	defer func() {
		if r := recover(); r != nil {
			stream, err = nil, fmt.Errorf("transport panic: %v", r)
		}
	}()
	if i.transport == nil {
		return nil, errors.New("no transport configured")
	}
	return i.transport.Open(ctx, turn.Payload)
}

// Fold appends chunk verbatim to the live message id.
// It reports false, and changes nothing, for a stale id or an empty chunk.
func (i *Ingestor) Fold(id, chunk string) bool {
	if chunk == "" || !i.IsLive(id) {
		return false
	}
	last, ok := i.log.Last()
	if !ok || last.ID != id {
		return false
	}
	i.log = i.log.ReplaceLast(last.WithAppended(chunk))
	return true
}

// Finish ends the live turn after a clean end of stream and reports
// whether the reply completed. A reply that ended with no text at all is
// treated as a failure.
func (i *Ingestor) Finish(id string) bool {
	if !i.IsLive(id) {
		return false
	}
	if last, ok := i.log.Last(); ok && last.ID == id && last.IsEmpty() {
		i.Fail(id, ErrNoContent)
		return false
	}
	i.end(id)
	i.logger.Debug("turn complete", zap.String("message_id", id))
	return true
}

// Fail ends the live turn with FailureText. An empty placeholder is
// replaced; a partial reply is kept and the failure text follows it as a
// separate message.
func (i *Ingestor) Fail(id string, cause error) {
	if !i.IsLive(id) {
		return
	}
	i.logger.Warn("turn failed", zap.String("message_id", id), zap.Error(cause))

	if last, ok := i.log.Last(); ok && last.ID == id && last.IsEmpty() {
		i.log = i.log.ReplaceLast(last.WithContent(FailureText))
	} else {
		i.log = i.log.Append(model.NewMessage(model.RoleAgent, FailureText))
	}
	i.end(id)
}

func (i *Ingestor) end(id string) {
	if i.liveID == id {
		i.liveID = ""
	}
	i.guard.Release()
}

// Run drives one whole turn on the calling goroutine: submit, open, fold
// every chunk, then finish or fail. onFold, if set, sees each new snapshot.
//
// The guard is released on every path, including a panicking stream.
// Run returns ErrRejected when Submit drops text, and the transport error
// when the turn failed (the transcript then holds FailureText).
func (i *Ingestor) Run(ctx context.Context, text string, onFold func(model.Log)) (err error) {
	turn, ok := i.Submit(text)
	if !ok {
		return ErrRejected
	}
	notify := func() {
		if onFold != nil {
			onFold(i.log)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stream panic: %v", r)
			i.Fail(turn.AgentID, err)
			notify()
		}
	}()

	stream, err := i.Open(ctx, turn)
	if err != nil {
		i.Fail(turn.AgentID, err)
		notify()
		return err
	}
	defer stream.Close()

	for {
		chunk, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			completed := i.Finish(turn.AgentID)
			notify()
			if !completed {
				return ErrNoContent
			}
			return nil
		}
		if err != nil {
			i.Fail(turn.AgentID, err)
			notify()
			return err
		}
		if i.Fold(turn.AgentID, chunk) {
			notify()
		}
	}
}
