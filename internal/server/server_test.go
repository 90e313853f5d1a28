// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jeranaias/dropin-tui/internal/agent"
	"github.com/jeranaias/dropin-tui/internal/model"
)

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.ChunksPerSecond = 10000
	cfg.Burst = 1000
	return cfg
}

// pacedConfig spaces chunks far enough apart that each arrives in its own read.
func pacedConfig() Config {
	cfg := DefaultConfig()
	cfg.ChunksPerSecond = 200
	cfg.Burst = 1
	return cfg
}

func payload(texts ...string) model.Payload {
	var log model.Log
	for i, t := range texts {
		if i%2 == 0 {
			log = log.Append(model.NewUserMessage(t))
		} else {
			log = log.Append(model.NewMessage(model.RoleAgent, t))
		}
	}
	return model.Payload{Messages: log.Wire(), ThreadID: "0123456789abcdef"}
}

func postJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	resp, err := http.Post(url+"/stream", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

// =============================================================================
// CHUNKING
// =============================================================================

func TestSplitUneven(t *testing.T) {
	data := []byte("Hello, 世界 🎉 and more text")
	chunks := SplitUneven(data, []int{3, 1, 7})

	assert.Equal(t, data, bytes.Join(chunks, nil))
	assert.Len(t, chunks[0], 3)
	assert.Len(t, chunks[1], 1)
	assert.Len(t, chunks[2], 7)
	assert.Len(t, chunks[3], 3)

	split := false
	for _, c := range chunks {
		if !utf8.Valid(c) {
			split = true
		}
	}
	assert.True(t, split, "expected at least one chunk to cut a character")
}

func TestSplitUneven_Edges(t *testing.T) {
	assert.Nil(t, SplitUneven(nil, []int{3}))
	chunks := SplitUneven([]byte("abc"), nil)
	assert.Len(t, chunks, 3)
	chunks = SplitUneven([]byte("abc"), []int{0, 10})
	assert.Equal(t, [][]byte{[]byte("a"), []byte("bc")}, chunks)
}

// =============================================================================
// STREAM ENDPOINT
// =============================================================================

func TestStream_EchoThroughClient(t *testing.T) {
	srv := New(pacedConfig(), nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	p := payload("What is APOC?")
	want, err := EchoReplier{}.Reply(context.Background(), p)
	require.NoError(t, err)

	stream, err := agent.NewClient(&agent.ClientConfig{BaseURL: ts.URL}).Open(context.Background(), p)
	require.NoError(t, err)
	defer stream.Close()

	var sb strings.Builder
	pieces := 0
	for {
		chunk, err := stream.Next(context.Background())
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		assert.True(t, utf8.ValidString(chunk))
		sb.WriteString(chunk)
		pieces++
	}

	assert.Equal(t, want, sb.String())
	assert.Contains(t, want, "> What is APOC?")
	assert.Contains(t, want, "`01234567`")
	assert.Greater(t, pieces, 1)
	assert.Equal(t, int64(1), srv.Stats().Streams.Load())
	assert.Equal(t, int64(len(want)), srv.Stats().BytesSent.Load())
}

func TestStream_ScriptReplier(t *testing.T) {
	script, err := NewScriptReplier("first", "second")
	require.NoError(t, err)
	srv := New(fastConfig(), nil).WithReplier(script)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	for _, want := range []string{"first", "second", "first"} {
		resp := postJSON(t, ts.URL, payload("hi"))
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, want, string(body))
		assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))
	}
}

func TestStream_ReplierErrorIsInBand(t *testing.T) {
	srv := New(fastConfig(), nil).WithReplier(ReplierFunc(func(context.Context, model.Payload) (string, error) {
		return "", errors.New("quota exhausted")
	}))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp := postJSON(t, ts.URL, payload("hi"))
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "\nError: quota exhausted", string(body))
}

func TestStream_RejectsBadRequests(t *testing.T) {
	srv := New(fastConfig(), nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed", `{"messages":`, http.StatusBadRequest},
		{"empty", `{"messages":[],"threadId":"t"}`, http.StatusUnprocessableEntity},
		{"bad role", `{"messages":[{"role":"tool","content":"x"}],"threadId":"t"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/stream", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)

			var body map[string]string
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.NotEmpty(t, body["detail"])
		})
	}
}

func TestStream_WrongMethod(t *testing.T) {
	ts := httptest.NewServer(New(fastConfig(), nil).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/stream")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

// =============================================================================
// HEALTH
// =============================================================================

func TestHealth(t *testing.T) {
	srv := New(fastConfig(), nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	require.NoError(t, agent.NewClient(&agent.ClientConfig{BaseURL: ts.URL}).Health(context.Background()))

	resp, err := http.Get(ts.URL + "/health_check")
	require.NoError(t, err)
	defer resp.Body.Close()

	var health HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, Version, health.Version)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(0.001), 2)
	h := RateLimitMiddleware(limiter, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 3)
	for i := range codes {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes[i] = rec.Code
	}
	assert.Equal(t, []int{204, 204, 429}, codes)

	// Another client has its own bucket
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 2, limiter.Len())
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequestIDMiddleware_KeepsClientID(t *testing.T) {
	var seen string
	h := RequestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFrom(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc", seen)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-Id"))
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(mw("a"), mw("b"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "h")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b", "h"}, order)
}

// =============================================================================
// SCRIPT + LIFECYCLE
// =============================================================================

func TestLoadScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.txt")
	require.NoError(t, os.WriteFile(path, []byte("one\nline two\n---\n\n---\nthree\r\n"), 0600))

	s, err := LoadScript(path)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())

	r1, _ := s.Reply(context.Background(), model.Payload{})
	r2, _ := s.Reply(context.Background(), model.Payload{})
	assert.Equal(t, "one\nline two", r1)
	assert.Equal(t, "three", r2)

	_, err = NewScriptReplier()
	assert.Error(t, err)
}

func TestServeAndShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := New(fastConfig(), nil)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	client := agent.NewClient(&agent.ClientConfig{BaseURL: "http://" + ln.Addr().String()})
	require.Eventually(t, func() bool {
		return client.Health(context.Background()) == nil
	}, 2*time.Second, 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.NoError(t, <-done)
}
