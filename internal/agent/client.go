// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/dropin-tui/internal/model"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

const (
	// DefaultBaseURL points at a locally running agent (or `dropin serve`).
	DefaultBaseURL = "http://127.0.0.1:8000"

	// StreamPath and HealthPath are the agent's endpoints.
	StreamPath = "/stream"
	HealthPath = "/health_check"
)

// ClientConfig holds configuration options for the agent client.
type ClientConfig struct {
	// BaseURL is the agent base URL (default: http://127.0.0.1:8000)
	BaseURL string

	// ConnectTimeout bounds dialing and waiting for response headers (default: 10s).
	// The streamed body itself has no deadline; cancel the context to abort it.
	ConnectTimeout time.Duration

	// HealthTimeout for the health probe (default: 5s)
	HealthTimeout time.Duration

	// Logger receives transport diagnostics (default: no-op)
	Logger *zap.Logger
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:        DefaultBaseURL,
		ConnectTimeout: 10 * time.Second,
		HealthTimeout:  5 * time.Second,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the remote agent over HTTP.
//
// The Client is safe for concurrent use.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	log        *zap.Logger
}

// NewClient creates a new agent client. A nil config uses DefaultConfig.
func NewClient(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	// Fill in defaults for any zero values
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 10 * time.Second
	}
	if config.HealthTimeout == 0 {
		config.HealthTimeout = 5 * time.Second
	}
	log := config.Logger
	if log == nil {
		log = zap.NewNop()
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   config.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ResponseHeaderTimeout: config.ConnectTimeout,
		MaxIdleConns:          4,
		IdleConnTimeout:       90 * time.Second,
	}

	return &Client{
		config: config,
		// No client-wide Timeout: it would cut long replies off mid-stream.
		httpClient: &http.Client{Transport: transport},
		log:        log.Named("agent"),
	}
}

// BaseURL returns the configured agent base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// Health verifies that the agent is reachable and healthy.
func (c *Client) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.HealthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+HealthPath, nil)
	if err != nil {
		return &ClientError{Type: ErrTypeInvalidRequest, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyDoError(err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ClientError{
			Type:    ErrTypeStatus,
			Message: "unexpected status from agent: " + resp.Status,
		}
	}
	return nil
}

// =============================================================================
// STREAMING
// =============================================================================

// Open posts the payload to the stream endpoint and returns the reply stream.
// A non-2xx status is a failure. The caller must Close the returned stream.
func (c *Client) Open(ctx context.Context, payload model.Payload) (*Stream, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidRequest, Message: "failed to encode payload", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+StreamPath, bytes.NewReader(body))
	if err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidRequest, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/plain")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("stream open failed",
			zap.String("thread_id", payload.ThreadID),
			zap.Error(err))
		return nil, classifyDoError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		drainAndClose(resp.Body)
		return nil, &ClientError{
			Type:    ErrTypeStatus,
			Message: "unexpected status from agent: " + resp.Status + " " + strings.TrimSpace(string(snippet)),
		}
	}

	c.log.Debug("stream opened",
		zap.String("thread_id", payload.ThreadID),
		zap.Int("messages", len(payload.Messages)),
		zap.Duration("ttfb", time.Since(start)))

	return newStream(resp.Body, c.log), nil
}

// =============================================================================
// HELPERS
// =============================================================================

func classifyDoError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return &ClientError{Type: ErrTypeAborted, Message: "request cancelled", Cause: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &ClientError{Type: ErrTypeTimeout, Message: ErrTimeout.Message, Cause: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ClientError{Type: ErrTypeTimeout, Message: ErrTimeout.Message, Cause: err}
	}
	return &ClientError{Type: ErrTypeConnection, Message: ErrUnreachable.Message, Cause: err}
}

// drainAndClose drains and closes an HTTP response body so the connection
// can be reused.
func drainAndClose(r io.ReadCloser) {
	io.Copy(io.Discard, io.LimitReader(r, 64<<10))
	r.Close()
}
