// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"resty.dev/v3"

	"github.com/it-at-m/mucgpt-sub002/internal/logging"
)

// Configuration constants for the chat backend.
const (
	// DefaultChatPath is the streaming chat endpoint of the MUCGPT backend.
	DefaultChatPath = "/api/backend/chatstream"

	// DefaultTimeout bounds the wait for response headers. The stream itself
	// is only bounded by the caller's context.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for transient errors.
	DefaultMaxRetries = 3

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay is the maximum delay for exponential backoff.
	retryMaxDelay = 10 * time.Second

	// maxErrorBodySize caps how much of an error response is read.
	maxErrorBodySize = 64 * 1024
)

// ErrNotConfigured indicates the backend URL is not set.
var ErrNotConfigured = errors.New("chat backend not configured")

// BackendError is a non-2xx response received before the stream started.
type BackendError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *BackendError) Error() string {
	return fmt.Sprintf("backend error (HTTP %d): %s", e.Status, e.Message)
}

// Temporary reports whether a retry may succeed.
func (e *BackendError) Temporary() bool {
	return e.Status >= 500
}

// =============================================================================
// CLIENT
// =============================================================================

// Client opens chat streams against the MUCGPT backend.
// Configure it with the With* methods before the first request.
type Client struct {
	http       *resty.Client
	transport  *http.Transport
	baseURL    string
	chatPath   string
	apiKey     string
	maxRetries int
	log        zerolog.Logger

	// sleep waits between retries; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = DefaultTimeout

	log := logging.Get()
	c := &Client{
		http:       resty.NewWithClient(&http.Client{Transport: transport}),
		transport:  transport,
		baseURL:    strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		chatPath:   DefaultChatPath,
		maxRetries: DefaultMaxRetries,
		log:        log,
		sleep:      sleepContext,
	}
	c.http.SetLogger(restyLogger{log: log})
	return c
}

// WithAPIKey sets the bearer token sent with each request.
func (c *Client) WithAPIKey(key string) *Client {
	c.apiKey = strings.TrimSpace(key)
	return c
}

// WithChatPath sets the path of the streaming endpoint.
func (c *Client) WithChatPath(path string) *Client {
	if path != "" {
		c.chatPath = "/" + strings.TrimPrefix(path, "/")
	}
	return c
}

// WithTimeout sets how long to wait for response headers.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.transport.ResponseHeaderTimeout = timeout
	return c
}

// WithMaxRetries sets the maximum number of retry attempts.
func (c *Client) WithMaxRetries(maxRetries int) *Client {
	if maxRetries >= 0 {
		c.maxRetries = maxRetries
	}
	return c
}

// WithLogger sets the logger for request and retry logging.
func (c *Client) WithLogger(log zerolog.Logger) *Client {
	c.log = log
	c.http.SetLogger(restyLogger{log: log})
	return c
}

// IsConfigured returns true if a backend URL is set.
func (c *Client) IsConfigured() bool {
	return c.baseURL != ""
}

// Endpoint returns the full URL of the chat endpoint.
func (c *Client) Endpoint() string {
	return c.baseURL + c.chatPath
}

// Close releases the underlying HTTP client.
func (c *Client) Close() error {
	c.transport.CloseIdleConnections()
	return c.http.Close()
}

// =============================================================================
// STREAMING
// =============================================================================

// Stream posts req and returns the event stream body. The caller must close it.
// Network errors and 5xx responses are retried with exponential backoff;
// 4xx responses and cancellation are returned immediately.
func (c *Client) Stream(ctx context.Context, req ChatRequest) (io.ReadCloser, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	req.ShouldStream = true

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.calculateBackoff(attempt - 1)
			c.log.Warn().
				Err(lastErr).
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("Retrying chat request")
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		body, err := c.open(ctx, req)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !c.isRetryable(ctx, err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// open performs a single attempt.
func (c *Client) open(ctx context.Context, req ChatRequest) (io.ReadCloser, error) {
	r := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetDoNotParseResponse(true).
		SetHeader("Accept", "text/event-stream").
		SetHeader("Accept-Encoding", "identity")
	if c.apiKey != "" {
		r.SetAuthToken(c.apiKey)
	}

	start := time.Now()
	resp, err := r.Post(c.Endpoint())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("send chat request: %w", err)
	}

	// Secure logging: status and duration only, never headers or body.
	c.log.Debug().
		Str("path", c.chatPath).
		Int("status", resp.StatusCode()).
		Dur("duration", time.Since(start)).
		Msg("Chat request")

	if resp.Body == nil {
		return nil, &BackendError{Status: resp.StatusCode(), Message: "empty response body"}
	}
	if resp.IsError() {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, &BackendError{Status: resp.StatusCode(), Message: errorMessage(resp.StatusCode(), data)}
	}
	return resp.Body, nil
}

// isRetryable determines if an error should trigger a retry.
func (c *Client) isRetryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var backendErr *BackendError
	if errors.As(err, &backendErr) {
		return backendErr.Temporary()
	}
	return true
}

// calculateBackoff returns the delay to wait before the next retry.
func (c *Client) calculateBackoff(attempt int) time.Duration {
	// Exponential backoff: 500ms, 1000ms, 2000ms, etc.
	delay := retryBaseDelay * time.Duration(1<<uint(attempt))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// errorMessage extracts a readable message from an error response body.
// FastAPI backends answer {"detail": ...}; others use {"error": ...}.
func errorMessage(status int, body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		for _, raw := range []json.RawMessage{payload.Detail, payload.Error} {
			if msg := rawMessage(raw); msg != "" {
				return msg
			}
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return msg
	}
	return http.StatusText(status)
}

func rawMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &obj) == nil && obj.Message != "" {
		return obj.Message
	}
	return string(raw)
}

// restyLogger routes resty's internal messages to zerolog.
type restyLogger struct {
	log zerolog.Logger
}

func (l restyLogger) Errorf(format string, v ...any) { l.log.Error().Msgf(format, v...) }
func (l restyLogger) Warnf(format string, v ...any)  { l.log.Warn().Msgf(format, v...) }
func (l restyLogger) Debugf(format string, v ...any) { l.log.Debug().Msgf(format, v...) }
