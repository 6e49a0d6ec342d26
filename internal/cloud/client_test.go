// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/it-at-m/mucgpt-sub002/internal/logging"
	"github.com/it-at-m/mucgpt-sub002/internal/model"
)

// newTestClient returns a client against url that never sleeps between retries.
func newTestClient(url string) *Client {
	c := NewClient(url).WithLogger(logging.Nop())
	c.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return c
}

// =============================================================================
// REQUEST TESTS
// =============================================================================

func TestNewChatRequest(t *testing.T) {
	turns := []model.ChatTurn{
		{User: "Hi", Answer: model.AnswerRecord{Text: "Hello", ToolOutput: "```MUCGPTBrainstorming\nmap\n```"}},
		{User: "Lost", Answer: model.AnswerRecord{Text: "par", Error: "connection reset"}},
		model.NewTurn("And now?"),
	}
	cfg := model.ChatConfig{Model: "m", Language: "Deutsch", Temperature: 0.5, MaxOutputTokens: 100, EnabledTools: []string{"Brainstorming"}}

	req := NewChatRequest(turns, cfg)

	require.Len(t, req.History, 2)
	assert.Equal(t, "```MUCGPTBrainstorming\nmap\n```\n\nHello", req.History[0].Bot)
	assert.Equal(t, "", req.History[1].Bot)
	assert.Equal(t, "And now?", req.Question())
	assert.True(t, req.ShouldStream)

	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"history": [{"user":"Hi","bot":"`+"```MUCGPTBrainstorming\\nmap\\n```\\n\\nHello"+`"},{"user":"And now?","bot":""}],
		"shouldStream": true,
		"language": "Deutsch",
		"temperature": 0.5,
		"system_message": "",
		"max_output_tokens": 100,
		"model": "m",
		"enabled_tools": ["Brainstorming"]
	}`, string(data))
}

// =============================================================================
// STREAM TESTS
// =============================================================================

func TestStream_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, DefaultChatPath, r.URL.Path)
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req ChatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Hi", req.Question())

		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"content\":\"Hello\"}\n\ndata: [DONE]\n\n")
	}))
	defer server.Close()

	client := newTestClient(server.URL).WithAPIKey("secret")
	defer client.Close()

	body, err := client.Stream(context.Background(), NewChatRequest([]model.ChatTurn{model.NewTurn("Hi")}, model.ChatConfig{}))
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[DONE]")
}

func TestStream_NoAuthHeaderWithoutKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		io.WriteString(w, "data: [DONE]\n")
	}))
	defer server.Close()

	body, err := newTestClient(server.URL).Stream(context.Background(), ChatRequest{})
	require.NoError(t, err)
	body.Close()
}

func TestStream_NotConfigured(t *testing.T) {
	_, err := NewClient("  ").Stream(context.Background(), ChatRequest{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestStream_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		io.WriteString(w, "data: [DONE]\n")
	}))
	defer server.Close()

	body, err := newTestClient(server.URL).Stream(context.Background(), ChatRequest{})
	require.NoError(t, err)
	body.Close()
	assert.Equal(t, int32(3), calls.Load())
}

func TestStream_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).WithMaxRetries(2).Stream(context.Background(), ChatRequest{})

	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, http.StatusServiceUnavailable, backendErr.Status)
	assert.Equal(t, int32(3), calls.Load())
}

func TestStream_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"detail":"Not authenticated"}`)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Stream(context.Background(), ChatRequest{})

	var backendErr *BackendError
	require.ErrorAs(t, err, &backendErr)
	assert.Equal(t, http.StatusUnauthorized, backendErr.Status)
	assert.Equal(t, "Not authenticated", backendErr.Message)
	assert.Equal(t, int32(1), calls.Load())
}

func TestStream_CanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(server.URL).Stream(ctx, ChatRequest{})
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}

func TestStream_CustomChatPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/chat", r.URL.Path)
		io.WriteString(w, "data: [DONE]\n")
	}))
	defer server.Close()

	client := newTestClient(server.URL + "/").WithChatPath("v2/chat")
	assert.Equal(t, server.URL+"/v2/chat", client.Endpoint())

	body, err := client.Stream(context.Background(), ChatRequest{})
	require.NoError(t, err)
	body.Close()
}

// =============================================================================
// HELPER TESTS
// =============================================================================

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"detail string", `{"detail":"quota exceeded"}`, "quota exceeded"},
		{"error object", `{"error":{"message":"model overloaded"}}`, "model overloaded"},
		{"message", `{"message":"nope"}`, "nope"},
		{"plain text", "  upstream down \n", "upstream down"},
		{"empty", "", "Bad Gateway"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, errorMessage(http.StatusBadGateway, []byte(tc.body)))
		})
	}
}

func TestCalculateBackoff(t *testing.T) {
	c := NewClient("http://localhost")
	assert.Equal(t, 500*time.Millisecond, c.calculateBackoff(0))
	assert.Equal(t, 2*time.Second, c.calculateBackoff(2))
	assert.Equal(t, retryMaxDelay, c.calculateBackoff(10))
}
