// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    []Event
	}{
		{
			name:    "done sentinel",
			payload: "[DONE]",
			want:    []Event{Done{}},
		},
		{
			name:    "content",
			payload: `{"choices":[{"index":0,"delta":{"content":"Hel"},"finish_reason":null}]}`,
			want:    []Event{ContentDelta{Text: "Hel"}},
		},
		{
			name:    "empty content is not an event",
			payload: `{"choices":[{"index":0,"delta":{"content":""},"finish_reason":null}]}`,
			want:    nil,
		},
		{
			name:    "no choices",
			payload: `{"choices":[]}`,
			want:    nil,
		},
		{
			name:    "stop",
			payload: `{"choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`,
			want:    []Event{Stop{Reason: "stop"}},
		},
		{
			name:    "other finish reasons are ignored",
			payload: `{"choices":[{"index":0,"delta":{},"finish_reason":"length"}]}`,
			want:    nil,
		},
		{
			name:    "tool state is upper-cased",
			payload: `{"choices":[{"delta":{"tool_calls":[{"name":"Brainstorming","state":"Started","content":"go"}]}}]}`,
			want:    []Event{ToolDelta{Name: "Brainstorming", State: "STARTED", Content: "go"}},
		},
		{
			name:    "tool metadata kept raw",
			payload: `{"choices":[{"delta":{"tool_calls":[{"name":"T","state":"UPDATE","content":"x","metadata":{"a":[1,2]}}]}}]}`,
			want: []Event{ToolDelta{
				Name: "T", State: "UPDATE", Content: "x",
				Metadata: json.RawMessage(`{"a":[1,2]}`),
			}},
		},
		{
			name:    "usage without choices",
			payload: `{"choices":[],"usage":{"prompt_tokens":5}}`,
			want:    []Event{UsageDelta{PromptTokens: intPtr(5)}},
		},
		{
			name:    "reasoning",
			payload: `{"choices":[{"delta":{"reasoning_content":"hmm"}}]}`,
			want:    []Event{ReasoningDelta{Text: "hmm"}},
		},
		{
			name: "event order within one frame",
			payload: `{"choices":[{"delta":{"content":"c","reasoning_content":"r",` +
				`"tool_calls":[{"name":"T","state":"ENDED","content":"e"}]},"finish_reason":"stop"}],` +
				`"usage":{"completion_tokens":2}}`,
			want: []Event{
				ToolDelta{Name: "T", State: "ENDED", Content: "e"},
				ReasoningDelta{Text: "r"},
				ContentDelta{Text: "c"},
				UsageDelta{CompletionTokens: intPtr(2)},
				Stop{Reason: "stop"},
			},
		},
		{
			name:    "error object",
			payload: `{"error":{"message":"quota exceeded","code":429}}`,
			want:    []Event{BackendError{Message: "quota exceeded", Code: "429"}},
		},
		{
			name:    "error string",
			payload: `{"error":"model overloaded"}`,
			want:    []Event{BackendError{Message: "model overloaded"}},
		},
		{
			name:    "null error is ignored",
			payload: `{"error":null,"choices":[{"delta":{"content":"x"}}]}`,
			want:    []Event{ContentDelta{Text: "x"}},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Decode(tc.payload)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode(`{"choices":[{"delta":`)

	var de *DecodeError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, `{"choices":[{"delta":`, de.Payload)
}

func TestDecode_ScenarioC_UsageIsAdditive(t *testing.T) {
	payloads := []string{
		`{"choices":[],"usage":{"prompt_tokens":5}}`,
		`{"choices":[],"usage":{"completion_tokens":3}}`,
		`{"choices":[],"usage":{"completion_tokens":7}}`,
	}

	var prompt, completion int
	for _, p := range payloads {
		events, err := Decode(p)
		require.NoError(t, err)
		for _, ev := range events {
			u := ev.(UsageDelta)
			prompt += u.Prompt()
			completion += u.Completion()
		}
	}

	assert.Equal(t, 5, prompt)
	assert.Equal(t, 10, completion)
}

func TestBackendError_Error(t *testing.T) {
	assert.Equal(t, "backend error: x", BackendError{Message: "x"}.Error())
	assert.Equal(t, "backend error (429): x", BackendError{Message: "x", Code: "429"}.Error())
}
