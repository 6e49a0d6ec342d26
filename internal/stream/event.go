// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"encoding/json"
	"strings"
)

// =============================================================================
// EVENTS
// =============================================================================

// Event is one decoded stream event. The concrete types are ContentDelta,
// ReasoningDelta, ToolDelta, UsageDelta, Stop, Done and BackendError.
type Event interface {
	isEvent()
}

// ContentDelta is a fragment of the plain answer text.
type ContentDelta struct {
	Text string
}

// ReasoningDelta is a fragment of the reasoning channel.
type ReasoningDelta struct {
	Text string
}

// ToolDelta is one entry of delta.tool_calls.
type ToolDelta struct {
	Name    string
	State   string // upper-cased
	Content string

	// Metadata is passed through undecoded.
	Metadata json.RawMessage
}

// UsageDelta carries token counts from a usage object. Absent counts are nil.
type UsageDelta struct {
	PromptTokens     *int
	CompletionTokens *int
}

// Prompt returns the prompt token count or 0.
func (u UsageDelta) Prompt() int {
	if u.PromptTokens == nil {
		return 0
	}
	return *u.PromptTokens
}

// Completion returns the completion token count or 0.
func (u UsageDelta) Completion() int {
	if u.CompletionTokens == nil {
		return 0
	}
	return *u.CompletionTokens
}

// Stop signals end of content (finish_reason "stop").
type Stop struct {
	Reason string
}

// Done is emitted for the [DONE] sentinel.
type Done struct{}

// BackendError is an error object sent inside the stream.
type BackendError struct {
	Message string
	Code    string
}

func (ContentDelta) isEvent()   {}
func (ReasoningDelta) isEvent() {}
func (ToolDelta) isEvent()      {}
func (UsageDelta) isEvent()     {}
func (Stop) isEvent()           {}
func (Done) isEvent()           {}
func (BackendError) isEvent()   {}

// Error lets a BackendError be returned from a handler as-is.
func (e BackendError) Error() string {
	if e.Code != "" {
		return "backend error (" + e.Code + "): " + e.Message
	}
	return "backend error: " + e.Message
}

// =============================================================================
// WIRE TYPES
// =============================================================================

type chunk struct {
	Choices []choice        `json:"choices"`
	Usage   *usage          `json:"usage"`
	Error   json.RawMessage `json:"error"`
}

type choice struct {
	Delta struct {
		Content          string     `json:"content"`
		ReasoningContent string     `json:"reasoning_content"`
		ToolCalls        []toolCall `json:"tool_calls"`
	} `json:"delta"`
	FinishReason *string `json:"finish_reason"`
}

type toolCall struct {
	Name     string          `json:"name"`
	State    string          `json:"state"`
	Content  string          `json:"content"`
	Metadata json.RawMessage `json:"metadata"`
}

type usage struct {
	PromptTokens     *int `json:"prompt_tokens"`
	CompletionTokens *int `json:"completion_tokens"`
}

type errorObject struct {
	Message string          `json:"message"`
	Code    json.RawMessage `json:"code"`
}

// =============================================================================
// DECODER
// =============================================================================

// Decode turns one frame payload into events.
//
// Events of a frame are ordered: tool deltas, reasoning, content, usage,
// stop. A payload that is not valid JSON returns a *DecodeError.
func Decode(payload string) ([]Event, error) {
	payload = strings.TrimSpace(payload)
	if payload == DoneSentinel {
		return []Event{Done{}}, nil
	}

	var c chunk
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return nil, &DecodeError{Payload: payload, Err: err}
	}

	if be, ok := decodeError(c.Error); ok {
		return []Event{be}, nil
	}

	var events []Event
	if len(c.Choices) > 0 {
		ch := c.Choices[0]
		for _, tc := range ch.Delta.ToolCalls {
			events = append(events, ToolDelta{
				Name:     tc.Name,
				State:    strings.ToUpper(strings.TrimSpace(tc.State)),
				Content:  tc.Content,
				Metadata: tc.Metadata,
			})
		}
		if ch.Delta.ReasoningContent != "" {
			events = append(events, ReasoningDelta{Text: ch.Delta.ReasoningContent})
		}
		if ch.Delta.Content != "" {
			events = append(events, ContentDelta{Text: ch.Delta.Content})
		}
	}

	if c.Usage != nil {
		events = append(events, UsageDelta{
			PromptTokens:     c.Usage.PromptTokens,
			CompletionTokens: c.Usage.CompletionTokens,
		})
	}

	if len(c.Choices) > 0 && c.Choices[0].FinishReason != nil && *c.Choices[0].FinishReason == "stop" {
		events = append(events, Stop{Reason: "stop"})
	}

	return events, nil
}

// decodeError reads a top-level error, which backends send either as a
// string or as an object with a message.
func decodeError(raw json.RawMessage) (BackendError, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return BackendError{}, false
	}

	var msg string
	if err := json.Unmarshal(raw, &msg); err == nil {
		return BackendError{Message: msg}, true
	}

	var obj errorObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return BackendError{Message: string(raw)}, true
	}
	be := BackendError{Message: obj.Message}
	if len(obj.Code) > 0 && string(obj.Code) != "null" {
		be.Code = strings.Trim(string(obj.Code), `"`)
	}
	if be.Message == "" {
		be.Message = "unknown error"
	}
	return be, true
}
