// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"
)

// =============================================================================
// TOOL STATUS
// =============================================================================

// ToolState is the lifecycle state reported for a tool call.
// The zero value means the tool has no status to show.
type ToolState string

const (
	ToolStarted ToolState = "STARTED"
	ToolEnded   ToolState = "ENDED"
)

// String returns the string representation of the state.
func (s ToolState) String() string {
	return string(s)
}

// ToolStatus is the read-only projection of a tool buffer's status.
type ToolStatus struct {
	Name      string    `json:"name"`
	Message   string    `json:"message"`
	State     ToolState `json:"state"`
	Timestamp time.Time `json:"timestamp"`
}

// IsSet reports whether the status carries a state.
func (s ToolStatus) IsSet() bool {
	return s.State != ""
}

// =============================================================================
// ANSWER RECORD
// =============================================================================

// AnswerRecord holds everything accumulated for one answer.
type AnswerRecord struct {
	// Text is the plain content channel. It only grows by appending.
	Text string `json:"text"`

	// ReasoningText is the optional reasoning channel.
	ReasoningText string `json:"reasoning_text,omitempty"`

	// Token usage, summed over all usage frames of the stream.
	TokensIn  int `json:"tokens_in"`
	TokensOut int `json:"tokens_out"`

	// ActiveTools lists the tool statuses seen during streaming.
	ActiveTools []ToolStatus `json:"active_tools,omitempty"`

	// ToolOutput is the fenced rendering of every non-empty tool buffer.
	ToolOutput string `json:"tool_output,omitempty"`

	// Error is set when the stream failed; the turn is then an error placeholder.
	Error string `json:"error,omitempty"`
}

// Markdown composes the tool blocks and the answer text for renderers.
func (a AnswerRecord) Markdown() string {
	switch {
	case a.ToolOutput == "":
		return a.Text
	case a.Text == "":
		return a.ToolOutput
	default:
		return a.ToolOutput + "\n\n" + a.Text
	}
}

// IsFailed returns true if the answer is an error placeholder.
func (a AnswerRecord) IsFailed() bool {
	return a.Error != ""
}

// IsEmpty returns true if nothing has been received yet.
func (a AnswerRecord) IsEmpty() bool {
	return a.Text == "" && a.ReasoningText == "" && a.ToolOutput == "" && len(a.ActiveTools) == 0
}

// Clone returns a copy that shares no slices with the receiver.
func (a AnswerRecord) Clone() AnswerRecord {
	if a.ActiveTools != nil {
		tools := make([]ToolStatus, len(a.ActiveTools))
		copy(tools, a.ActiveTools)
		a.ActiveTools = tools
	}
	return a
}

// =============================================================================
// CHAT TURN
// =============================================================================

// ChatTurn is one question and its answer.
type ChatTurn struct {
	User   string       `json:"user"`
	Answer AnswerRecord `json:"answer"`
}

// NewTurn creates the optimistic turn added when a question is dispatched.
func NewTurn(question string) ChatTurn {
	return ChatTurn{User: question}
}

// Clone returns a deep copy of the turn.
func (t ChatTurn) Clone() ChatTurn {
	t.Answer = t.Answer.Clone()
	return t
}

// CloneTurns deep-copies a slice of turns. A nil slice stays nil.
func CloneTurns(turns []ChatTurn) []ChatTurn {
	if turns == nil {
		return nil
	}
	out := make([]ChatTurn, len(turns))
	for i, t := range turns {
		out[i] = t.Clone()
	}
	return out
}

// Preview returns the question collapsed to a single line.
func (t ChatTurn) Preview() string {
	s := strings.ReplaceAll(t.User, "\r", "")
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
}
