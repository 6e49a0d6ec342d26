// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import "github.com/it-at-m/mucgpt-sub002/internal/model"

// HistoryEntry is one question/answer pair of the request history.
// The entry for the question being asked has an empty Bot.
type HistoryEntry struct {
	User string `json:"user"`
	Bot  string `json:"bot"`
}

// ChatRequest is the body POSTed to the chat endpoint.
type ChatRequest struct {
	History         []HistoryEntry `json:"history"`
	ShouldStream    bool           `json:"shouldStream"`
	Language        string         `json:"language"`
	Temperature     float64        `json:"temperature"`
	SystemMessage   string         `json:"system_message"`
	MaxOutputTokens int            `json:"max_output_tokens"`
	Model           string         `json:"model"`
	EnabledTools    []string       `json:"enabled_tools,omitempty"`
}

// NewChatRequest builds a streaming request from the conversation so far.
// The last turn is the question being asked; its answer is never sent.
// Earlier failed turns are left out of the history.
func NewChatRequest(turns []model.ChatTurn, cfg model.ChatConfig) ChatRequest {
	history := make([]HistoryEntry, 0, len(turns))
	for i, t := range turns {
		last := i == len(turns)-1
		if !last && t.Answer.IsFailed() {
			continue
		}
		entry := HistoryEntry{User: t.User}
		if !last {
			entry.Bot = t.Answer.Markdown()
		}
		history = append(history, entry)
	}

	return ChatRequest{
		History:         history,
		ShouldStream:    true,
		Language:        cfg.Language,
		Temperature:     cfg.Temperature,
		SystemMessage:   cfg.SystemMessage,
		MaxOutputTokens: cfg.MaxOutputTokens,
		Model:           cfg.Model,
		EnabledTools:    append([]string(nil), cfg.EnabledTools...),
	}
}

// Question returns the question being asked, or "" for an empty history.
func (r ChatRequest) Question() string {
	if len(r.History) == 0 {
		return ""
	}
	return r.History[len(r.History)-1].User
}
