// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/it-at-m/mucgpt-sub002/internal/util"
)

// MaxNameWidth is the display width a derived conversation name is truncated to.
const MaxNameWidth = 50

// =============================================================================
// CHAT CONFIG
// =============================================================================

// ChatConfig is the request configuration a conversation was created with.
// Regenerate reuses it so a resubmitted question is sampled the same way.
type ChatConfig struct {
	Model           string   `json:"model" toml:"model"`
	Language        string   `json:"language" toml:"language"`
	SystemMessage   string   `json:"system_message" toml:"system_message"`
	Temperature     float64  `json:"temperature" toml:"temperature"`
	MaxOutputTokens int      `json:"max_output_tokens" toml:"max_output_tokens"`
	EnabledTools    []string `json:"enabled_tools,omitempty" toml:"enabled_tools"`
}

// Clone returns a copy that shares no slices with the receiver.
func (c ChatConfig) Clone() ChatConfig {
	if c.EnabledTools != nil {
		c.EnabledTools = append([]string(nil), c.EnabledTools...)
	}
	return c
}

// =============================================================================
// CONVERSATION TYPES
// =============================================================================

// Conversation is the stored unit: ordered turns plus the config they were asked with.
type Conversation struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Favorite  bool       `json:"favorite,omitempty"`
	Turns     []ChatTurn `json:"turns"`
	Config    ChatConfig `json:"config"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Summary builds the listing entry for the conversation.
func (c *Conversation) Summary() ConversationSummary {
	return ConversationSummary{
		ID:        c.ID,
		Name:      c.Name,
		Favorite:  c.Favorite,
		TurnCount: len(c.Turns),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// ConversationSummary contains metadata for listing conversations.
type ConversationSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Favorite  bool      `json:"favorite,omitempty"`
	TurnCount int       `json:"turn_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName derives a conversation name from its first question.
func DisplayName(question string) string {
	name := strings.ReplaceAll(question, "\r", "")
	name = strings.Join(strings.Fields(strings.ReplaceAll(name, "\n", " ")), " ")
	if name == "" {
		return "New conversation"
	}
	return util.TruncateWidth(name, MaxNameWidth)
}
