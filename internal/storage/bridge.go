// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"fmt"

	"github.com/it-at-m/mucgpt-sub002/internal/model"
)

// =============================================================================
// BRIDGE
// =============================================================================

// Bridge is the persistence contract the chat session depends on.
type Bridge interface {
	// Create stores a new conversation and returns its id. An empty id is
	// generated, an empty name is derived from the first question.
	Create(ctx context.Context, turns []model.ChatTurn, cfg model.ChatConfig, id, name string, favorite bool) (string, error)

	// AppendTurn adds a finished turn and records cfg as the conversation's config.
	AppendTurn(ctx context.Context, turn model.ChatTurn, id string, cfg model.ChatConfig) error

	// Get returns nil, nil when the conversation does not exist.
	Get(ctx context.Context, id string) (*Record, error)

	// Delete removes a conversation. Deleting a missing conversation is not an error.
	Delete(ctx context.Context, id string) error

	// RollbackMessage keeps only the turns before index. It returns nil, nil
	// when the conversation does not exist.
	RollbackMessage(ctx context.Context, index int, id string) (*RollbackResult, error)

	// PopLastTurn removes the last turn.
	PopLastTurn(ctx context.Context, id string) error

	// List returns all conversations, most recently updated first.
	List(ctx context.Context) ([]model.ConversationSummary, error)
}

// Record is what Get returns.
type Record struct {
	Turns  []model.ChatTurn
	Config model.ChatConfig
}

// RollbackResult is what RollbackMessage returns.
type RollbackResult struct {
	Turns          []model.ChatTurn
	ConversationID string

	// Question is the user text of the first removed turn.
	Question string
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine stores whole conversations. Implementations return ErrNotFound
// from Load and Remove for unknown ids.
type Engine interface {
	Load(ctx context.Context, id string) (*model.Conversation, error)
	Save(ctx context.Context, conv *model.Conversation) error
	Remove(ctx context.Context, id string) error
	List(ctx context.Context) ([]model.ConversationSummary, error)
	Close() error
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrNotFound is returned when a conversation doesn't exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &ConversationError{Message: "conversation not found"}

// ErrInvalidIndex is returned by RollbackMessage for an index outside the turns.
var ErrInvalidIndex = &ConversationError{Message: "turn index out of range"}

// ErrInvalidID is returned for ids that cannot be used as storage keys.
var ErrInvalidID = &ConversationError{Message: "invalid conversation id"}

// ConversationError represents a conversation-related error.
// It implements the error interface and can be compared using errors.Is.
type ConversationError struct {
	Message string
}

// Error implements the error interface.
func (e *ConversationError) Error() string {
	return e.Message
}

// Is implements errors.Is support for comparing conversation errors.
func (e *ConversationError) Is(target error) bool {
	t, ok := target.(*ConversationError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// PersistenceError is returned by every failed Store operation.
type PersistenceError struct {
	Op  string
	ID  string
	Err error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("storage %s %s: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}
