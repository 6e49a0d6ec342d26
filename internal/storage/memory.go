// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"sync"

	"github.com/it-at-m/mucgpt-sub002/internal/model"
)

// MemoryStore keeps conversations in memory. Used by tests and --engine memory.
type MemoryStore struct {
	mu    sync.RWMutex
	convs map[string]model.Conversation
}

// NewMemoryStore creates an empty in-memory engine.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{convs: make(map[string]model.Conversation)}
}

// Load implements Engine.
func (m *MemoryStore) Load(_ context.Context, id string) (*model.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conv, ok := m.convs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyConversation(conv), nil
}

// Save implements Engine.
func (m *MemoryStore) Save(_ context.Context, conv *model.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.convs[conv.ID] = *copyConversation(*conv)
	return nil
}

// Remove implements Engine.
func (m *MemoryStore) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.convs[id]; !ok {
		return ErrNotFound
	}
	delete(m.convs, id)
	return nil
}

// List implements Engine.
func (m *MemoryStore) List(_ context.Context) ([]model.ConversationSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sums := make([]model.ConversationSummary, 0, len(m.convs))
	for _, conv := range m.convs {
		sums = append(sums, conv.Summary())
	}
	return sums, nil
}

// Close implements Engine.
func (m *MemoryStore) Close() error {
	return nil
}

func copyConversation(c model.Conversation) *model.Conversation {
	c.Turns = model.CloneTurns(c.Turns)
	c.Config = c.Config.Clone()
	return &c
}
