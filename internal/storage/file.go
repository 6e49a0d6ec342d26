// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/it-at-m/mucgpt-sub002/internal/logging"
	"github.com/it-at-m/mucgpt-sub002/internal/model"
	"github.com/it-at-m/mucgpt-sub002/internal/util"
)

// =============================================================================
// FILE STORE
// =============================================================================

// FileStore keeps one JSON file per conversation.
type FileStore struct {
	// BaseDir is the directory for storing conversations
	// Default: ~/.mucgpt/conversations/
	BaseDir string

	log zerolog.Logger
}

// DefaultDir returns ~/.mucgpt/conversations.
func DefaultDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".mucgpt", "conversations"), nil
}

// NewFileStore creates a store in baseDir, creating the directory if needed.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, util.DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("create conversation directory: %w", err)
	}
	return &FileStore{BaseDir: baseDir, log: logging.Get()}, nil
}

// Load implements Engine.
func (s *FileStore) Load(ctx context.Context, id string) (*model.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.filePath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var conv model.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("decode conversation %s: %w", id, err)
	}
	return &conv, nil
}

// Save implements Engine.
func (s *FileStore) Save(ctx context.Context, conv *model.Conversation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return err
	}

	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	return util.AtomicWriteFile(s.filePath(conv.ID), data, 0600)
}

// Remove implements Engine.
func (s *FileStore) Remove(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(s.filePath(id)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// List implements Engine. Unreadable files are skipped.
func (s *FileStore) List(ctx context.Context) ([]model.ConversationSummary, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []model.ConversationSummary{}, nil
		}
		return nil, err
	}

	sums := []model.ConversationSummary{}
	for _, entry := range entries {
		if entry.IsDir() || !isConversationFile(entry.Name()) {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")

		conv, err := s.Load(ctx, id)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if err != nil {
			s.log.Warn().Err(err).Str("file", entry.Name()).Msg("Skipping unreadable conversation file")
			continue
		}
		sums = append(sums, conv.Summary())
	}
	return sums, nil
}

// Close implements Engine.
func (s *FileStore) Close() error {
	return nil
}

// filePath returns the file path for a conversation ID.
func (s *FileStore) filePath(id string) string {
	return filepath.Join(s.BaseDir, id+".json")
}

func isConversationFile(name string) bool {
	return strings.HasSuffix(name, ".json") && ValidateID(strings.TrimSuffix(name, ".json")) == nil
}
