// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/it-at-m/mucgpt-sub002/internal/model"
)

const pebblePrefix = "conv:"

// PebbleStore keeps conversations as JSON values in a Pebble database,
// keyed by "conv:<id>".
type PebbleStore struct {
	db *pebble.DB
}

// NewPebbleStore opens (or creates) the database in dir.
func NewPebbleStore(dir string) (*PebbleStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble: %w", err)
	}
	return &PebbleStore{db: db}, nil
}

func pebbleKey(id string) []byte {
	return []byte(pebblePrefix + id)
}

// Load implements Engine.
func (s *PebbleStore) Load(ctx context.Context, id string) (*model.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v, closer, err := s.db.Get(pebbleKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	var conv model.Conversation
	if err := json.Unmarshal(v, &conv); err != nil {
		return nil, fmt.Errorf("decode conversation %s: %w", id, err)
	}
	return &conv, nil
}

// Save implements Engine.
func (s *PebbleStore) Save(ctx context.Context, conv *model.Conversation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(conv)
	if err != nil {
		return err
	}
	return s.db.Set(pebbleKey(conv.ID), data, pebble.Sync)
}

// Remove implements Engine.
func (s *PebbleStore) Remove(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := pebbleKey(id)
	_, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	closer.Close()
	return s.db.Delete(key, pebble.Sync)
}

// List implements Engine.
func (s *PebbleStore) List(ctx context.Context) ([]model.ConversationSummary, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(pebblePrefix),
		UpperBound: []byte("conv;"), // ';' sorts right after ':'
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	sums := []model.ConversationSummary{}
	for iter.First(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var conv model.Conversation
		if err := json.Unmarshal(iter.Value(), &conv); err != nil {
			continue
		}
		sums = append(sums, conv.Summary())
	}
	return sums, iter.Error()
}

// Close implements Engine.
func (s *PebbleStore) Close() error {
	return s.db.Close()
}
