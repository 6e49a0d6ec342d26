// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists conversations behind the Bridge contract.
//
// The chat core depends only on Bridge. Store implements it on top of an
// Engine, which only knows how to load, save, remove and list whole
// conversations. Four engines ship with the package.
//
// # Key Types
//
//   - Bridge: Persistence contract used by the session
//   - Store: Bridge implementation with rollback and retention logic
//   - Engine: Raw conversation storage (FileStore, SQLiteStore, PebbleStore, MemoryStore)
//   - PersistenceError: Wraps every failed operation with its name and id
//
// # Usage
//
//	engine, err := storage.OpenEngine("sqlite", dataDir)
//	store := storage.NewStore(engine, storage.WithMaxConversations(100))
//	id, err := store.Create(ctx, turns, cfg, "", "", false)
//	res, err := store.RollbackMessage(ctx, 2, id)
//
// # Storage Location
//
// By default conversations live in ~/.mucgpt/conversations, one JSON file
// per conversation for the file engine.
package storage
