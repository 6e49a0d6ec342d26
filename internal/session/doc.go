// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session drives one chat conversation end to end.
//
// A Session sends a question to the backend, feeds the event stream through
// the tool tracker and answer assembler, dispatches the growing answer to
// the chat store and persists the finished turn through a storage.Bridge.
//
// # Key Types
//
//   - Session: Send, Retry, Rollback, Regenerate, Load, Clear and Delete
//   - Backend: Opens the event stream for a chat request (cloud.Client)
//
// # Usage
//
//	s := session.New(client, store, session.WithConfig(cfg.Chat.ToModel()))
//	unsubscribe := s.Subscribe(func(st chat.State) { render(st) })
//	defer unsubscribe()
//
//	if err := s.Send(ctx, "What is Go?"); err != nil {
//	    // the last turn carries an error placeholder; s.Retry(ctx) resubmits
//	}
//
// # Concurrency
//
// One operation runs at a time. Send, Retry, Rollback, Regenerate, Load,
// Clear and Delete return ErrBusy while another one is in flight; the
// session never queues work. Cancel the context passed to Send to abort
// a stream.
package session
