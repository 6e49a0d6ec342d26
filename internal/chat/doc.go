// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat holds the conversation state of a session and the pure
// reducer that changes it.
//
// State is never mutated in place. Every Action produces a new State whose
// touched slices are fresh copies, so earlier snapshots stay valid and a
// recorded action history can be replayed to reproduce any state.
//
// # Key Types
//
//   - State: Turns, active conversation id and conversation list
//   - Action: SetTurns, AddTurn, UpdateLastTurn, RemoveLastTurn, ClearTurns,
//     SetActiveConversation, SetAllConversations
//   - Store: Single-writer container that dispatches actions
//
// # Usage
//
//	store := chat.NewStore(chat.State{}, chat.WithHistory())
//	store.Dispatch(chat.AddTurn{Turn: model.NewTurn("Hi")})
//	store.Dispatch(chat.UpdateLastTurn{Answer: answer})
//	replayed := chat.Replay(chat.State{}, store.History())
package chat
