// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and chat turns.
//
// This package defines the core domain types shared by the streaming pipeline,
// the chat state reducer and the persistence engines.
//
// # Key Types
//
//   - ChatTurn: One question and the answer streamed for it
//   - AnswerRecord: Accumulated answer text, reasoning, token usage and tool statuses
//   - ToolStatus: Read-only status of a tool call multiplexed into the stream
//   - ChatConfig: Per-conversation request configuration (model, sampling, tools)
//   - Conversation: Stored unit of turns plus configuration
//   - ConversationSummary: Lightweight listing entry
//
// # Usage
//
// Create an optimistic turn and fill its answer while streaming:
//
//	turn := model.NewTurn("Hello?")
//	turn.Answer.Text += "Hi"
//	fmt.Println(turn.Answer.Markdown())
package model
