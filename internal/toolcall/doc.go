// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package toolcall tracks the tool calls multiplexed into a chat stream.
//
// Each tool name owns one Buffer per request. Tool deltas move a buffer
// through STARTED, APPEND/UPDATE and ENDED; ROLLBACK removes it. State is
// an immutable collection and Transition is a pure function, so every step
// can be tested without timers or a running stream.
//
// # Key Types
//
//   - State: Insertion-ordered, immutable set of buffers
//   - Buffer: Content and status of one tool
//   - Tracker: Single-writer owner of a State for one request
//   - Block: A tool block re-read from rendered text
//
// # Usage
//
//	tr := toolcall.NewTracker(toolcall.WithLogger(log))
//	buf, changed := tr.Apply(delta)
//	if changed {
//	    redrawStatus(tr.ActiveStatuses())
//	}
//	markdown := tr.Render()
package toolcall
