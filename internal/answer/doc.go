// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package answer accumulates the answer text and token usage of one
// streamed response.
//
// Text is appended synchronously on every delta. Observers are told about
// changes through a Notifier, which debounces on the trailing edge and is
// flushed unconditionally when the stream ends, so notification timing
// never affects the accumulated result.
//
// # Key Types
//
//   - Assembler: Authoritative text buffer and token counters
//   - Notifier: Cancel-and-reschedule debounced callback with optional max wait
//   - Result: Immutable snapshot of an Assembler
//
// # Usage
//
//	n := answer.NewNotifier(redraw, answer.WithDebounce(100*time.Millisecond))
//	a := answer.NewAssembler(n)
//	for ev := range events {
//	    a.Apply(ev)
//	}
//	final := a.Finish()
package answer
