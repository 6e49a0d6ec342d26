// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package answer

import (
	"strings"
	"sync"

	"github.com/it-at-m/mucgpt-sub002/internal/stream"
)

// Result is a snapshot of an Assembler.
type Result struct {
	Text             string
	ReasoningText    string
	PromptTokens     int
	CompletionTokens int

	// Stopped is set once finish_reason "stop" was seen.
	Stopped bool
}

// Assembler accumulates content, reasoning and usage events in order.
// It is safe for one writer and any number of concurrent readers.
type Assembler struct {
	mu         sync.Mutex
	text       strings.Builder
	reasoning  strings.Builder
	prompt     int
	completion int
	stopped    bool
	finished   bool
	notifier   *Notifier
}

// NewAssembler creates an Assembler. n may be nil.
func NewAssembler(n *Notifier) *Assembler {
	return &Assembler{notifier: n}
}

// Apply consumes one event and reports whether it changed the result.
// Events other than content, reasoning, usage and stop are ignored, as is
// text arriving after Stop or Finish.
func (a *Assembler) Apply(ev stream.Event) bool {
	a.mu.Lock()
	changed := a.apply(ev)
	a.mu.Unlock()

	if changed {
		a.notifier.Trigger()
	}
	return changed
}

func (a *Assembler) apply(ev stream.Event) bool {
	if a.finished {
		return false
	}
	switch ev := ev.(type) {
	case stream.ContentDelta:
		if a.stopped || ev.Text == "" {
			return false
		}
		a.text.WriteString(ev.Text)
		return true
	case stream.ReasoningDelta:
		if a.stopped || ev.Text == "" {
			return false
		}
		a.reasoning.WriteString(ev.Text)
		return true
	case stream.UsageDelta:
		// Usage often arrives after the stop frame and still counts.
		a.prompt += ev.Prompt()
		a.completion += ev.Completion()
		return ev.PromptTokens != nil || ev.CompletionTokens != nil
	case stream.Stop:
		a.stopped = true
		return false
	}
	return false
}

// Snapshot returns the current result.
func (a *Assembler) Snapshot() Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Result{
		Text:             a.text.String(),
		ReasoningText:    a.reasoning.String(),
		PromptTokens:     a.prompt,
		CompletionTokens: a.completion,
		Stopped:          a.stopped,
	}
}

// Finish ends accumulation, flushes the notifier and returns the final result.
func (a *Assembler) Finish() Result {
	a.mu.Lock()
	a.finished = true
	a.mu.Unlock()

	a.notifier.Flush()
	return a.Snapshot()
}
