// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package toolcall

import (
	"strings"
	"time"

	"github.com/it-at-m/mucgpt-sub002/internal/model"
	"github.com/it-at-m/mucgpt-sub002/internal/stream"
)

// Tool delta states. Incoming states are compared case-insensitively.
const (
	Started  = "STARTED"
	Append   = "APPEND"
	Update   = "UPDATE"
	Ended    = "ENDED"
	Rollback = "ROLLBACK"
)

// CanceledMessage is the status message reported for a rolled back tool.
const CanceledMessage = "Operation canceled"

// IsKnownState reports whether state is one of the tool delta states.
func IsKnownState(state string) bool {
	switch normalize(state) {
	case Started, Append, Update, Ended, Rollback:
		return true
	}
	return false
}

// IsRollback reports whether state is ROLLBACK, in any case.
func IsRollback(state string) bool {
	return normalize(state) == Rollback
}

// =============================================================================
// BUFFER
// =============================================================================

// Buffer is the accumulated output and status of one tool.
type Buffer struct {
	Name     string
	Content  string
	Status   model.ToolStatus
	IsActive bool
}

// =============================================================================
// STATE
// =============================================================================

// State is an immutable, insertion-ordered collection of buffers keyed by
// tool name. The zero value is empty and ready to use.
type State struct {
	order   []string
	buffers map[string]Buffer
}

// Len returns the number of buffers.
func (s State) Len() int {
	return len(s.order)
}

// Get returns the buffer for name.
func (s State) Get(name string) (Buffer, bool) {
	b, ok := s.buffers[name]
	return b, ok
}

// Buffers returns all buffers in insertion order.
func (s State) Buffers() []Buffer {
	out := make([]Buffer, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.buffers[name])
	}
	return out
}

// with returns a copy of s holding b.
func (s State) with(b Buffer) State {
	next := State{
		order:   s.order,
		buffers: make(map[string]Buffer, len(s.buffers)+1),
	}
	for k, v := range s.buffers {
		next.buffers[k] = v
	}
	if _, ok := s.buffers[b.Name]; !ok {
		next.order = append(s.order[:len(s.order):len(s.order)], b.Name)
	}
	next.buffers[b.Name] = b
	return next
}

// without returns a copy of s with name removed.
func (s State) without(name string) State {
	if _, ok := s.buffers[name]; !ok {
		return s
	}
	next := State{
		order:   make([]string, 0, len(s.order)-1),
		buffers: make(map[string]Buffer, len(s.buffers)-1),
	}
	for _, n := range s.order {
		if n != name {
			next.order = append(next.order, n)
			next.buffers[n] = s.buffers[n]
		}
	}
	return next
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// Transition applies one tool delta to s and returns the new state, the
// resulting buffer and whether the tool's status changed. s is not modified.
//
// APPEND, UPDATE and ENDED for a tool without a buffer create it as if
// STARTED had been received first; that implicit start counts as a status
// change. An unknown state or an empty tool name leaves s unchanged.
func Transition(s State, d stream.ToolDelta, now time.Time) (State, Buffer, bool) {
	if d.Name == "" {
		return s, Buffer{}, false
	}
	state := normalize(d.State)
	b, exists := s.Get(d.Name)

	switch state {
	case Started:
		b.Name = d.Name
		b.IsActive = true
		b.Status = status(d.Name, d.Content, model.ToolStarted, now)
		return s.with(b), b, true

	case Append, Update, Ended:
		changed := false
		if !exists {
			b = Buffer{
				Name:     d.Name,
				IsActive: true,
				Status:   status(d.Name, "", model.ToolStarted, now),
			}
			changed = true
		}
		switch state {
		case Append:
			b.Content += d.Content
		case Update:
			b.Content = d.Content
		case Ended:
			b.IsActive = false
			b.Status = status(d.Name, d.Content, model.ToolEnded, now)
			changed = true
		}
		return s.with(b), b, changed

	case Rollback:
		canceled := Buffer{
			Name:   d.Name,
			Status: status(d.Name, CanceledMessage, model.ToolEnded, now),
		}
		return s.without(d.Name), canceled, true
	}

	return s, b, false
}

func normalize(state string) string {
	return strings.ToUpper(strings.TrimSpace(state))
}

func status(name, message string, state model.ToolState, now time.Time) model.ToolStatus {
	return model.ToolStatus{Name: name, Message: message, State: state, Timestamp: now}
}
