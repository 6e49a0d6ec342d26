// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package toolcall

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/it-at-m/mucgpt-sub002/internal/logging"
	"github.com/it-at-m/mucgpt-sub002/internal/metrics"
	"github.com/it-at-m/mucgpt-sub002/internal/model"
	"github.com/it-at-m/mucgpt-sub002/internal/stream"
)

// Tracker owns the tool State of one in-flight request.
type Tracker struct {
	mu      sync.Mutex
	state   State
	log     zerolog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the tracker's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(t *Tracker) { t.log = l }
}

// WithMetrics records tool events on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Tracker) { t.metrics = m }
}

// WithClock replaces time.Now for status timestamps.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates an empty tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{log: logging.Get(), now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Apply feeds one tool delta through Transition.
// It returns the resulting buffer and whether the status strip needs a redraw.
func (t *Tracker) Apply(d stream.ToolDelta) (Buffer, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if d.Name == "" {
		t.log.Warn().Str("state", d.State).Msg("Ignoring tool event without a name")
		return Buffer{}, false
	}
	if !IsKnownState(d.State) {
		t.log.Warn().Str("tool", d.Name).Str("state", d.State).Msg("Ignoring tool event with unknown state")
		b, _ := t.state.Get(d.Name)
		return b, false
	}

	if _, exists := t.state.Get(d.Name); !exists && isContinuation(d.State) {
		t.metrics.ImplicitStart()
		t.log.Debug().Str("tool", d.Name).Str("state", d.State).Msg("Tool event before STARTED, starting buffer implicitly")
	}
	t.metrics.ToolEvent(normalize(d.State))

	next, b, changed := Transition(t.state, d, t.now())
	t.state = next
	return b, changed
}

// ActiveStatuses returns the status of every buffer that has one,
// in insertion order.
func (t *Tracker) ActiveStatuses() []model.ToolStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []model.ToolStatus
	for _, b := range t.state.Buffers() {
		if b.Status.IsSet() {
			out = append(out, b.Status)
		}
	}
	return out
}

// HasActiveTools reports whether any tool is still running.
func (t *Tracker) HasActiveTools() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, b := range t.state.Buffers() {
		if b.IsActive {
			return true
		}
	}
	return false
}

// Render serializes the current buffers. See Render.
func (t *Tracker) Render() string {
	return Render(t.Snapshot())
}

// Snapshot returns the current state. The value is immutable.
func (t *Tracker) Snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Reset discards all buffers.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = State{}
}

func isContinuation(state string) bool {
	switch normalize(state) {
	case Append, Update, Ended:
		return true
	}
	return false
}
