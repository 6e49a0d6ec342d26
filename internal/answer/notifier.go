// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package answer

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultDebounce is the quiet period before observers are notified.
const DefaultDebounce = 100 * time.Millisecond

// Notifier calls a function after triggers have stopped for the debounce
// period. With a max wait configured it also fires at most once per max
// wait while triggers keep arriving.
type Notifier struct {
	mu      sync.Mutex
	fireMu  sync.Mutex
	fn      func()
	delay   time.Duration
	maxWait *rate.Sometimes
	timer   *time.Timer
	closed  bool
}

// NotifierOption configures a Notifier.
type NotifierOption func(*Notifier)

// WithDebounce sets the trailing-edge delay. Values <= 0 are ignored.
func WithDebounce(d time.Duration) NotifierOption {
	return func(n *Notifier) {
		if d > 0 {
			n.delay = d
		}
	}
}

// WithMaxWait makes a continuous stream of triggers still fire at most
// once per d. Zero disables it.
func WithMaxWait(d time.Duration) NotifierOption {
	return func(n *Notifier) {
		if d > 0 {
			n.maxWait = &rate.Sometimes{Interval: d}
		} else {
			n.maxWait = nil
		}
	}
}

// NewNotifier creates a Notifier that calls fn.
func NewNotifier(fn func(), opts ...NotifierOption) *Notifier {
	n := &Notifier{fn: fn, delay: DefaultDebounce}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Trigger cancels any pending notification and schedules a new one.
// After Flush or Stop it does nothing.
func (n *Notifier) Trigger() {
	if n == nil {
		return
	}
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	if n.timer != nil {
		n.timer.Stop()
	}
	n.timer = time.AfterFunc(n.delay, n.fire)
	maxWait := n.maxWait
	n.mu.Unlock()

	if maxWait != nil {
		maxWait.Do(n.fire)
	}
}

// Flush cancels any pending notification and calls fn synchronously.
// It is the last call fn receives.
func (n *Notifier) Flush() {
	if n == nil {
		return
	}
	n.close()

	n.fireMu.Lock()
	defer n.fireMu.Unlock()
	n.fn()
}

// Stop cancels any pending notification without calling fn.
func (n *Notifier) Stop() {
	if n == nil {
		return
	}
	n.close()
}

func (n *Notifier) close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}

func (n *Notifier) fire() {
	n.fireMu.Lock()
	defer n.fireMu.Unlock()

	n.mu.Lock()
	closed := n.closed
	n.mu.Unlock()
	if closed {
		return
	}
	n.fn()
}
