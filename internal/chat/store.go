// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"
)

// Listener is called with the new state after every dispatch.
type Listener func(State)

// Store is the only holder of a session's State. All changes go through
// Dispatch, which may be called from any goroutine.
type Store struct {
	mu        sync.Mutex
	state     State
	record    bool
	history   []Action
	listeners map[int]Listener
	nextID    int
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithHistory records every dispatched action; see History.
func WithHistory() StoreOption {
	return func(s *Store) { s.record = true }
}

// NewStore creates a Store holding initial.
func NewStore(initial State, opts ...StoreOption) *Store {
	s := &Store{state: initial, listeners: make(map[int]Listener)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dispatch reduces a into the current state and notifies listeners.
// Listeners run on the dispatching goroutine after the lock is released.
func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	s.state = Reduce(s.state, a)
	if s.record {
		s.history = append(s.history, a)
	}
	next := s.state
	listeners := make([]Listener, 0, len(s.listeners))
	for id := 0; id < s.nextID; id++ {
		if l, ok := s.listeners[id]; ok {
			listeners = append(listeners, l)
		}
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(next)
	}
	return next
}

// State returns the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// History returns the recorded actions, oldest first.
func (s *Store) History() []Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Action(nil), s.history...)
}
