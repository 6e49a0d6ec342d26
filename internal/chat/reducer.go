// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/it-at-m/mucgpt-sub002/internal/model"
)

// =============================================================================
// STATE
// =============================================================================

// State is the conversation state of one session. Treat it as read-only.
type State struct {
	Turns []model.ChatTurn

	// ActiveConversationID is empty until the first turn has been persisted.
	ActiveConversationID string

	AllConversations []model.ConversationSummary
}

// LastTurn returns the last turn, if any.
func (s State) LastTurn() (model.ChatTurn, bool) {
	if len(s.Turns) == 0 {
		return model.ChatTurn{}, false
	}
	return s.Turns[len(s.Turns)-1], true
}

// =============================================================================
// ACTIONS
// =============================================================================

// Action is a state change request handled by Reduce.
type Action interface {
	ActionName() string
}

// SetTurns replaces all turns, e.g. after loading or rolling back a conversation.
type SetTurns struct {
	Turns []model.ChatTurn
}

// AddTurn appends the optimistic turn for a dispatched question.
// A turn with an empty question is dropped, so a following UpdateLastTurn
// targets the previous turn. Callers must reject empty questions first.
type AddTurn struct {
	Turn model.ChatTurn
}

// UpdateLastTurn replaces the answer of the last turn.
type UpdateLastTurn struct {
	Answer model.AnswerRecord
}

// RemoveLastTurn drops the last turn before it is regenerated or retried.
type RemoveLastTurn struct{}

// ClearTurns removes all turns and forgets the active conversation.
type ClearTurns struct{}

// SetActiveConversation sets the id the session persists to. Empty clears it.
type SetActiveConversation struct {
	ID string
}

// SetAllConversations replaces the conversation list.
type SetAllConversations struct {
	Conversations []model.ConversationSummary
}

func (SetTurns) ActionName() string              { return "SET_TURNS" }
func (AddTurn) ActionName() string               { return "ADD_TURN" }
func (UpdateLastTurn) ActionName() string        { return "UPDATE_LAST_TURN" }
func (RemoveLastTurn) ActionName() string        { return "REMOVE_LAST_TURN" }
func (ClearTurns) ActionName() string            { return "CLEAR_TURNS" }
func (SetActiveConversation) ActionName() string { return "SET_ACTIVE_CONVERSATION" }
func (SetAllConversations) ActionName() string   { return "SET_ALL_CONVERSATIONS" }

// =============================================================================
// REDUCER
// =============================================================================

// Reduce returns the state that results from applying a to s.
// It never modifies s or the slices it references.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SetTurns:
		s.Turns = withoutEmptyQuestions(a.Turns)

	case AddTurn:
		if a.Turn.User == "" {
			return s
		}
		turns := make([]model.ChatTurn, len(s.Turns), len(s.Turns)+1)
		copy(turns, s.Turns)
		s.Turns = append(turns, a.Turn.Clone())

	case UpdateLastTurn:
		if len(s.Turns) == 0 {
			return s
		}
		turns := make([]model.ChatTurn, len(s.Turns))
		copy(turns, s.Turns)
		last := &turns[len(turns)-1]
		last.Answer = a.Answer.Clone()
		s.Turns = turns

	case RemoveLastTurn:
		if len(s.Turns) == 0 {
			return s
		}
		s.Turns = s.Turns[:len(s.Turns)-1:len(s.Turns)-1]

	case ClearTurns:
		s.Turns = nil
		s.ActiveConversationID = ""

	case SetActiveConversation:
		s.ActiveConversationID = a.ID

	case SetAllConversations:
		if a.Conversations == nil {
			s.AllConversations = nil
		} else {
			s.AllConversations = append([]model.ConversationSummary(nil), a.Conversations...)
		}
	}
	return s
}

// Replay folds actions over initial.
func Replay(initial State, actions []Action) State {
	s := initial
	for _, a := range actions {
		s = Reduce(s, a)
	}
	return s
}

func withoutEmptyQuestions(turns []model.ChatTurn) []model.ChatTurn {
	if len(turns) == 0 {
		return nil
	}
	out := make([]model.ChatTurn, 0, len(turns))
	for _, t := range turns {
		if t.User != "" {
			out = append(out, t.Clone())
		}
	}
	return out
}
