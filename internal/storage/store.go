// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/it-at-m/mucgpt-sub002/internal/logging"
	"github.com/it-at-m/mucgpt-sub002/internal/metrics"
	"github.com/it-at-m/mucgpt-sub002/internal/model"
)

// DefaultMaxConversations is the retention limit used when none is configured.
const DefaultMaxConversations = 100

var validID = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// ValidateID reports whether id can be used as a storage key.
func ValidateID(id string) error {
	if !validID.MatchString(id) {
		return ErrInvalidID
	}
	return nil
}

// generateConversationID creates a unique conversation ID.
func generateConversationID() string {
	return "conv_" + uuid.NewString()
}

// =============================================================================
// STORE
// =============================================================================

// Store implements Bridge on top of an Engine. Read-modify-write
// operations are serialized.
type Store struct {
	mu               sync.Mutex
	engine           Engine
	maxConversations int
	log              zerolog.Logger
	metrics          *metrics.Metrics
	now              func() time.Time
}

var _ Bridge = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithMaxConversations limits stored conversations (0 = unlimited).
// The least recently updated non-favorite conversations are removed first.
func WithMaxConversations(n int) Option {
	return func(s *Store) { s.maxConversations = n }
}

// WithLogger sets the store's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithMetrics counts failed operations on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithClock replaces the clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates a Store over engine.
func NewStore(engine Engine, opts ...Option) *Store {
	s := &Store{
		engine:           engine,
		maxConversations: DefaultMaxConversations,
		log:              logging.Get(),
		now:              func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine returns the underlying engine.
func (s *Store) Engine() Engine {
	return s.engine
}

// Close closes the engine.
func (s *Store) Close() error {
	return s.engine.Close()
}

// =============================================================================
// BRIDGE OPERATIONS
// =============================================================================

// Create implements Bridge.
func (s *Store) Create(ctx context.Context, turns []model.ChatTurn, cfg model.ChatConfig, id, name string, favorite bool) (string, error) {
	if id == "" {
		id = generateConversationID()
	}
	if err := ValidateID(id); err != nil {
		return "", s.fail("create", id, err)
	}
	if name == "" {
		name = "New conversation"
		if len(turns) > 0 {
			name = model.DisplayName(turns[0].User)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	conv := &model.Conversation{
		ID:        id,
		Name:      name,
		Favorite:  favorite,
		Turns:     model.CloneTurns(turns),
		Config:    cfg.Clone(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.engine.Save(ctx, conv); err != nil {
		return "", s.fail("create", id, err)
	}

	if s.maxConversations > 0 {
		s.enforceLimit(ctx, id)
	}
	return id, nil
}

// AppendTurn implements Bridge.
func (s *Store) AppendTurn(ctx context.Context, turn model.ChatTurn, id string, cfg model.ChatConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.load(ctx, id)
	if err != nil {
		return s.fail("append", id, err)
	}
	conv.Turns = append(conv.Turns, turn.Clone())
	conv.Config = cfg.Clone()
	conv.UpdatedAt = s.now()
	if err := s.engine.Save(ctx, conv); err != nil {
		return s.fail("append", id, err)
	}
	return nil
}

// Get implements Bridge.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	conv, err := s.Load(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &Record{Turns: conv.Turns, Config: conv.Config}, nil
}

// Delete implements Bridge.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ValidateID(id); err != nil {
		return s.fail("delete", id, err)
	}
	err := s.engine.Remove(ctx, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return s.fail("delete", id, err)
	}
	return nil
}

// RollbackMessage implements Bridge.
func (s *Store) RollbackMessage(ctx context.Context, index int, id string) (*RollbackResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.load(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, s.fail("rollback", id, err)
	}
	if index < 0 || index >= len(conv.Turns) {
		return nil, s.fail("rollback", id, ErrInvalidIndex)
	}

	question := conv.Turns[index].User
	conv.Turns = conv.Turns[:index]
	conv.UpdatedAt = s.now()
	if err := s.engine.Save(ctx, conv); err != nil {
		return nil, s.fail("rollback", id, err)
	}

	return &RollbackResult{
		Turns:          model.CloneTurns(conv.Turns),
		ConversationID: id,
		Question:       question,
	}, nil
}

// PopLastTurn implements Bridge.
func (s *Store) PopLastTurn(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.load(ctx, id)
	if err != nil {
		return s.fail("pop", id, err)
	}
	if len(conv.Turns) == 0 {
		return nil
	}
	conv.Turns = conv.Turns[:len(conv.Turns)-1]
	conv.UpdatedAt = s.now()
	if err := s.engine.Save(ctx, conv); err != nil {
		return s.fail("pop", id, err)
	}
	return nil
}

// List implements Bridge.
func (s *Store) List(ctx context.Context) ([]model.ConversationSummary, error) {
	sums, err := s.engine.List(ctx)
	if err != nil {
		return nil, s.fail("list", "", err)
	}
	sortSummaries(sums)
	return sums, nil
}

// =============================================================================
// CONVERSATION OPERATIONS
// =============================================================================

// Load returns the full stored conversation.
func (s *Store) Load(ctx context.Context, id string) (*model.Conversation, error) {
	conv, err := s.load(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &PersistenceError{Op: "get", ID: id, Err: err}
		}
		return nil, s.fail("get", id, err)
	}
	return conv, nil
}

// Rename changes a conversation's display name.
func (s *Store) Rename(ctx context.Context, id, name string) error {
	return s.update(ctx, "rename", id, func(c *model.Conversation) {
		c.Name = name
	})
}

// SetFavorite marks or unmarks a conversation as favorite.
func (s *Store) SetFavorite(ctx context.Context, id string, favorite bool) error {
	return s.update(ctx, "favorite", id, func(c *model.Conversation) {
		c.Favorite = favorite
	})
}

func (s *Store) update(ctx context.Context, op, id string, fn func(*model.Conversation)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.load(ctx, id)
	if err != nil {
		return s.fail(op, id, err)
	}
	fn(conv)
	conv.UpdatedAt = s.now()
	if err := s.engine.Save(ctx, conv); err != nil {
		return s.fail(op, id, err)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Store) load(ctx context.Context, id string) (*model.Conversation, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	return s.engine.Load(ctx, id)
}

// enforceLimit removes the oldest conversations if over the limit.
// keep is never removed.
func (s *Store) enforceLimit(ctx context.Context, keep string) {
	sums, err := s.engine.List(ctx)
	if err != nil || len(sums) <= s.maxConversations {
		return
	}

	// Oldest first
	sort.Slice(sums, func(i, j int) bool {
		return sums[i].UpdatedAt.Before(sums[j].UpdatedAt)
	})

	excess := len(sums) - s.maxConversations
	for _, sum := range sums {
		if excess == 0 {
			return
		}
		if sum.Favorite || sum.ID == keep {
			continue
		}
		if err := s.engine.Remove(ctx, sum.ID); err != nil {
			s.log.Warn().Err(err).Str("conversation", sum.ID).Msg("Failed to prune conversation")
			continue
		}
		excess--
	}
}

func (s *Store) fail(op, id string, err error) error {
	s.metrics.PersistError(op)
	s.log.Warn().Err(err).Str("op", op).Str("conversation", id).Msg("Storage operation failed")
	return &PersistenceError{Op: op, ID: id, Err: err}
}

// sortSummaries orders by most recent update, then id.
func sortSummaries(sums []model.ConversationSummary) {
	sort.Slice(sums, func(i, j int) bool {
		if !sums[i].UpdatedAt.Equal(sums[j].UpdatedAt) {
			return sums[i].UpdatedAt.After(sums[j].UpdatedAt)
		}
		return sums[i].ID < sums[j].ID
	})
}
