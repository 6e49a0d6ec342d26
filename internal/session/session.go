// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/it-at-m/mucgpt-sub002/internal/answer"
	"github.com/it-at-m/mucgpt-sub002/internal/chat"
	"github.com/it-at-m/mucgpt-sub002/internal/cloud"
	"github.com/it-at-m/mucgpt-sub002/internal/logging"
	"github.com/it-at-m/mucgpt-sub002/internal/metrics"
	"github.com/it-at-m/mucgpt-sub002/internal/model"
	"github.com/it-at-m/mucgpt-sub002/internal/storage"
	"github.com/it-at-m/mucgpt-sub002/internal/stream"
	"github.com/it-at-m/mucgpt-sub002/internal/toolcall"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrBusy is returned while another operation is in flight.
	ErrBusy = errors.New("a request is already in progress")

	// ErrEmptyQuestion is returned for a blank question.
	ErrEmptyQuestion = errors.New("question is empty")

	// ErrNothingToRegenerate is returned when there is no turn to regenerate.
	ErrNothingToRegenerate = errors.New("no answer to regenerate")

	// ErrNoFailedTurn is returned by Retry when the last turn did not fail.
	ErrNoFailedTurn = errors.New("last answer did not fail")
)

// =============================================================================
// SESSION
// =============================================================================

// Backend opens the event stream for a chat request.
type Backend interface {
	Stream(ctx context.Context, req cloud.ChatRequest) (io.ReadCloser, error)
}

// StatusListener receives the tool statuses whenever a tool starts or ends.
// After a ROLLBACK the list ends with the rolled back tool's canceled
// status, which is not retained anywhere else.
type StatusListener func([]model.ToolStatus)

// Session is the pipeline glue for one conversation view.
type Session struct {
	store   *chat.Store
	bridge  storage.Bridge
	backend Backend

	defaults   model.ChatConfig
	log        zerolog.Logger
	metrics    *metrics.Metrics
	debounce   time.Duration
	maxWait    time.Duration
	readerOpts []stream.ReaderOption
	onStatus   StatusListener

	mu       sync.Mutex
	busy     bool
	pending  string
	config   model.ChatConfig
	inflight sync.WaitGroup

	// stored counts the leading turns known to be in storage. It lags
	// behind the local turns after a failed write.
	stored int
}

// Option configures a Session.
type Option func(*Session)

// WithConfig sets the request config used for new conversations.
func WithConfig(cfg model.ChatConfig) Option {
	return func(s *Session) { s.defaults = cfg.Clone() }
}

// WithLogger sets the session's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithMetrics records stream and persistence metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithDebounce sets the answer notification debounce.
func WithDebounce(d time.Duration) Option {
	return func(s *Session) { s.debounce = d }
}

// WithMaxWait bounds how long a continuous stream can delay notifications.
func WithMaxWait(d time.Duration) Option {
	return func(s *Session) { s.maxWait = d }
}

// WithMaxFrameSize limits a single stream line.
func WithMaxFrameSize(n int) Option {
	return func(s *Session) { s.readerOpts = append(s.readerOpts, stream.WithMaxFrameSize(n)) }
}

// WithStatusListener is called when a tool starts, ends or is rolled back.
func WithStatusListener(fn StatusListener) Option {
	return func(s *Session) { s.onStatus = fn }
}

// WithStore uses an existing chat store instead of a fresh one.
func WithStore(store *chat.Store) Option {
	return func(s *Session) { s.store = store }
}

// New creates a session with an empty conversation.
func New(backend Backend, bridge storage.Bridge, opts ...Option) *Session {
	s := &Session{
		bridge:   bridge,
		backend:  backend,
		log:      logging.Get(),
		debounce: answer.DefaultDebounce,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = chat.NewStore(chat.State{})
	}
	if st := s.store.State(); st.ActiveConversationID != "" {
		s.stored = len(st.Turns)
	}
	s.config = s.defaults.Clone()
	return s
}

// =============================================================================
// STATE ACCESS
// =============================================================================

// State returns the current chat state.
func (s *Session) State() chat.State {
	return s.store.State()
}

// Subscribe registers l for every state change and returns its unsubscribe func.
func (s *Session) Subscribe(l chat.Listener) func() {
	return s.store.Subscribe(l)
}

// IsLoading reports whether an operation is in flight.
func (s *Session) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// PendingQuestion returns the question text restored by the last rollback.
func (s *Session) PendingQuestion() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// SetPendingQuestion replaces the pending question text.
func (s *Session) SetPendingQuestion(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = q
}

// Config returns the request config of the active conversation.
func (s *Session) Config() model.ChatConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config.Clone()
}

// Wait blocks until every asynchronous regenerate has finished.
func (s *Session) Wait() {
	s.inflight.Wait()
}

func (s *Session) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrBusy
	}
	s.busy = true
	return nil
}

func (s *Session) release() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

// =============================================================================
// SEND / RETRY / REGENERATE
// =============================================================================

// Send asks question and blocks until the answer is complete.
// A failed stream leaves the partial answer with an error placeholder on the
// last turn and returns the stream error; Retry resubmits the question.
func (s *Session) Send(ctx context.Context, question string) error {
	if strings.TrimSpace(question) == "" {
		return ErrEmptyQuestion
	}
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()

	return s.run(ctx, question, s.Config())
}

// Retry removes the failed last turn and asks its question again.
func (s *Session) Retry(ctx context.Context) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()

	last, ok := s.store.State().LastTurn()
	if !ok || !last.Answer.IsFailed() {
		return ErrNoFailedTurn
	}
	if err := s.popLastTurn(ctx); err != nil {
		return err
	}
	return s.run(ctx, last.User, s.Config())
}

// Regenerate removes the last turn and resubmits its question with the
// conversation's original config. The stream runs asynchronously; the
// returned channel receives its result. Precondition failures are delivered
// on the channel without starting a stream.
func (s *Session) Regenerate(ctx context.Context) <-chan error {
	result := make(chan error, 1)

	if err := s.acquire(); err != nil {
		result <- err
		return result
	}

	last, ok := s.store.State().LastTurn()
	if !ok {
		s.release()
		result <- ErrNothingToRegenerate
		return result
	}
	if err := s.popLastTurn(ctx); err != nil {
		s.release()
		result <- err
		return result
	}

	cfg := s.Config()
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer s.release()
		result <- s.run(ctx, last.User, cfg)
	}()
	return result
}

// popLastTurn drops the last turn from local state, and from storage when
// it was stored.
func (s *Session) popLastTurn(ctx context.Context) error {
	state := s.store.State()
	if id := state.ActiveConversationID; id != "" && s.storedTurns() == len(state.Turns) {
		if err := s.bridge.PopLastTurn(ctx, id); err != nil {
			return err
		}
		s.setStoredTurns(len(state.Turns) - 1)
	}
	s.store.Dispatch(chat.RemoveLastTurn{})
	return nil
}

func (s *Session) storedTurns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stored
}

func (s *Session) setStoredTurns(n int) {
	s.mu.Lock()
	s.stored = n
	s.mu.Unlock()
}

// =============================================================================
// STREAMING
// =============================================================================

// request holds the per-stream pipeline.
type request struct {
	tracker   *toolcall.Tracker
	assembler *answer.Assembler

	mu      sync.Mutex
	failure string
}

func (r *request) fail(err error) {
	r.mu.Lock()
	r.failure = err.Error()
	r.mu.Unlock()
}

// compose builds the answer record from the assembler and tool tracker.
func (r *request) compose() model.AnswerRecord {
	res := r.assembler.Snapshot()

	r.mu.Lock()
	failure := r.failure
	r.mu.Unlock()

	return model.AnswerRecord{
		Text:          res.Text,
		ReasoningText: res.ReasoningText,
		TokensIn:      res.PromptTokens,
		TokensOut:     res.CompletionTokens,
		ActiveTools:   r.tracker.ActiveStatuses(),
		ToolOutput:    r.tracker.Render(),
		Error:         failure,
	}
}

// run streams one answer for question and persists the resulting turn.
func (s *Session) run(ctx context.Context, question string, cfg model.ChatConfig) error {
	s.SetPendingQuestion("")
	s.store.Dispatch(chat.AddTurn{Turn: model.NewTurn(question)})

	req := &request{
		tracker: toolcall.NewTracker(toolcall.WithLogger(s.log), toolcall.WithMetrics(s.metrics)),
	}
	notifyOpts := []answer.NotifierOption{answer.WithDebounce(s.debounce)}
	if s.maxWait > 0 {
		notifyOpts = append(notifyOpts, answer.WithMaxWait(s.maxWait))
	}
	notifier := answer.NewNotifier(func() {
		s.store.Dispatch(chat.UpdateLastTurn{Answer: req.compose()})
	}, notifyOpts...)
	req.assembler = answer.NewAssembler(notifier)

	streamErr := s.consume(ctx, req, notifier, cfg)
	outcome := metrics.OutcomeCompleted
	if streamErr != nil {
		outcome = metrics.OutcomeFailed
		if ctx.Err() != nil {
			outcome = metrics.OutcomeCanceled
			// In-flight tool buffers are discarded on abort.
			req.tracker.Reset()
		}
		req.fail(streamErr)
		s.log.Warn().Err(streamErr).Str("outcome", outcome).Msg("Chat stream failed")
	}

	final := req.assembler.Finish()
	s.metrics.StreamFinished(outcome)
	s.metrics.Tokens(final.PromptTokens, final.CompletionTokens)

	// The turn is persisted even when the stream failed; cancellation of
	// ctx must not prevent that.
	persistErr := s.persist(context.WithoutCancel(ctx), cfg)
	return errors.Join(streamErr, persistErr)
}

// consume opens the stream and feeds every event into the pipeline.
func (s *Session) consume(ctx context.Context, req *request, notifier *answer.Notifier, cfg model.ChatConfig) error {
	body, err := s.backend.Stream(ctx, cloud.NewChatRequest(s.store.State().Turns, cfg))
	if err != nil {
		return err
	}
	defer body.Close()

	opts := append([]stream.ReaderOption{
		stream.WithLogger(s.log),
		stream.WithMetrics(s.metrics),
	}, s.readerOpts...)

	return stream.Process(ctx, body, func(ev stream.Event) error {
		switch ev := ev.(type) {
		case stream.ToolDelta:
			b, statusChanged := req.tracker.Apply(ev)
			notifier.Trigger()
			if statusChanged && s.onStatus != nil {
				statuses := req.tracker.ActiveStatuses()
				if toolcall.IsRollback(ev.State) {
					statuses = append(statuses, b.Status)
				}
				s.onStatus(statuses)
			}
		case stream.BackendError:
			return ev
		default:
			req.assembler.Apply(ev)
		}
		return nil
	}, opts...)
}

// persist stores every turn not yet in storage, creating the conversation
// on first use. Turns left over from an earlier failed write go first.
func (s *Session) persist(ctx context.Context, cfg model.ChatConfig) error {
	state := s.store.State()
	if len(state.Turns) == 0 {
		return nil
	}

	id := state.ActiveConversationID
	if id == "" {
		newID, err := s.bridge.Create(ctx, state.Turns, cfg, "", "", false)
		if err != nil {
			s.metrics.PersistError("create")
			return err
		}
		s.store.Dispatch(chat.SetActiveConversation{ID: newID})
		s.mu.Lock()
		s.config = cfg.Clone()
		s.stored = len(state.Turns)
		s.mu.Unlock()
		s.log.Debug().Str("conversation", newID).Msg("Created conversation")
	} else {
		for i := s.storedTurns(); i < len(state.Turns); i++ {
			if err := s.bridge.AppendTurn(ctx, state.Turns[i], id, cfg); err != nil {
				s.metrics.PersistError("append")
				return err
			}
			s.setStoredTurns(i + 1)
		}
	}

	s.refresh(ctx)
	return nil
}

// =============================================================================
// ROLLBACK / LOAD / CLEAR / DELETE
// =============================================================================

// Rollback keeps only the turns before index. The question of the first
// removed turn becomes the pending question. Rolling back to an empty
// conversation deletes it. On failure the state is unchanged.
func (s *Session) Rollback(ctx context.Context, index int) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()

	state := s.store.State()
	if index < 0 || index >= len(state.Turns) {
		return storage.ErrInvalidIndex
	}

	id := state.ActiveConversationID
	if id == "" || index >= s.storedTurns() {
		// The removed turns never reached storage.
		s.SetPendingQuestion(state.Turns[index].User)
		s.store.Dispatch(chat.SetTurns{Turns: state.Turns[:index]})
		return nil
	}

	res, err := s.bridge.RollbackMessage(ctx, index, id)
	if err != nil {
		return err
	}
	if res == nil {
		return fmt.Errorf("rollback %s: %w", id, storage.ErrNotFound)
	}

	if len(res.Turns) == 0 {
		if err := s.bridge.Delete(ctx, id); err != nil {
			return err
		}
		s.store.Dispatch(chat.ClearTurns{})
		s.resetConversation()
	} else {
		s.store.Dispatch(chat.SetTurns{Turns: res.Turns})
	}
	s.setStoredTurns(len(s.store.State().Turns))
	s.SetPendingQuestion(res.Question)
	s.refresh(ctx)
	return nil
}

// Load opens a stored conversation.
func (s *Session) Load(ctx context.Context, id string) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()

	rec, err := s.bridge.Get(ctx, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("load %s: %w", id, storage.ErrNotFound)
	}

	s.store.Dispatch(chat.SetTurns{Turns: rec.Turns})
	s.store.Dispatch(chat.SetActiveConversation{ID: id})
	loaded := len(s.store.State().Turns)
	s.mu.Lock()
	s.config = rec.Config.Clone()
	s.pending = ""
	s.stored = loaded
	s.mu.Unlock()
	return nil
}

// Clear starts a new conversation. Stored conversations are kept.
func (s *Session) Clear() error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()

	s.store.Dispatch(chat.ClearTurns{})
	s.resetConversation()
	s.SetPendingQuestion("")
	return nil
}

// Delete removes a stored conversation, clearing it first if it is active.
func (s *Session) Delete(ctx context.Context, id string) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()

	if err := s.bridge.Delete(ctx, id); err != nil {
		return err
	}
	if s.store.State().ActiveConversationID == id {
		s.store.Dispatch(chat.ClearTurns{})
		s.resetConversation()
	}
	s.refresh(ctx)
	return nil
}

// Refresh reloads the conversation list.
func (s *Session) Refresh(ctx context.Context) error {
	sums, err := s.bridge.List(ctx)
	if err != nil {
		return err
	}
	s.store.Dispatch(chat.SetAllConversations{Conversations: sums})
	return nil
}

// refresh is Refresh for callers that already succeeded at their main work.
func (s *Session) refresh(ctx context.Context) {
	if err := s.Refresh(ctx); err != nil {
		s.log.Warn().Err(err).Msg("Failed to refresh conversation list")
	}
}

func (s *Session) resetConversation() {
	s.mu.Lock()
	s.config = s.defaults.Clone()
	s.stored = 0
	s.mu.Unlock()
}
