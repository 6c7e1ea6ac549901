// Package session sequences one game: it owns the GameState, applies the
// pure transitions from pkg/state and drives the generators that produce
// turns, panels and the final video.
package session

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/story-reel/internal/apperr"
	"github.com/jwebster45206/story-reel/internal/generation"
	"github.com/jwebster45206/story-reel/internal/services/events"
	"github.com/jwebster45206/story-reel/internal/video"
	"github.com/jwebster45206/story-reel/pkg/state"
)

// TextGenerator writes options and AI turns.
type TextGenerator interface {
	GenerateOptions(ctx context.Context, genre, storySoFar, handle string) (*generation.OptionsResult, error)
	GenerateAITurn(ctx context.Context, genre, storySoFar, handle string) (*generation.TurnResult, error)
}

// PanelBatcher renders the storyboard.
type PanelBatcher interface {
	GenerateAllPanels(ctx context.Context, story, genre string, onSettled func(settled int)) (*generation.PanelResult, error)
}

// VideoPoller runs one video generation to completion.
type VideoPoller interface {
	StartAndAwait(ctx context.Context, params video.Params, observe video.Observer) (*video.Result, error)
}

// VideoResolver turns a finished asset into a playable URL.
type VideoResolver interface {
	Resolve(ctx context.Context, sessionID, rawURL string) (*video.Playable, error)
	Release(ctx context.Context, sessionID string) error
	Discard(ctx context.Context, sessionID string, p *video.Playable) error
}

// Deps are the collaborators shared by every session.
type Deps struct {
	Text     TextGenerator
	Panels   PanelBatcher
	Poller   VideoPoller
	Resolver VideoResolver
	Events   events.Publisher
	Logger   *slog.Logger
	Now      func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Events == nil {
		d.Events = events.Discard{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// errStale is returned when a background result arrives after a reset.
var errStale = errors.New("game was reset while the operation was running")

// prefetched holds options fetched ahead of time for one user turn.
type prefetched struct {
	turn    int
	options []generation.Option
}

// Session owns one game. All state changes go through apply, which runs a
// pure transition under the lock and checks the result's invariants.
type Session struct {
	id     uuid.UUID
	deps   Deps
	logger *slog.Logger
	bgCtx  context.Context

	mu         sync.Mutex
	state      state.GameState
	epoch      int
	prefetch   *prefetched
	lastActive time.Time

	background sync.WaitGroup
	running    atomic.Int32
}

// New creates a session in topic selection. Background work runs under bgCtx.
func New(bgCtx context.Context, id uuid.UUID, deps Deps) *Session {
	deps = deps.withDefaults()
	now := deps.Now()
	return &Session{
		id:         id,
		deps:       deps,
		logger:     deps.Logger.With("session_id", id.String()),
		bgCtx:      bgCtx,
		state:      state.New(id, now),
		lastActive: now,
	}
}

// ID returns the session's game ID.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() state.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// touch marks the session as used by a client.
func (s *Session) touch() {
	s.mu.Lock()
	s.lastActive = s.deps.Now()
	s.mu.Unlock()
}

// idle reports whether the session has seen no activity for ttl and has no
// background work running.
func (s *Session) idle(now time.Time, ttl time.Duration) bool {
	if s.running.Load() > 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastActive) >= ttl
}

// Wait blocks until every background task has finished.
func (s *Session) Wait() {
	s.background.Wait()
}

type transition func(gs state.GameState, now time.Time) (state.GameState, error)

func (s *Session) apply(fn transition) (state.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyLocked(fn)
}

// applyAt applies fn only if no reset happened since epoch was read.
func (s *Session) applyAt(epoch int, fn transition) (state.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return s.state, errStale
	}
	return s.applyLocked(fn)
}

func (s *Session) applyLocked(fn transition) (state.GameState, error) {
	next, err := fn(s.state, s.deps.Now())
	if err != nil {
		return s.state, domainError(err)
	}
	if err := next.Validate(); err != nil {
		s.logger.Error("Transition broke game invariants", "error", err, "phase", next.Phase)
		return s.state, apperr.Wrap(apperr.CodeGeneration, "game state is inconsistent", err)
	}
	s.state = next
	s.lastActive = s.deps.Now()
	return next, nil
}

func (s *Session) currentEpoch() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// goBackground runs fn in the background, tracked by Wait.
func (s *Session) goBackground(fn func(ctx context.Context)) {
	s.background.Add(1)
	s.running.Add(1)
	go func() {
		defer s.background.Done()
		defer s.running.Add(-1)
		fn(s.bgCtx)
	}()
}

func (s *Session) publish(eventType events.EventType, data map[string]any) {
	ctx := context.WithoutCancel(s.bgCtx)
	if err := s.deps.Events.Publish(ctx, s.id, eventType, data); err != nil {
		s.logger.Warn("Failed to publish event", "event_type", eventType, "error", err)
	}
}

// SelectGenre starts play on a genre. The user writes the first turn.
func (s *Session) SelectGenre(ctx context.Context, genre string) (state.GameState, error) {
	gs, err := s.apply(func(gs state.GameState, now time.Time) (state.GameState, error) {
		return state.SelectGenre(gs, genre, now)
	})
	if err != nil {
		return gs, err
	}
	s.logger.InfoContext(ctx, "Genre selected", "genre", gs.Genre)
	s.publish(events.EventTypeGameStateUpdated, map[string]any{"phase": gs.Phase})
	return gs, nil
}

// SelectTopic starts play from a topic starter, committed as the user's
// first turn. The AI writes next.
func (s *Session) SelectTopic(ctx context.Context, topic string) (state.GameState, error) {
	gs, err := s.apply(func(gs state.GameState, now time.Time) (state.GameState, error) {
		return state.SelectTopic(gs, topic, uuid.New(), now)
	})
	if err != nil {
		return gs, err
	}
	s.logger.InfoContext(ctx, "Topic selected", "turn", gs.CurrentTurnNumber)
	s.publishTurn(gs)
	return gs, nil
}

// Options returns the three choices for the user's next turn. A prefetched
// set is used only when it was fetched for the turn now due.
func (s *Session) Options(ctx context.Context) ([]generation.Option, error) {
	s.mu.Lock()
	gs := s.state
	epoch := s.epoch
	if err := requireUserTurn(gs, "generate options"); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	target := gs.CurrentTurnNumber + 1
	if p := s.prefetch; p != nil {
		if p.turn == target {
			options := slices.Clone(p.options)
			s.mu.Unlock()
			s.logger.DebugContext(ctx, "Using prefetched options", "turn", target)
			return options, nil
		}
		s.logger.DebugContext(ctx, "Discarding stale prefetched options", "prefetched_turn", p.turn, "turn", target)
		s.prefetch = nil
	}
	s.mu.Unlock()

	res, err := s.deps.Text.GenerateOptions(ctx, gs.Genre, gs.StorySoFar(), gs.ConversationHandle)
	if err != nil {
		return nil, err
	}
	s.storePrefetch(epoch, target, res.Options)
	return slices.Clone(res.Options), nil
}

// storePrefetch caches options for turn if that turn is still the one due.
func (s *Session) storePrefetch(epoch, turn int, options []generation.Option) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch || s.state.Phase != state.PhasePlaying || !s.state.IsUserTurn ||
		s.state.CurrentTurnNumber+1 != turn {
		return false
	}
	s.prefetch = &prefetched{turn: turn, options: slices.Clone(options)}
	return true
}

// prefetchOptions fetches options for turn in the background. Failures are
// only logged; Options falls back to a fresh request.
func (s *Session) prefetchOptions(gs state.GameState) {
	epoch := s.currentEpoch()
	turn := gs.CurrentTurnNumber + 1
	s.goBackground(func(ctx context.Context) {
		res, err := s.deps.Text.GenerateOptions(ctx, gs.Genre, gs.StorySoFar(), gs.ConversationHandle)
		if err != nil {
			s.logger.Debug("Options prefetch failed", "turn", turn, "error", err)
			return
		}
		if s.storePrefetch(epoch, turn, res.Options) {
			s.logger.Debug("Options prefetched", "turn", turn)
		}
	})
}

// SubmitUserTurn commits the user's sentence.
func (s *Session) SubmitUserTurn(ctx context.Context, content string) (state.GameState, error) {
	gs, err := s.apply(func(gs state.GameState, now time.Time) (state.GameState, error) {
		return state.AppendTurn(gs, state.AuthorUser, content, uuid.New(), now)
	})
	if err != nil {
		return gs, err
	}
	s.logger.InfoContext(ctx, "User turn committed", "turn", gs.CurrentTurnNumber, "phase", gs.Phase)
	s.publishTurn(gs)
	return gs, nil
}

// TakeAITurn asks the model for the AI's sentence and commits it together
// with the new continuation handle. When the user moves next, their options
// are prefetched.
func (s *Session) TakeAITurn(ctx context.Context) (state.GameState, error) {
	s.mu.Lock()
	gs := s.state
	epoch := s.epoch
	s.mu.Unlock()

	if gs.Phase != state.PhasePlaying || gs.IsUserTurn {
		return gs, apperr.Newf(apperr.CodeInvalidPhase, "cannot take AI turn in phase %s", gs.Phase)
	}

	res, err := s.deps.Text.GenerateAITurn(ctx, gs.Genre, gs.StorySoFar(), gs.ConversationHandle)
	if err != nil {
		s.logger.WarnContext(ctx, "AI turn failed", "turn", gs.CurrentTurnNumber+1, "error", err)
		return gs, err
	}

	next, err := s.applyAt(epoch, func(cur state.GameState, now time.Time) (state.GameState, error) {
		if cur.CurrentTurnNumber != gs.CurrentTurnNumber {
			return cur, &state.TransitionError{Op: "append AI turn", Phase: cur.Phase, Reason: "story moved on"}
		}
		cur, err := state.AppendTurn(cur, state.AuthorAI, res.Sentence, uuid.New(), now)
		if err != nil {
			return cur, err
		}
		return state.SetConversationHandle(cur, res.Handle, now), nil
	})
	if err != nil {
		if errors.Is(err, errStale) {
			return next, apperr.Wrap(apperr.CodeInvalidPhase, errStale.Error(), err)
		}
		return next, err
	}

	s.logger.InfoContext(ctx, "AI turn committed", "turn", next.CurrentTurnNumber, "phase", next.Phase)
	s.publishTurn(next)
	if next.Phase == state.PhasePlaying && next.IsUserTurn {
		s.prefetchOptions(next)
	}
	return next, nil
}

func (s *Session) publishTurn(gs state.GameState) {
	turn := gs.Turns[len(gs.Turns)-1]
	s.publish(events.EventTypeTurnCommitted, map[string]any{
		"turn_number":     turn.TurnNumber,
		"author":          turn.Author,
		"content":         turn.Content,
		"phase":           gs.Phase,
		"is_user_turn":    gs.IsUserTurn,
		"turns_remaining": gs.TurnsRemaining(),
	})
}

// Reset returns the game to topic selection. Results of background work
// started before the reset are dropped, and any proxied video is released.
func (s *Session) Reset(ctx context.Context) state.GameState {
	s.mu.Lock()
	s.epoch++
	s.prefetch = nil
	s.state = state.Reset(s.state, s.deps.Now())
	s.lastActive = s.deps.Now()
	gs := s.state
	s.mu.Unlock()

	if s.deps.Resolver != nil {
		if err := s.deps.Resolver.Release(ctx, s.id.String()); err != nil {
			s.logger.WarnContext(ctx, "Failed to release video blob", "error", err)
		}
	}
	s.logger.InfoContext(ctx, "Game reset")
	s.publish(events.EventTypeGameStateUpdated, map[string]any{"phase": gs.Phase})
	return gs
}

func requireUserTurn(gs state.GameState, op string) error {
	if gs.Phase != state.PhasePlaying {
		return apperr.Newf(apperr.CodeInvalidPhase, "cannot %s in phase %s", op, gs.Phase)
	}
	if !gs.IsUserTurn {
		return apperr.Newf(apperr.CodeInvalidPhase, "cannot %s: it is the AI's turn", op)
	}
	return nil
}

// domainError maps state package errors onto the apperr taxonomy.
func domainError(err error) error {
	var prefErr *state.PreferencesError
	switch {
	case errors.As(err, &prefErr):
		return apperr.Wrap(apperr.CodeValidation, err.Error(), err)
	case errors.Is(err, state.ErrInvalidTurn):
		return apperr.Wrap(apperr.CodeValidation, err.Error(), err)
	case errors.Is(err, state.ErrInvalidTransition):
		return apperr.Wrap(apperr.CodeInvalidPhase, err.Error(), err)
	default:
		return err
	}
}
