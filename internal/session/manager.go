package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/story-reel/internal/apperr"
)

// Manager keeps the process-local sessions keyed by game ID.
type Manager struct {
	deps   Deps
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

func NewManager(deps Deps) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		deps:     deps.withDefaults(),
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Create starts a new game.
func (m *Manager) Create() *Session {
	s := New(m.ctx, uuid.New(), m.deps)

	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()

	m.deps.Logger.Info("Game created", "session_id", s.ID().String())
	return s
}

// Get returns the session for id and marks it as active.
func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, apperr.Newf(apperr.CodeNotFound, "game %s not found", id)
	}
	s.touch()
	return s, nil
}

// Delete removes a game and releases its proxied video.
func (m *Manager) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return apperr.Newf(apperr.CodeNotFound, "game %s not found", id)
	}
	s.Reset(ctx)
	m.deps.Logger.Info("Game deleted", "session_id", id.String())
	return nil
}

// Sweep deletes games that have been idle for at least ttl. Games with
// panel or video work still running are kept. It returns how many were
// removed.
func (m *Manager) Sweep(ctx context.Context, ttl time.Duration) int {
	now := m.deps.Now()

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if s.idle(now, ttl) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.Reset(ctx)
		m.deps.Logger.Info("Game expired", "session_id", s.ID().String(), "ttl", ttl)
	}
	return len(expired)
}

// StartSweeper runs Sweep every interval until Shutdown is called.
func (m *Manager) StartSweeper(ttl, interval time.Duration) {
	if ttl <= 0 || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.ctx.Done():
				return
			case <-ticker.C:
				if n := m.Sweep(m.ctx, ttl); n > 0 {
					m.deps.Logger.Debug("Expired idle games", "count", n, "remaining", m.Len())
				}
			}
		}
	}()
}

// Len returns the number of live games.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown cancels background work and waits for it to stop, or for ctx to
// be done.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.cancel()

	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	done := make(chan struct{})
	go func() {
		for _, s := range sessions {
			s.Wait()
		}
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
