package services

import (
	"context"
	"sync"
	"time"

	"kydx-console/session"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
)

type sessionEntry struct {
	ctrl    *session.Controller
	started sync.Once

	mu         sync.Mutex
	lastAccess time.Time
}

func (e *sessionEntry) touch(now time.Time) {
	e.mu.Lock()
	e.lastAccess = now
	e.mu.Unlock()
}

func (e *sessionEntry) idleSince() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastAccess
}

// SessionService keeps one controller per browser session. The least
// recently used session is evicted once MaxSessions is reached.
type SessionService struct {
	backend session.Backend
	opts    session.Options
	logger  *zap.Logger

	mu       sync.Mutex
	sessions *lru.Cache
	now      func() time.Time
}

func NewSessionService(backend session.Backend, opts session.Options, maxSessions int, logger *zap.Logger) (*SessionService, error) {
	ss := &SessionService{
		backend: backend,
		opts:    opts,
		logger:  logger,
		now:     time.Now,
	}
	cache, err := lru.NewWithEvict(max(maxSessions, 1), func(key, _ interface{}) {
		logger.Info("Evicted session", zap.String("session_id", key.(uuid.UUID).String()))
	})
	if err != nil {
		return nil, err
	}
	ss.sessions = cache
	return ss, nil
}

// Get returns the controller for id, creating and starting it on first use.
// Concurrent first requests share one Start.
func (ss *SessionService) Get(ctx context.Context, id uuid.UUID) *session.Controller {
	ss.mu.Lock()
	var entry *sessionEntry
	if v, ok := ss.sessions.Get(id); ok {
		entry = v.(*sessionEntry)
	} else {
		entry = &sessionEntry{ctrl: session.New(ss.backend, ss.opts, ss.logger)}
		ss.sessions.Add(id, entry)
		ss.logger.Info("Created session",
			zap.String("session_id", id.String()),
			zap.Int("active_sessions", ss.sessions.Len()))
	}
	ss.mu.Unlock()

	entry.touch(ss.now())
	entry.started.Do(func() {
		if _, err := entry.ctrl.Start(ctx); err != nil {
			ss.logger.Warn("Failed to start session", zap.String("session_id", id.String()), zap.Error(err))
		}
	})
	return entry.ctrl
}

// Reset discards the session's controller and starts a fresh one.
func (ss *SessionService) Reset(ctx context.Context, id uuid.UUID) *session.Controller {
	ss.Remove(id)
	return ss.Get(ctx, id)
}

// Remove forgets a session.
func (ss *SessionService) Remove(id uuid.UUID) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.sessions.Remove(id)
}

// Len is the number of live sessions.
func (ss *SessionService) Len() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return ss.sessions.Len()
}

// StaleSessions lists sessions not accessed since cutoff.
func (ss *SessionService) StaleSessions(cutoff time.Time) []uuid.UUID {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	var stale []uuid.UUID
	for _, key := range ss.sessions.Keys() {
		v, ok := ss.sessions.Peek(key)
		if !ok {
			continue
		}
		if v.(*sessionEntry).idleSince().Before(cutoff) {
			stale = append(stale, key.(uuid.UUID))
		}
	}
	return stale
}
