package memory

import (
	"context"
	"sync"
	"time"

	"humaneval/domain/core/aggregates"
	"humaneval/domain/core/valueobjects"
	pkgerrors "humaneval/pkg/errors"
)

// SessionStore keeps sessions in process memory. Sessions idle for longer
// than the TTL are evicted; a rater returning after eviction is treated as
// new and gets a fresh draw.
type SessionStore struct {
	mu     sync.Mutex
	items  map[string]sessionItem
	ttl    time.Duration
	now    func() time.Time
	stopCh chan struct{}
	once   sync.Once
}

type sessionItem struct {
	session   *aggregates.Session
	touchedAt time.Time
}

// NewSessionStore creates a new in-memory store. A ttl of zero disables
// eviction.
func NewSessionStore(ttl time.Duration) *SessionStore {
	s := &SessionStore{
		items:  make(map[string]sessionItem),
		ttl:    ttl,
		now:    time.Now,
		stopCh: make(chan struct{}),
	}

	if ttl > 0 {
		go s.cleanupExpired(cleanupInterval(ttl))
	}

	return s
}

// Get returns a snapshot of the rater's session
func (s *SessionStore) Get(ctx context.Context, raterID valueobjects.RaterID) (*aggregates.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.live(raterID.String())
	if !ok {
		return nil, pkgerrors.NewSessionNotFoundError(raterID.String())
	}

	item.touchedAt = s.now()
	s.items[raterID.String()] = item
	return item.session.Clone(), nil
}

// Create stores session unless the rater already has a live one
func (s *SessionStore) Create(ctx context.Context, session *aggregates.Session) (*aggregates.Session, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := session.RaterID().String()
	if item, ok := s.live(key); ok {
		return item.session.Clone(), false, nil
	}

	s.items[key] = sessionItem{session: session.Clone(), touchedAt: s.now()}
	return session, true, nil
}

// SaveCursor replaces the stored session if its cursor is still expectedCursor
func (s *SessionStore) SaveCursor(ctx context.Context, session *aggregates.Session, expectedCursor int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := session.RaterID().String()
	item, ok := s.live(key)
	if !ok {
		return pkgerrors.NewSessionNotFoundError(key)
	}
	if item.session.Cursor() != expectedCursor {
		return pkgerrors.NewCursorConflictError(key, expectedCursor)
	}

	s.items[key] = sessionItem{session: session.Clone(), touchedAt: s.now()}
	return nil
}

// Len returns the number of stored sessions, expired ones included
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Close stops the cleanup goroutine
func (s *SessionStore) Close() error {
	s.once.Do(func() { close(s.stopCh) })
	return nil
}

// live must be called with mu held
func (s *SessionStore) live(key string) (sessionItem, bool) {
	item, ok := s.items[key]
	if !ok {
		return sessionItem{}, false
	}
	if s.expired(item) {
		delete(s.items, key)
		return sessionItem{}, false
	}
	return item, true
}

func (s *SessionStore) expired(item sessionItem) bool {
	return s.ttl > 0 && s.now().Sub(item.touchedAt) > s.ttl
}

// cleanupExpired periodically removes expired sessions
func (s *SessionStore) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.evictExpired()
		}
	}
}

func (s *SessionStore) evictExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, item := range s.items {
		if s.expired(item) {
			delete(s.items, key)
		}
	}
}

func cleanupInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	if interval > time.Minute {
		interval = time.Minute
	}
	return interval
}
