package handlers

import (
	"context"
	"errors"
	"sync"
	"time"

	"contractor-backend/internal/analytics"
	"contractor-backend/internal/cache"
	"contractor-backend/internal/shell"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found")

const sessionKeyPrefix = "session:"

// SessionStore persists one shell per visitor in the cache and serialises
// mutations of the same session within this process.
type SessionStore struct {
	cache   cache.Cache
	ttl     time.Duration
	tracker analytics.Tracker

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewSessionStore(c cache.Cache, ttl time.Duration, tracker analytics.Tracker) *SessionStore {
	if tracker == nil {
		tracker = analytics.NewNoop()
	}
	return &SessionStore{
		cache:   c,
		ttl:     ttl,
		tracker: tracker,
		locks:   make(map[string]*sessionLock),
	}
}

// Lock blocks until the caller holds the session's mutex and returns the
// release func.
func (s *SessionStore) Lock(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sessionLock{}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.mu.Unlock()
	}
}

func (s *SessionStore) Create(ctx context.Context) (string, *shell.Shell, error) {
	id := uuid.NewString()
	sh := shell.New(s.tracker)
	if err := s.Save(ctx, id, sh); err != nil {
		return "", nil, err
	}
	return id, sh, nil
}

func (s *SessionStore) Load(ctx context.Context, id string) (*shell.Shell, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrSessionNotFound
	}
	raw, ok, err := s.cache.Get(ctx, sessionKeyPrefix+id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSessionNotFound
	}
	return shell.Decode(raw, s.tracker)
}

// Save writes the shell and refreshes the session TTL.
func (s *SessionStore) Save(ctx context.Context, id string, sh *shell.Shell) error {
	raw, err := sh.MarshalJSON()
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, sessionKeyPrefix+id, raw, s.ttl)
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	return s.cache.Delete(ctx, sessionKeyPrefix+id)
}
