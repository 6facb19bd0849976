package session

import (
	"context"
	"sync"
	"time"

	"regverify/pkg/platform/sentinel"
)

// InMemoryStore keeps sessions in a process-local map. Expiry is enforced
// lazily on Get/Take and by the periodic Sweep the server runs. Single
// instance deployments only; use RedisStore when the service is replicated.
type InMemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*VerificationSession
	ttl      time.Duration
	now      func() time.Time
}

// MemoryOption configures an InMemoryStore.
type MemoryOption func(*InMemoryStore)

// WithClock sets the clock function for testability.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *InMemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewMemory creates an in-memory store with the given TTL.
func NewMemory(ttl time.Duration, opts ...MemoryOption) *InMemoryStore {
	s := &InMemoryStore{
		sessions: make(map[string]*VerificationSession),
		ttl:      ttl,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *InMemoryStore) Put(_ context.Context, sess *VerificationSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*VerificationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if s.expired(sess) {
		delete(s.sessions, id)
		return nil, sentinel.ErrExpired
	}
	return sess, nil
}

func (s *InMemoryStore) Take(_ context.Context, id string) (*VerificationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	delete(s.sessions, id)
	if s.expired(sess) {
		return nil, sentinel.ErrExpired
	}
	return sess, nil
}

func (s *InMemoryStore) Len(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions), nil
}

// Sweep drops every expired session and returns how many were removed.
func (s *InMemoryStore) Sweep(_ context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if s.expired(sess) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// expired must be called while holding s.mu.
func (s *InMemoryStore) expired(sess *VerificationSession) bool {
	return s.now().Sub(sess.CreatedAt) > s.ttl
}
