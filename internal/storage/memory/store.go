// Package memory provides in-memory storage implementations for development
// and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"regverify/internal/storage"
	"regverify/pkg/platform/sentinel"
)

// AuditStore keeps audit records in a process-local map keyed by correlation
// id.
type AuditStore struct {
	mu      sync.Mutex
	records map[string]*storage.AuditRecord
	now     func() time.Time
}

// NewAuditStore creates an empty in-memory audit store.
func NewAuditStore() *AuditStore {
	return &AuditStore{
		records: make(map[string]*storage.AuditRecord),
		now:     time.Now,
	}
}

func (s *AuditStore) Append(_ context.Context, rec *storage.AuditRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.CorrelationID]; ok {
		return false, nil
	}
	stored := *rec
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now()
	}
	s.records[rec.CorrelationID] = &stored
	return true, nil
}

func (s *AuditStore) FindByCorrelationID(_ context.Context, correlationID string) (*storage.AuditRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[correlationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := *rec
	return &out, nil
}

// ProfileStore keeps profile flags in a process-local map keyed by identity
// id.
type ProfileStore struct {
	mu    sync.Mutex
	flags map[string]storage.ProfileFlag
}

// NewProfileStore creates an empty in-memory profile store.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{flags: make(map[string]storage.ProfileFlag)}
}

func (s *ProfileStore) SetVerified(_ context.Context, identityID string, flag storage.ProfileFlag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[identityID] = flag
	return nil
}

// Flag returns the stored flag for an identity, for tests.
func (s *ProfileStore) Flag(identityID string) (storage.ProfileFlag, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	flag, ok := s.flags[identityID]
	return flag, ok
}
