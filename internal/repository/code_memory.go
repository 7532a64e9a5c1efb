package repository

import (
	"context"
	"sync"
	"time"

	"github.com/draftdesk/identity/internal/model"
)

// InMemoryCodeStore is the default volatile code store. Entries are swept
// lazily by the registries on issue/verify calls; map sizes stay bounded
// by active-target cardinality, so no background timer runs.
type InMemoryCodeStore struct {
	mu       sync.Mutex
	codes    map[string]*model.PendingCode
	buckets  map[string]*model.RateBucket
	attempts map[string]*model.AttemptCounter
}

func NewInMemoryCodeStore() *InMemoryCodeStore {
	return &InMemoryCodeStore{
		codes:    make(map[string]*model.PendingCode),
		buckets:  make(map[string]*model.RateBucket),
		attempts: make(map[string]*model.AttemptCounter),
	}
}

func (s *InMemoryCodeStore) SaveCode(_ context.Context, prefix string, code *model.PendingCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *code
	s.codes[prefix+code.TargetKey] = &stored
	return nil
}

func (s *InMemoryCodeStore) FindCode(_ context.Context, prefix, targetKey string) (*model.PendingCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.codes[prefix+targetKey]
	if !ok {
		return nil, nil
	}
	clone := *code
	return &clone, nil
}

func (s *InMemoryCodeStore) DeleteCode(_ context.Context, prefix, targetKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.codes, prefix+targetKey)
	return nil
}

func (s *InMemoryCodeStore) SweepExpired(_ context.Context, prefix string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, code := range s.codes {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix && code.Expired(now) {
			delete(s.codes, key)
		}
	}
	return nil
}

func (s *InMemoryCodeStore) IncrementIssuance(_ context.Context, targetKey string, hourStart time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.buckets[targetKey]
	if !ok || bucket.HourStart.Before(hourStart) {
		s.buckets[targetKey] = &model.RateBucket{Count: 1, HourStart: hourStart}
		return 1, nil
	}
	bucket.Count++
	return bucket.Count, nil
}

func (s *InMemoryCodeStore) IncrementAttempt(_ context.Context, targetKey string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.attempts[targetKey]
	if !ok {
		state = &model.AttemptCounter{}
		s.attempts[targetKey] = state
	}
	state.Count++
	return state.Count, nil
}

func (s *InMemoryCodeStore) BlockTarget(_ context.Context, targetKey string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.attempts[targetKey]
	if !ok {
		state = &model.AttemptCounter{}
		s.attempts[targetKey] = state
	}
	state.BlockedUntil = until
	return nil
}

func (s *InMemoryCodeStore) BlockedUntil(_ context.Context, targetKey string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.attempts[targetKey]
	if !ok {
		return time.Time{}, nil
	}
	return state.BlockedUntil, nil
}

func (s *InMemoryCodeStore) ClearAttempts(_ context.Context, targetKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, targetKey)
	return nil
}
