package otp

import (
	"context"
	"sync"

	"github.com/fraudshield/server/internal/model"
)

// MemoryStore is a mutex-guarded in-process Store for single-instance
// deployments. Entries live until deleted by the ledger or a sweep.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]model.OTPEntry
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]model.OTPEntry)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (model.OTPEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[key]
	return entry, ok, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, entry model.OTPEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	return keys, nil
}
