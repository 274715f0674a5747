package quarantine

import (
	"context"
	"sync"

	"identity-dna/internal/domain"
	id "identity-dna/pkg/domain"
	"identity-dna/pkg/platform/sentinel"
)

// InMemoryStore keeps quarantine entries in a map. Suitable for tests
// and single-instance deployments.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[id.SourceID]domain.QuarantineEntry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[id.SourceID]domain.QuarantineEntry)}
}

func (s *InMemoryStore) Get(_ context.Context, source id.SourceID) (domain.QuarantineEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if entry, ok := s.entries[source]; ok {
		return entry, nil
	}
	return domain.QuarantineEntry{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) Put(_ context.Context, entry domain.QuarantineEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.Source] = entry
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]domain.QuarantineEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.QuarantineEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out, nil
}
