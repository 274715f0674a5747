package badge

import (
	"context"
	"sync"

	id "identity-dna/pkg/domain"
)

// InMemoryArchive keeps revocation records in a per-user slice.
// Suitable for tests and single-instance deployments.
type InMemoryArchive struct {
	mu      sync.RWMutex
	records map[id.UserID][]RevocationRecord
}

func NewInMemoryArchive() *InMemoryArchive {
	return &InMemoryArchive{records: make(map[id.UserID][]RevocationRecord)}
}

func (s *InMemoryArchive) Archive(_ context.Context, record RevocationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.UserID] = append(s.records[record.UserID], record)
	return nil
}

func (s *InMemoryArchive) ListRevoked(_ context.Context, userID id.UserID) ([]RevocationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RevocationRecord, len(s.records[userID]))
	copy(out, s.records[userID])
	return out, nil
}
