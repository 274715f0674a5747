package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"identity-dna/internal/domain"
	id "identity-dna/pkg/domain"
	"identity-dna/pkg/platform/sentinel"
)

// InMemoryStore keeps ledger entries in an append-only slice per user.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[id.UserID][]domain.LedgerEntry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[id.UserID][]domain.LedgerEntry)}
}

func (s *InMemoryStore) Append(_ context.Context, entry domain.LedgerEntry) error {
	if entry.Amount < 1 {
		return fmt.Errorf("ledger amount must be >= 1, got %d", entry.Amount)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.UserID] = append(s.entries[entry.UserID], entry)
	return nil
}

func (s *InMemoryStore) TotalForUser(_ context.Context, userID id.UserID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total int64
	for _, e := range s.entries[userID] {
		total += e.Amount
	}
	return total, nil
}

func (s *InMemoryStore) SumForDay(_ context.Context, userID id.UserID, day time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	y, m, d := day.UTC().Date()
	var sum int64
	for _, e := range s.entries[userID] {
		ey, em, ed := e.CreatedAt.UTC().Date()
		if ey == y && em == m && ed == d {
			sum += e.Amount
		}
	}
	return sum, nil
}

func (s *InMemoryStore) ListForUser(_ context.Context, userID id.UserID, limit int) ([]domain.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.entries[userID]
	out := make([]domain.LedgerEntry, 0, min(limit, len(entries)))
	for i := len(entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, entries[i])
	}
	return out, nil
}

// InMemoryStreakStore keeps streak records in a map.
type InMemoryStreakStore struct {
	mu      sync.RWMutex
	streaks map[id.UserID]domain.StreakRecord
}

func NewInMemoryStreakStore() *InMemoryStreakStore {
	return &InMemoryStreakStore{streaks: make(map[id.UserID]domain.StreakRecord)}
}

func (s *InMemoryStreakStore) Get(_ context.Context, userID id.UserID) (domain.StreakRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.streaks[userID]; ok {
		return rec, nil
	}
	return domain.StreakRecord{}, sentinel.ErrNotFound
}

func (s *InMemoryStreakStore) Put(_ context.Context, record domain.StreakRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streaks[record.UserID] = record
	return nil
}
