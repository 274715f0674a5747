package profile

import (
	"context"
	"sync"
	"time"

	"identity-dna/internal/domain"
	id "identity-dna/pkg/domain"
	"identity-dna/pkg/platform/sentinel"
)

// InMemoryStore keeps live profiles in a map. Suitable for tests and
// single-instance deployments.
type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[id.UserID]domain.Profile
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{profiles: make(map[id.UserID]domain.Profile)}
}

func (s *InMemoryStore) Get(_ context.Context, userID id.UserID) (domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return domain.Profile{}, sentinel.ErrNotFound
	}
	return p.Clone(), nil
}

func (s *InMemoryStore) Insert(_ context.Context, p domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.profiles[p.UserID]; exists {
		return sentinel.ErrConflict
	}
	s.profiles[p.UserID] = p.Clone()
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, p domain.Profile, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.profiles[p.UserID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Version != expectedVersion {
		return sentinel.ErrConflict
	}
	if p.XPTotal < current.XPTotal {
		return sentinel.ErrInvalidState
	}
	s.profiles[p.UserID] = p.Clone()
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[userID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.profiles, userID)
	return nil
}

func (s *InMemoryStore) CurrentVersion(_ context.Context, userID id.UserID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return 0, sentinel.ErrNotFound
	}
	return p.Version, nil
}

// InMemoryHistoryStore keeps change records per user, append order
// preserved.
type InMemoryHistoryStore struct {
	mu      sync.RWMutex
	records map[id.UserID][]domain.ChangeRecord
}

func NewInMemoryHistoryStore() *InMemoryHistoryStore {
	return &InMemoryHistoryStore{records: make(map[id.UserID][]domain.ChangeRecord)}
}

func (s *InMemoryHistoryStore) Append(_ context.Context, records []domain.ChangeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.records[r.UserID] = append(s.records[r.UserID], r)
	}
	return nil
}

// ListForUser returns the newest records first, capped at limit.
func (s *InMemoryHistoryStore) ListForUser(_ context.Context, userID id.UserID, limit int) ([]domain.ChangeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.records[userID]
	out := make([]domain.ChangeRecord, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

// InMemoryArchiveStore keeps erasure snapshots.
type InMemoryArchiveStore struct {
	mu        sync.RWMutex
	snapshots map[id.UserID]domain.ArchivedProfile
}

func NewInMemoryArchiveStore() *InMemoryArchiveStore {
	return &InMemoryArchiveStore{snapshots: make(map[id.UserID]domain.ArchivedProfile)}
}

func (s *InMemoryArchiveStore) Archive(_ context.Context, snapshot domain.ArchivedProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots[snapshot.UserID] = snapshot
	return nil
}

func (s *InMemoryArchiveStore) Get(_ context.Context, userID id.UserID) (domain.ArchivedProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snapshots[userID]
	if !ok {
		return domain.ArchivedProfile{}, sentinel.ErrNotFound
	}
	return snap, nil
}

func (s *InMemoryArchiveStore) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	purged := 0
	for user, snap := range s.snapshots {
		if now.After(snap.RetentionUntil) {
			delete(s.snapshots, user)
			purged++
		}
	}
	return purged, nil
}
