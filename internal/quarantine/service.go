package quarantine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"identity-dna/internal/domain"
	id "identity-dna/pkg/domain"
	"identity-dna/pkg/platform/sentinel"
)

// DefaultBlockDuration bounds timed quarantines entered automatically
// on a decrement attempt.
const DefaultBlockDuration = 24 * time.Hour

// observationTTL bounds staleness for cached reads. Writers never use
// the cache.
const observationTTL = 5 * time.Second

type observation struct {
	blocked    bool
	observedAt time.Time
}

// Service validates and records source quarantines.
type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	observed map[id.SourceID]observation
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New constructs a quarantine service over a durable store.
func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("quarantine store is required")
	}
	s := &Service{
		store:    store,
		logger:   slog.Default(),
		now:      time.Now,
		observed: make(map[id.SourceID]observation),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Blocked consults the durable store. Validation paths that gate writes
// must use this, never BlockedCached.
func (s *Service) Blocked(ctx context.Context, source id.SourceID) (bool, error) {
	entry, err := s.store.Get(ctx, source)
	if errors.Is(err, sentinel.ErrNotFound) {
		s.observe(source, false)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check quarantine: %w", err)
	}
	blocked := entry.Active(s.now())
	s.observe(source, blocked)
	return blocked, nil
}

// BlockedCached reads the observation cache, falling through to the
// durable store on a miss. Entries may be up to observationTTL stale.
func (s *Service) BlockedCached(ctx context.Context, source id.SourceID) (bool, error) {
	s.mu.RLock()
	obs, ok := s.observed[source]
	s.mu.RUnlock()
	if ok && s.now().Sub(obs.observedAt) < observationTTL {
		return obs.blocked, nil
	}
	return s.Blocked(ctx, source)
}

// Block quarantines a source. An existing entry (active or lapsed) is
// re-activated with its violation count incremented; a fresh entry
// starts at count 1.
func (s *Service) Block(ctx context.Context, source id.SourceID, sourceType, reason string, permanent bool) (domain.QuarantineEntry, error) {
	now := s.now()

	entry, err := s.store.Get(ctx, source)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		entry = domain.QuarantineEntry{
			Source:     source,
			SourceType: sourceType,
			Reason:     reason,
			CreatedAt:  now,
		}
	case err != nil:
		return domain.QuarantineEntry{}, fmt.Errorf("load quarantine entry: %w", err)
	}

	entry.ViolationCount++
	entry.Reason = reason
	entry.Permanent = entry.Permanent || permanent
	if !entry.Permanent {
		entry.AutoUnblockAt = now.Add(DefaultBlockDuration)
	}

	if err := s.store.Put(ctx, entry); err != nil {
		return domain.QuarantineEntry{}, fmt.Errorf("store quarantine entry: %w", err)
	}

	s.observe(source, true)
	s.logger.Warn("source quarantined",
		"source", source,
		"reason", reason,
		"violation_count", entry.ViolationCount,
		"permanent", entry.Permanent,
	)
	return entry, nil
}

// Entry returns the stored entry for a source, sentinel.ErrNotFound if
// the source was never quarantined.
func (s *Service) Entry(ctx context.Context, source id.SourceID) (domain.QuarantineEntry, error) {
	return s.store.Get(ctx, source)
}

// List returns every quarantine entry with its current active state
// evaluated against the service clock.
func (s *Service) List(ctx context.Context) ([]domain.QuarantineEntry, error) {
	return s.store.List(ctx)
}

func (s *Service) observe(source id.SourceID, blocked bool) {
	s.mu.Lock()
	s.observed[source] = observation{blocked: blocked, observedAt: s.now()}
	s.mu.Unlock()
}
