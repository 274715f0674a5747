// Package badge unions badge sets across sources, keyed by
// (source, code), and applies award, progress, and revocation rules.
// The authoritative set lives on the profile; this package only
// computes the next set and records revocations.
package badge

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"identity-dna/internal/domain"
	dErrors "identity-dna/pkg/domain-errors"
	id "identity-dna/pkg/domain"
)

// SourceReader reads the badge set a single source attributes to a
// user. Degraded reads return an empty set with degraded=true.
type SourceReader interface {
	ReadBadges(ctx context.Context, source id.SourceID, userID id.UserID) ([]domain.Badge, bool)
}

// ArchiveStore keeps revoked badges. Revocation archives before
// removal so a revoked badge is never silently lost.
type ArchiveStore interface {
	Archive(ctx context.Context, record RevocationRecord) error
	ListRevoked(ctx context.Context, userID id.UserID) ([]RevocationRecord, error)
}

// RevocationRecord is one archived revocation.
type RevocationRecord struct {
	UserID    id.UserID    `json:"userId"`
	Badge     domain.Badge `json:"badge"`
	Reason    string       `json:"reason"`
	RevokedAt time.Time    `json:"revokedAt"`
}

// Aggregator merges and mutates per-user badge sets.
type Aggregator struct {
	sources SourceReader
	archive ArchiveStore
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures an Aggregator.
type Option func(*Aggregator)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) { a.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// New constructs an aggregator. sources may be nil when the caller only
// uses the local operations (award, progress, revoke).
func New(sources SourceReader, archive ArchiveStore, opts ...Option) (*Aggregator, error) {
	if archive == nil {
		return nil, fmt.Errorf("badge archive store is required")
	}
	a := &Aggregator{
		sources: sources,
		archive: archive,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Collect reads the badge sets of every given source and unions them
// into the existing set. Degraded sources contribute nothing and are
// reported back so callers can decide whether the result is complete.
func (a *Aggregator) Collect(ctx context.Context, userID id.UserID, existing []domain.Badge, sources []id.SourceID) ([]domain.Badge, []id.SourceID) {
	if a.sources == nil {
		out := make([]domain.Badge, len(existing))
		copy(out, existing)
		SortForDisplay(out)
		return out, nil
	}

	var incoming []domain.Badge
	var degraded []id.SourceID
	for _, source := range sources {
		badges, deg := a.sources.ReadBadges(ctx, source, userID)
		if deg {
			degraded = append(degraded, source)
			continue
		}
		incoming = append(incoming, badges...)
	}

	merged, results := Union(existing, incoming)
	for _, r := range results {
		if r.Outcome == OutcomeAlreadyEarned {
			a.logger.Debug("badge already earned", "user_id", userID, "source", r.Source, "badge_code", r.Code)
		}
	}
	return merged, degraded
}

// Award adds a single badge to the set. Awarding an already-present
// (source, code) leaves the set unchanged and reports ALREADY_EARNED.
func (a *Aggregator) Award(set []domain.Badge, b domain.Badge) ([]domain.Badge, Outcome) {
	if find(set, b.Source, b.Code) >= 0 {
		return set, OutcomeAlreadyEarned
	}
	if b.Progress >= 100 && b.EarnedAt.IsZero() {
		b.EarnedAt = a.now()
	}
	next := make([]domain.Badge, len(set), len(set)+1)
	copy(next, set)
	next = append(next, b)
	SortForDisplay(next)
	return next, OutcomeAwarded
}

// UpdateProgress sets the progress of an existing badge, clamped to
// [0, 100]. Crossing 100 stamps earned_at and reports EARNED; a badge
// already earned reports ALREADY_EARNED and keeps its timestamp.
func (a *Aggregator) UpdateProgress(set []domain.Badge, source id.SourceID, code id.BadgeCode, progress int) ([]domain.Badge, Outcome, error) {
	i := find(set, source, code)
	if i < 0 {
		return set, "", dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("badge %s/%s not tracked", source, code))
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}

	next := make([]domain.Badge, len(set))
	copy(next, set)

	if next[i].Earned() {
		return next, OutcomeAlreadyEarned, nil
	}

	next[i].Progress = progress
	if progress >= 100 {
		next[i].EarnedAt = a.now()
		SortForDisplay(next)
		return next, OutcomeEarned, nil
	}
	return next, OutcomeProgressed, nil
}

// Revoke archives the badge, then removes it from the set. The archive
// write happens first: a failed archive leaves the set untouched.
func (a *Aggregator) Revoke(ctx context.Context, userID id.UserID, set []domain.Badge, source id.SourceID, code id.BadgeCode, reason string) ([]domain.Badge, error) {
	i := find(set, source, code)
	if i < 0 {
		return set, dErrors.New(dErrors.CodeNotFound, fmt.Sprintf("badge %s/%s not tracked", source, code))
	}

	record := RevocationRecord{
		UserID:    userID,
		Badge:     set[i],
		Reason:    reason,
		RevokedAt: a.now(),
	}
	if err := a.archive.Archive(ctx, record); err != nil {
		return set, dErrors.Wrap(err, dErrors.CodeInternal, "archive revoked badge")
	}

	next := make([]domain.Badge, 0, len(set)-1)
	next = append(next, set[:i]...)
	next = append(next, set[i+1:]...)

	a.logger.Info("badge revoked",
		"user_id", userID,
		"source", source,
		"badge_code", code,
		"reason", reason,
	)
	return next, nil
}

// Revoked lists the user's archived revocations.
func (a *Aggregator) Revoked(ctx context.Context, userID id.UserID) ([]RevocationRecord, error) {
	return a.archive.ListRevoked(ctx, userID)
}
