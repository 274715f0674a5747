// Package profile owns the authoritative per-user record: its store,
// its append-only change history, and confirmed erasure. All profile
// writes in the system terminate here.
package profile

import (
	"context"
	"time"

	"identity-dna/internal/domain"
	id "identity-dna/pkg/domain"
)

// Store persists the live profile records. Update performs a
// compare-and-swap on the caller-supplied expected version and carries
// the store-level layer of the XP decrement defence: a write that would
// lower xp_total fails with sentinel.ErrInvalidState regardless of what
// the upper layers concluded.
type Store interface {
	Get(ctx context.Context, userID id.UserID) (domain.Profile, error)
	Insert(ctx context.Context, p domain.Profile) error
	Update(ctx context.Context, p domain.Profile, expectedVersion int64) error
	Delete(ctx context.Context, userID id.UserID) error
	CurrentVersion(ctx context.Context, userID id.UserID) (int64, error)
}

// HistoryStore persists change records. Append is atomic for the given
// batch; records are immutable after insert.
type HistoryStore interface {
	Append(ctx context.Context, records []domain.ChangeRecord) error
	ListForUser(ctx context.Context, userID id.UserID, limit int) ([]domain.ChangeRecord, error)
}

// ArchiveStore keeps erasure snapshots for the retention window.
type ArchiveStore interface {
	Archive(ctx context.Context, snapshot domain.ArchivedProfile) error
	Get(ctx context.Context, userID id.UserID) (domain.ArchivedProfile, error)
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}
