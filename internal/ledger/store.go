// Package ledger is the append-only, monotonic XP store. Deposits only
// ever add; rejections are structured results, not errors.
package ledger

import (
	"context"
	"time"

	"identity-dna/internal/domain"
	id "identity-dna/pkg/domain"
)

// Store persists ledger entries. Entries are immutable after insert.
type Store interface {
	// Append inserts one entry. Implementations must refuse Amount < 1.
	Append(ctx context.Context, entry domain.LedgerEntry) error
	// TotalForUser sums committed amounts for a user.
	TotalForUser(ctx context.Context, userID id.UserID) (int64, error)
	// SumForDay sums committed amounts for a user on the given UTC date.
	SumForDay(ctx context.Context, userID id.UserID, day time.Time) (int64, error)
	// ListForUser returns entries newest first, capped at limit.
	ListForUser(ctx context.Context, userID id.UserID, limit int) ([]domain.LedgerEntry, error)
}

// StreakStore persists one streak record per user.
type StreakStore interface {
	// Get returns the user's streak, sentinel.ErrNotFound if none.
	Get(ctx context.Context, userID id.UserID) (domain.StreakRecord, error)
	// Put inserts or replaces the user's streak.
	Put(ctx context.Context, record domain.StreakRecord) error
}
