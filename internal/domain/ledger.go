package domain

import (
	"time"

	id "identity-dna/pkg/domain"
)

// LedgerEntry is one committed XP contribution. Entries are append-only
// and immutable after insert; Amount is always >= 1. The sum of Amount
// per user eventually equals the profile's XPTotal.
type LedgerEntry struct {
	UserID     id.UserID
	Source     id.SourceID
	BaseAmount int64
	Multiplier float64
	Amount     int64
	Metadata   map[string]string
	CreatedAt  time.Time
}

// StreakRecord tracks consecutive active days per user.
type StreakRecord struct {
	UserID        id.UserID
	CurrentStreak int // days
	LongestStreak int
	LastActive    time.Time // date precision
	StartedAt     time.Time
}

// QuarantineEntry bars a source from XP-mutating writes. Timed entries
// lapse at AutoUnblockAt; permanent ones never do. A new violation
// while inactive re-activates the entry and bumps ViolationCount.
type QuarantineEntry struct {
	Source         id.SourceID
	SourceType     string
	Reason         string
	ViolationCount int
	Permanent      bool
	AutoUnblockAt  time.Time
	CreatedAt      time.Time
}

// Quarantine reasons.
const (
	ReasonXPDecreaseAttempt = "XP_DECREASE_ATTEMPT"
)

// Active reports whether the entry currently blocks the source.
func (q QuarantineEntry) Active(now time.Time) bool {
	if q.Permanent {
		return true
	}
	return now.Before(q.AutoUnblockAt)
}
