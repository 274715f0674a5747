//go:build integration

package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"identity-dna/internal/domain"
	id "identity-dna/pkg/domain"
	"identity-dna/pkg/platform/sentinel"
	"identity-dna/pkg/testutil/containers"
)

// ============================================================
// Postgres ledger stores
// ============================================================
//
// Justification for integration tests:
// - The append-only CHECK constraint and day-window sums are SQL
//   behavior the memory store can only approximate.

type PostgresLedgerSuite struct {
	suite.Suite
	ctx     context.Context
	store   *PostgresStore
	streaks *PostgresStreakStore
	day     time.Time
}

func TestPostgresLedgerSuite(t *testing.T) {
	suite.Run(t, new(PostgresLedgerSuite))
}

func (s *PostgresLedgerSuite) SetupSuite() {
	s.ctx = context.Background()
	s.day = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	pg := containers.NewPostgresContainer(s.T(), LedgerSchema, StreakSchema)
	s.store = NewPostgresStore(pg.Pool)
	s.streaks = NewPostgresStreakStore(pg.Pool)
}

func (s *PostgresLedgerSuite) entry(user string, amount int64, at time.Time) domain.LedgerEntry {
	return domain.LedgerEntry{
		UserID:     id.UserID(user),
		Source:     id.SourceTraining,
		BaseAmount: amount,
		Multiplier: 1.0,
		Amount:     amount,
		Metadata:   map[string]string{"session": "abc"},
		CreatedAt:  at,
	}
}

func (s *PostgresLedgerSuite) TestAppendAndTotals() {
	user := id.UserID("ledger-user-1")

	s.Require().NoError(s.store.Append(s.ctx, s.entry(user.String(), 100, s.day)))
	s.Require().NoError(s.store.Append(s.ctx, s.entry(user.String(), 250, s.day.Add(time.Hour))))
	// Next day, outside today's cap window.
	s.Require().NoError(s.store.Append(s.ctx, s.entry(user.String(), 40, s.day.Add(25*time.Hour))))

	total, err := s.store.TotalForUser(s.ctx, user)
	s.Require().NoError(err)
	s.Equal(int64(390), total)

	daySum, err := s.store.SumForDay(s.ctx, user, s.day)
	s.Require().NoError(err)
	s.Equal(int64(350), daySum, "day sum must exclude the next-day entry")

	other, err := s.store.TotalForUser(s.ctx, "ledger-user-other")
	s.Require().NoError(err)
	s.Zero(other, "totals are per user")
}

func (s *PostgresLedgerSuite) TestAppendRejectsNonPositiveAmount() {
	bad := s.entry("ledger-user-2", 100, s.day)
	bad.Amount = 0
	s.Error(s.store.Append(s.ctx, bad))

	total, err := s.store.TotalForUser(s.ctx, "ledger-user-2")
	s.Require().NoError(err)
	s.Zero(total)
}

func (s *PostgresLedgerSuite) TestListNewestFirstWithMetadata() {
	user := id.UserID("ledger-user-3")
	s.Require().NoError(s.store.Append(s.ctx, s.entry(user.String(), 10, s.day)))
	s.Require().NoError(s.store.Append(s.ctx, s.entry(user.String(), 20, s.day.Add(time.Minute))))
	s.Require().NoError(s.store.Append(s.ctx, s.entry(user.String(), 30, s.day.Add(2*time.Minute))))

	entries, err := s.store.ListForUser(s.ctx, user, 2)
	s.Require().NoError(err)
	s.Require().Len(entries, 2)
	s.Equal(int64(30), entries[0].Amount)
	s.Equal(int64(20), entries[1].Amount)
	s.Equal(id.SourceTraining, entries[0].Source)
	s.Equal("abc", entries[0].Metadata["session"])
}

func (s *PostgresLedgerSuite) TestStreakUpsertRoundTrip() {
	user := id.UserID("streak-user-1")

	_, err := s.streaks.Get(s.ctx, user)
	s.ErrorIs(err, sentinel.ErrNotFound)

	first := domain.StreakRecord{
		UserID:        user,
		CurrentStreak: 1,
		LongestStreak: 1,
		LastActive:    s.day.Truncate(24 * time.Hour),
		StartedAt:     s.day,
	}
	s.Require().NoError(s.streaks.Put(s.ctx, first))

	got, err := s.streaks.Get(s.ctx, user)
	s.Require().NoError(err)
	s.Equal(1, got.CurrentStreak)

	first.CurrentStreak = 2
	first.LongestStreak = 2
	first.LastActive = first.LastActive.Add(24 * time.Hour)
	s.Require().NoError(s.streaks.Put(s.ctx, first))

	got, err = s.streaks.Get(s.ctx, user)
	s.Require().NoError(err)
	s.Equal(2, got.CurrentStreak)
	s.Equal(2, got.LongestStreak)
	s.Equal(first.LastActive.UTC(), got.LastActive.UTC())
}
