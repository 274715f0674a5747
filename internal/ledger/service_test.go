package ledger

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"identity-dna/internal/domain"
	"identity-dna/internal/platform/config"
	"identity-dna/internal/quarantine"
	id "identity-dna/pkg/domain"
	dErrors "identity-dna/pkg/domain-errors"
)

type eligibilityStub map[id.SourceID]bool

func (e eligibilityStub) MultiplierEligible(source id.SourceID) bool {
	return e[source]
}

// =============================================================================
// Ledger Service Test Suite
// =============================================================================
// Justification for unit tests: deposit clipping, multiplier flooring, and
// the decrement guard are arithmetic contracts with exact expected values
// that are awkward to pin down through the orchestrator.

type LedgerServiceSuite struct {
	suite.Suite
	store   *InMemoryStore
	streaks *InMemoryStreakStore
	quar    *quarantine.Service
	service *Service
	clock   time.Time
}

func TestLedgerServiceSuite(t *testing.T) {
	suite.Run(t, new(LedgerServiceSuite))
}

func (s *LedgerServiceSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.streaks = NewInMemoryStreakStore()
	s.clock = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var err error
	s.quar, err = quarantine.New(quarantine.NewInMemoryStore(),
		quarantine.WithLogger(logger),
		quarantine.WithClock(func() time.Time { return s.clock }),
	)
	s.Require().NoError(err)

	s.service, err = New(s.store, s.streaks, s.quar,
		eligibilityStub{id.SourceTraining: true, id.SourceArcade: true},
		config.Ledger{
			DailyCap:            10000,
			MinDeposit:          1,
			MaxDeposit:          100000,
			MaxStreakMultiplier: 1.5,
			StreakIncrement:     0.1,
		},
		WithLogger(logger),
		WithClock(func() time.Time { return s.clock }),
	)
	s.Require().NoError(err)
}

func (s *LedgerServiceSuite) deposit(user id.UserID, source id.SourceID, amount int64) DepositResult {
	res, err := s.service.Deposit(context.Background(), DepositRequest{
		UserID: user, Source: source, Amount: amount,
	})
	s.Require().NoError(err)
	return res
}

// =============================================================================
// Constructor Tests (Invariant Enforcement)
// =============================================================================

func (s *LedgerServiceSuite) TestNew() {
	s.Run("nil store returns error", func() {
		_, err := New(nil, s.streaks, s.quar, eligibilityStub{}, config.Ledger{})
		s.Error(err)
	})

	s.Run("nil quarantine returns error", func() {
		_, err := New(s.store, s.streaks, nil, eligibilityStub{}, config.Ledger{})
		s.Error(err)
	})
}

// =============================================================================
// Deposit Tests
// =============================================================================

func (s *LedgerServiceSuite) TestDepositValidation() {
	s.Run("zero amount is rejected without a ledger row", func() {
		res := s.deposit("u1", id.SourceBankroll, 0)
		s.False(res.Awarded)
		s.Equal(ReasonInvalidAmount, res.Reason)

		total, err := s.store.TotalForUser(context.Background(), "u1")
		s.NoError(err)
		s.Zero(total)
	})

	s.Run("negative amount is rejected before the quarantine check", func() {
		res := s.deposit("u1", id.SourceBankroll, -10)
		s.False(res.Awarded)
		s.Equal(ReasonInvalidAmount, res.Reason)

		blocked, err := s.quar.Blocked(context.Background(), id.SourceBankroll)
		s.NoError(err)
		s.False(blocked, "validation failures must not quarantine the source")
	})

	s.Run("amount above the sanity cap is rejected", func() {
		res := s.deposit("u1", id.SourceBankroll, 100001)
		s.False(res.Awarded)
		s.Equal(ReasonInvalidAmount, res.Reason)
	})
}

func (s *LedgerServiceSuite) TestDepositQuarantine() {
	_, err := s.quar.Block(context.Background(), id.SourceBankroll, "orb", domain.ReasonXPDecreaseAttempt, false)
	s.Require().NoError(err)

	res := s.deposit("u2", id.SourceBankroll, 100)
	s.False(res.Awarded)
	s.Equal(ReasonSourceQuarantined, res.Reason)
}

func (s *LedgerServiceSuite) TestDepositMultiplier() {
	s.Run("ineligible source deposits base directly", func() {
		res := s.deposit("u3", id.SourceBankroll, 100)
		s.True(res.Awarded)
		s.Equal(int64(100), res.Amount)
		s.Equal(1.0, res.Multiplier)
	})

	s.Run("eligible source applies the streak multiplier with floor", func() {
		// First deposit today seeds a one-day streak: m = 1.1.
		res := s.deposit("u4", id.SourceTraining, 105)
		s.True(res.Awarded)
		s.Equal(1.1, res.Multiplier)
		s.Equal(int64(115), res.Amount, "floor(105 * 1.1) = 115")
	})

	s.Run("multiplier saturates at the max", func() {
		user := id.UserID("u5")
		for d := 2; d <= 9; d++ {
			s.clock = time.Date(2026, 3, d, 12, 0, 0, 0, time.UTC)
			s.deposit(user, id.SourceTraining, 10)
		}
		res := s.deposit(user, id.SourceTraining, 100)
		s.Equal(1.5, res.Multiplier)
	})
}

func (s *LedgerServiceSuite) TestDepositDailyCap() {
	user := id.UserID("u6")

	s.Run("deposit is clipped to the remaining budget", func() {
		s.deposit(user, id.SourceBankroll, 9950)

		res := s.deposit(user, id.SourceBankroll, 100)
		s.True(res.Awarded)
		s.Equal(int64(50), res.Amount)
		s.Equal(int64(10000), res.NewTotal)
	})

	s.Run("deposit at the cap reports CapReached and writes no row", func() {
		res := s.deposit(user, id.SourceBankroll, 100)
		s.False(res.Awarded)
		s.Equal(ReasonDailyCapReached, res.Reason)

		total, err := s.store.TotalForUser(context.Background(), user)
		s.NoError(err)
		s.Equal(int64(10000), total, "ledger unchanged")
	})

	s.Run("budget resets on the next day", func() {
		s.clock = s.clock.Add(24 * time.Hour)
		res := s.deposit(user, id.SourceBankroll, 100)
		s.True(res.Awarded)
		s.Equal(int64(100), res.Amount)
	})
}

// =============================================================================
// Read Tests
// =============================================================================

func (s *LedgerServiceSuite) TestRead() {
	user := id.UserID("u7")
	s.deposit(user, id.SourceBankroll, 300)

	res, err := s.service.Read(context.Background(), user)
	s.NoError(err)
	s.Equal(int64(300), res.XPTotal)
	s.Equal(1.0, res.StreakMultiplier, "no streak yet for ineligible-only activity")
}

// =============================================================================
// Decrement Guard Tests
// =============================================================================

func (s *LedgerServiceSuite) TestGuardTotal() {
	ctx := context.Background()
	source := id.SourceID("SUSPECT")

	s.Run("non-decreasing transition passes", func() {
		s.NoError(s.service.GuardTotal(ctx, source, 500, 500))
		s.NoError(s.service.GuardTotal(ctx, source, 500, 600))
	})

	s.Run("decrement is rejected and the source quarantined", func() {
		err := s.service.GuardTotal(ctx, source, 500, 400)
		s.Error(err)
		s.Equal(dErrors.CodeMonotonicityViolation, dErrors.CodeOf(err))

		entry, err := s.quar.Entry(ctx, source)
		s.NoError(err)
		s.Equal(domain.ReasonXPDecreaseAttempt, entry.Reason)
		s.True(entry.Active(s.clock))
	})
}
