package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"identity-dna/internal/domain"
	"identity-dna/internal/ledger/metrics"
	"identity-dna/internal/platform/config"
	"identity-dna/internal/quarantine"
	id "identity-dna/pkg/domain"
	dErrors "identity-dna/pkg/domain-errors"
	"identity-dna/pkg/platform/sentinel"
)

// Rejection reasons returned on DepositResult. These are normal
// outcomes, never errors.
const (
	ReasonInvalidAmount     = "INVALID_AMOUNT"
	ReasonSourceQuarantined = "SOURCE_QUARANTINED"
	ReasonDailyCapReached   = "DAILY_CAP_REACHED"
)

// Eligibility reports whether a source receives the streak multiplier.
// The gateway catalog satisfies this.
type Eligibility interface {
	MultiplierEligible(source id.SourceID) bool
}

// DepositRequest proposes one XP contribution.
type DepositRequest struct {
	UserID   id.UserID
	Source   id.SourceID
	Amount   int64
	Metadata map[string]string
}

// DepositResult reports the outcome of a deposit. Amount is the
// committed contribution after multiplier and cap clipping.
type DepositResult struct {
	Awarded    bool
	Amount     int64
	NewTotal   int64
	Multiplier float64
	Reason     string
}

// ReadResult is the ledger's read-side view of a user.
type ReadResult struct {
	XPTotal          int64
	StreakMultiplier float64
	CurrentStreak    int
}

// Service enforces deposit bounds, daily cap, streak multipliers, and
// the client-side layer of the decrement defence.
type Service struct {
	store       Store
	streaks     StreakStore
	quarantine  *quarantine.Service
	eligibility Eligibility
	cfg         config.Ledger
	logger      *slog.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New constructs a ledger service.
func New(store Store, streaks StreakStore, q *quarantine.Service, eligibility Eligibility, cfg config.Ledger, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("ledger store is required")
	}
	if streaks == nil {
		return nil, fmt.Errorf("streak store is required")
	}
	if q == nil {
		return nil, fmt.Errorf("quarantine service is required")
	}
	if eligibility == nil {
		return nil, fmt.Errorf("eligibility catalog is required")
	}

	s := &Service{
		store:       store,
		streaks:     streaks,
		quarantine:  q,
		eligibility: eligibility,
		cfg:         cfg,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Deposit validates and commits one XP contribution. Validation
// precedes the quarantine check: a malformed amount never trips
// quarantine on its own.
func (s *Service) Deposit(ctx context.Context, req DepositRequest) (DepositResult, error) {
	if req.Amount < s.cfg.MinDeposit || req.Amount > s.cfg.MaxDeposit {
		s.reject(ReasonInvalidAmount)
		return DepositResult{Reason: ReasonInvalidAmount}, nil
	}

	blocked, err := s.quarantine.Blocked(ctx, req.Source)
	if err != nil {
		return DepositResult{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "quarantine check failed")
	}
	if blocked {
		s.reject(ReasonSourceQuarantined)
		if s.metrics != nil {
			s.metrics.QuarantineBlocks.Inc()
		}
		return DepositResult{Reason: ReasonSourceQuarantined}, nil
	}

	now := s.now()
	multiplier := 1.0
	if s.eligibility.MultiplierEligible(req.Source) {
		streak, err := s.touchStreak(ctx, req.UserID, now)
		if err != nil {
			return DepositResult{}, err
		}
		multiplier = Multiplier(streak.CurrentStreak, s.cfg.StreakIncrement, s.cfg.MaxStreakMultiplier)
	}

	amount := int64(math.Floor(float64(req.Amount) * multiplier))

	todaySum, err := s.store.SumForDay(ctx, req.UserID, now)
	if err != nil {
		return DepositResult{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "daily sum lookup failed")
	}
	remaining := s.cfg.DailyCap - todaySum
	if remaining <= 0 {
		s.reject(ReasonDailyCapReached)
		return DepositResult{Reason: ReasonDailyCapReached, Multiplier: multiplier}, nil
	}
	if amount > remaining {
		amount = remaining
		if s.metrics != nil {
			s.metrics.CapClippedTotal.Inc()
		}
	}

	entry := domain.LedgerEntry{
		UserID:     req.UserID,
		Source:     req.Source,
		BaseAmount: req.Amount,
		Multiplier: multiplier,
		Amount:     amount,
		Metadata:   req.Metadata,
		CreatedAt:  now,
	}
	if err := s.store.Append(ctx, entry); err != nil {
		return DepositResult{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "ledger append failed")
	}

	total, err := s.store.TotalForUser(ctx, req.UserID)
	if err != nil {
		return DepositResult{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "ledger total lookup failed")
	}

	if s.metrics != nil {
		s.metrics.IncrementAwarded()
	}
	s.logger.Debug("xp deposited",
		"user_id", req.UserID,
		"source", req.Source,
		"base", req.Amount,
		"multiplier", multiplier,
		"amount", amount,
		"new_total", total,
	)

	return DepositResult{
		Awarded:    true,
		Amount:     amount,
		NewTotal:   total,
		Multiplier: multiplier,
	}, nil
}

// Read returns the user's committed total and current streak multiplier.
func (s *Service) Read(ctx context.Context, userID id.UserID) (ReadResult, error) {
	total, err := s.store.TotalForUser(ctx, userID)
	if err != nil {
		return ReadResult{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "ledger total lookup failed")
	}

	streak, err := s.streaks.Get(ctx, userID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return ReadResult{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "streak lookup failed")
	}

	return ReadResult{
		XPTotal:          total,
		StreakMultiplier: Multiplier(streak.CurrentStreak, s.cfg.StreakIncrement, s.cfg.MaxStreakMultiplier),
		CurrentStreak:    streak.CurrentStreak,
	}, nil
}

// GuardTotal is the decrement guard shared by the ledger (layer one)
// and the orchestrator validator (layer two). A transition that lowers
// the total quarantines the offending source and reports a
// monotonicity violation.
func (s *Service) GuardTotal(ctx context.Context, source id.SourceID, oldTotal, newTotal int64) error {
	if newTotal >= oldTotal {
		return nil
	}

	if s.metrics != nil {
		s.metrics.MonotonicityTrips.Inc()
	}
	if _, err := s.quarantine.Block(ctx, source, "orb", domain.ReasonXPDecreaseAttempt, false); err != nil {
		s.logger.Error("failed to quarantine source after decrement attempt", "source", source, "error", err)
	}
	return dErrors.New(dErrors.CodeMonotonicityViolation,
		fmt.Sprintf("xp_total may not decrease (%d -> %d)", oldTotal, newTotal))
}

// touchStreak applies the daily transition and persists the result.
func (s *Service) touchStreak(ctx context.Context, userID id.UserID, now time.Time) (domain.StreakRecord, error) {
	rec, err := s.streaks.Get(ctx, userID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return domain.StreakRecord{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "streak lookup failed")
	}

	next := advanceStreak(rec, userID, now)
	if next != rec {
		if err := s.streaks.Put(ctx, next); err != nil {
			return domain.StreakRecord{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "streak update failed")
		}
	}
	return next, nil
}

func (s *Service) reject(reason string) {
	if s.metrics != nil {
		s.metrics.IncrementRejected(reason)
	}
}
