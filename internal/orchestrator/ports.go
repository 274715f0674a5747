package orchestrator

import (
	"context"

	"identity-dna/internal/badge"
	"identity-dna/internal/domain"
	"identity-dna/internal/ledger"
	"identity-dna/internal/skill"
	id "identity-dna/pkg/domain"
)

//go:generate mockgen -source=ports.go -destination=../../mocks/orchestrator_ports.go -package=mocks

// LedgerPort is the XP ledger as seen from the commit path. GuardTotal
// is the orchestrator-level layer of the decrement defence.
type LedgerPort interface {
	Deposit(ctx context.Context, req ledger.DepositRequest) (ledger.DepositResult, error)
	Read(ctx context.Context, userID id.UserID) (ledger.ReadResult, error)
	GuardTotal(ctx context.Context, source id.SourceID, oldTotal, newTotal int64) error
}

// ProfilePort is the profile store write path.
type ProfilePort interface {
	GetByID(ctx context.Context, userID id.UserID) (domain.Profile, error)
	Create(ctx context.Context, userID id.UserID, username string) (domain.Profile, error)
	Update(ctx context.Context, userID id.UserID, patch domain.ProfilePatch, callerSource string) (domain.Profile, error)
	IncrementXP(ctx context.Context, userID id.UserID, delta int64, callerSource string) (domain.Profile, error)
}

// SourcePort reads stat bundles during a full sync.
type SourcePort interface {
	ReadAll(ctx context.Context, userID id.UserID) domain.BundleSet
}

// BadgePort merges badge sets.
type BadgePort interface {
	Collect(ctx context.Context, userID id.UserID, existing []domain.Badge, sources []id.SourceID) ([]domain.Badge, []id.SourceID)
	Award(set []domain.Badge, b domain.Badge) ([]domain.Badge, badge.Outcome)
}

// SkillPort evaluates tier decisions.
type SkillPort interface {
	Evaluate(userID id.UserID, currentTier int, set domain.BundleSet) skill.Result
	Forget(userID id.UserID)
}

// Notifier publishes committed changes to downstreams. Implementations
// must not block the commit path; failures are theirs to absorb.
type Notifier interface {
	ProfileUpdated(ctx context.Context, p domain.Profile)
	TierChanged(ctx context.Context, userID id.UserID, oldTier, newTier int)
	TrustUpdated(ctx context.Context, userID id.UserID, score float64)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) ProfileUpdated(context.Context, domain.Profile)   {}
func (NopNotifier) TierChanged(context.Context, id.UserID, int, int) {}
func (NopNotifier) TrustUpdated(context.Context, id.UserID, float64) {}
