package profile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"identity-dna/internal/domain"
	"identity-dna/internal/platform/config"
	id "identity-dna/pkg/domain"
	dErrors "identity-dna/pkg/domain-errors"
)

// =============================================================================
// Profile Service Test Suite
// =============================================================================
// Justification for unit tests: the write path carries the audit and
// versioning contracts (one change record per changed field, version +1 per
// commit, last_sync silent) that every other component assumes.

type ProfileServiceSuite struct {
	suite.Suite
	ctx     context.Context
	store   *InMemoryStore
	history *InMemoryHistoryStore
	archive *InMemoryArchiveStore
	service *Service
	clock   time.Time
	user    id.UserID
}

func TestProfileServiceSuite(t *testing.T) {
	suite.Run(t, new(ProfileServiceSuite))
}

func (s *ProfileServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemoryStore()
	s.history = NewInMemoryHistoryStore()
	s.archive = NewInMemoryArchiveStore()
	s.clock = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.user = id.UserID("user-1")

	var err error
	s.service, err = New(s.store, s.history, s.archive,
		config.Profile{
			ArchiveRetention: 180 * 24 * time.Hour,
			ConfirmTokenTTL:  15 * time.Minute,
		},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return s.clock }),
	)
	s.Require().NoError(err)
}

func (s *ProfileServiceSuite) mustCreate() domain.Profile {
	p, err := s.service.Create(s.ctx, s.user, "hero42")
	s.Require().NoError(err)
	return p
}

func (s *ProfileServiceSuite) TestCreate() {
	s.Run("applies first-signal defaults", func() {
		p := s.mustCreate()
		s.Equal(int64(0), p.XPTotal)
		s.Equal(50.0, p.TrustScore)
		s.Equal(1, p.SkillTier)
		s.Empty(p.Badges)
		s.Equal(int64(0), p.Version)
	})

	s.Run("rejects a duplicate user id", func() {
		_, err := s.service.Create(s.ctx, s.user, "impostor")
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("rejects an empty user id", func() {
		_, err := s.service.Create(s.ctx, "", "nobody")
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func (s *ProfileServiceSuite) TestUpdate() {
	s.mustCreate()

	s.Run("writes one change record per changed field", func() {
		username := "hero43"
		trust := 61.5
		p, err := s.service.Update(s.ctx, s.user, domain.ProfilePatch{
			Username:   &username,
			TrustScore: &trust,
		}, "SOCIAL")
		s.Require().NoError(err)
		s.Equal(int64(1), p.Version)

		records, err := s.service.History(s.ctx, s.user, 10)
		s.Require().NoError(err)
		s.Require().Len(records, 2)
		fields := []string{records[0].Field, records[1].Field}
		s.ElementsMatch([]string{domain.FieldUsername, domain.FieldTrustScore}, fields)
		for _, r := range records {
			s.Equal("SOCIAL", r.Source)
		}
	})

	s.Run("an unchanged field produces no record", func() {
		username := "hero43" // already the stored value
		tier := 2
		p, err := s.service.Update(s.ctx, s.user, domain.ProfilePatch{
			Username:  &username,
			SkillTier: &tier,
		}, "TRAINING")
		s.Require().NoError(err)
		s.Equal(int64(2), p.Version)

		records, err := s.service.History(s.ctx, s.user, 1)
		s.Require().NoError(err)
		s.Equal(domain.FieldSkillTier, records[0].Field)
		s.Equal("1", records[0].OldValue)
		s.Equal("2", records[0].NewValue)
	})

	s.Run("an empty patch commits nothing", func() {
		before, err := s.service.GetByID(s.ctx, s.user)
		s.Require().NoError(err)

		after, err := s.service.Update(s.ctx, s.user, domain.ProfilePatch{}, "SOCIAL")
		s.Require().NoError(err)
		s.Equal(before.Version, after.Version)
	})

	s.Run("last_sync bumps the version but leaves no record", func() {
		before, err := s.service.GetByID(s.ctx, s.user)
		s.Require().NoError(err)
		countBefore, err := s.service.History(s.ctx, s.user, 100)
		s.Require().NoError(err)

		syncedAt := s.clock.Add(time.Minute)
		after, err := s.service.Update(s.ctx, s.user, domain.ProfilePatch{LastSync: &syncedAt}, "SYNC")
		s.Require().NoError(err)
		s.Equal(before.Version+1, after.Version)
		s.Equal(syncedAt, after.LastSync)

		countAfter, err := s.service.History(s.ctx, s.user, 100)
		s.Require().NoError(err)
		s.Len(countAfter, len(countBefore))
	})

	s.Run("rejects out-of-range tier and trust", func() {
		tier := 11
		_, err := s.service.Update(s.ctx, s.user, domain.ProfilePatch{SkillTier: &tier}, "X")
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))

		trust := -0.5
		_, err = s.service.Update(s.ctx, s.user, domain.ProfilePatch{TrustScore: &trust}, "X")
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("unknown user is a not-found error", func() {
		_, err := s.service.Update(s.ctx, "ghost", domain.ProfilePatch{}, "X")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ProfileServiceSuite) TestIncrementXP() {
	s.mustCreate()

	s.Run("raises the total and audits old and new values", func() {
		p, err := s.service.IncrementXP(s.ctx, s.user, 150, "TRAINING")
		s.Require().NoError(err)
		s.Equal(int64(150), p.XPTotal)
		s.Equal(int64(1), p.Version)

		records, err := s.service.History(s.ctx, s.user, 1)
		s.Require().NoError(err)
		s.Equal(domain.FieldXPTotal, records[0].Field)
		s.Equal("0", records[0].OldValue)
		s.Equal("150", records[0].NewValue)
	})

	s.Run("rejects a non-positive delta as a decrement attempt", func() {
		_, err := s.service.IncrementXP(s.ctx, s.user, 0, "TRAINING")
		s.True(dErrors.HasCode(err, dErrors.CodeMonotonicityViolation))

		_, err = s.service.IncrementXP(s.ctx, s.user, -10, "TRAINING")
		s.True(dErrors.HasCode(err, dErrors.CodeMonotonicityViolation))
	})
}

func (s *ProfileServiceSuite) TestStoreGuard() {
	s.mustCreate()
	_, err := s.service.IncrementXP(s.ctx, s.user, 500, "TRAINING")
	s.Require().NoError(err)

	// Drive the store directly: a write lowering xp_total must be
	// refused even when it carries the right version.
	current, err := s.store.Get(s.ctx, s.user)
	s.Require().NoError(err)
	lowered := current.Clone()
	lowered.XPTotal = 100
	lowered.Version++

	err = s.store.Update(s.ctx, lowered, current.Version)
	s.Require().Error(err)

	after, err := s.store.Get(s.ctx, s.user)
	s.Require().NoError(err)
	s.Equal(int64(500), after.XPTotal)
}

func (s *ProfileServiceSuite) TestErasure() {
	s.Run("delete without a pending confirmation is rejected", func() {
		s.mustCreate()
		err := s.service.Delete(s.ctx, s.user, "whatever")
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("wrong token is rejected", func() {
		_, err := s.service.RequestErasure(s.ctx, s.user)
		s.Require().NoError(err)
		err = s.service.Delete(s.ctx, s.user, "not-the-token")
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("expired token is rejected", func() {
		token, err := s.service.RequestErasure(s.ctx, s.user)
		s.Require().NoError(err)
		s.clock = s.clock.Add(16 * time.Minute)
		err = s.service.Delete(s.ctx, s.user, token)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("confirmed erasure archives then removes", func() {
		token, err := s.service.RequestErasure(s.ctx, s.user)
		s.Require().NoError(err)

		s.Require().NoError(s.service.Delete(s.ctx, s.user, token))

		_, err = s.service.GetByID(s.ctx, s.user)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

		snap, err := s.service.Archived(s.ctx, s.user)
		s.Require().NoError(err)
		s.Equal(s.user, snap.Data.UserID)
		s.Equal(s.clock.Add(180*24*time.Hour), snap.RetentionUntil)

		records, err := s.service.History(s.ctx, s.user, 1)
		s.Require().NoError(err)
		s.Equal(domain.FieldDeleted, records[0].Field)
		s.Equal(snap.ArchiveID, records[0].Metadata["archive_id"])
	})

	s.Run("snapshots past retention are purged", func() {
		s.clock = s.clock.Add(181 * 24 * time.Hour)
		purged, err := s.service.PurgeExpiredArchives(s.ctx)
		s.Require().NoError(err)
		s.Equal(1, purged)

		_, err = s.service.Archived(s.ctx, s.user)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// outageStore simulates a store whose connection is down: the selected
// calls fail with a transport error rather than a sentinel.
type outageStore struct {
	*InMemoryStore
	getErr    error
	updateErr error
}

func (o *outageStore) Get(ctx context.Context, userID id.UserID) (domain.Profile, error) {
	if o.getErr != nil {
		return domain.Profile{}, o.getErr
	}
	return o.InMemoryStore.Get(ctx, userID)
}

func (o *outageStore) Update(ctx context.Context, p domain.Profile, expectedVersion int64) error {
	if o.updateErr != nil {
		return o.updateErr
	}
	return o.InMemoryStore.Update(ctx, p, expectedVersion)
}

func (s *ProfileServiceSuite) TestStoreOutageIsRetryable() {
	s.mustCreate()

	outage := &outageStore{InMemoryStore: s.store}
	svc, err := New(outage, s.history, s.archive,
		config.Profile{ArchiveRetention: 180 * 24 * time.Hour, ConfirmTokenTTL: 15 * time.Minute},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return s.clock }),
	)
	s.Require().NoError(err)

	s.Run("read outage", func() {
		outage.getErr = errors.New("connection refused")
		defer func() { outage.getErr = nil }()

		_, err := svc.GetByID(s.ctx, s.user)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable), "a store outage on read must be retryable")
	})

	s.Run("write outage", func() {
		outage.updateErr = errors.New("connection refused")
		defer func() { outage.updateErr = nil }()

		_, err := svc.IncrementXP(s.ctx, s.user, 10, "TEST")
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable), "a store outage on write must be retryable")
	})
}
