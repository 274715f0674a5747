//go:build integration

package quarantine

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"identity-dna/internal/domain"
	id "identity-dna/pkg/domain"
	"identity-dna/pkg/platform/sentinel"
	"identity-dna/pkg/testutil/containers"
)

// ============================================================
// Redis quarantine store
// ============================================================
//
// Justification for integration tests:
// - Multi-instance deployments share quarantine state through Redis;
//   serialization and key scanning must hold against a real server.

type RedisQuarantineSuite struct {
	suite.Suite
	ctx   context.Context
	rc    *containers.RedisContainer
	store *RedisStore
	clock time.Time
}

func TestRedisQuarantineSuite(t *testing.T) {
	suite.Run(t, new(RedisQuarantineSuite))
}

func (s *RedisQuarantineSuite) SetupSuite() {
	s.ctx = context.Background()
	s.clock = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s.rc = containers.NewRedisContainer(s.T())
	s.store = NewRedisStore(s.rc.Client)
}

func (s *RedisQuarantineSuite) SetupTest() {
	s.Require().NoError(s.rc.Client.FlushAll(s.ctx).Err())
}

func (s *RedisQuarantineSuite) TestPutGetRoundTrip() {
	entry := domain.QuarantineEntry{
		Source:         id.SourceArcade,
		SourceType:     "orb",
		Reason:         domain.ReasonXPDecreaseAttempt,
		ViolationCount: 2,
		AutoUnblockAt:  s.clock.Add(time.Hour),
		CreatedAt:      s.clock,
	}
	s.Require().NoError(s.store.Put(s.ctx, entry))

	got, err := s.store.Get(s.ctx, id.SourceArcade)
	s.Require().NoError(err)
	s.Equal(entry.Reason, got.Reason)
	s.Equal(2, got.ViolationCount)
	s.False(got.Permanent)
	s.True(entry.AutoUnblockAt.Equal(got.AutoUnblockAt))
}

func (s *RedisQuarantineSuite) TestMissingSourceIsNotFound() {
	_, err := s.store.Get(s.ctx, id.SourceBankroll)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisQuarantineSuite) TestListScansAllEntries() {
	for _, source := range []id.SourceID{id.SourceTraining, id.SourceArcade, "ROGUE_ORB"} {
		s.Require().NoError(s.store.Put(s.ctx, domain.QuarantineEntry{
			Source:    source,
			Reason:    domain.ReasonXPDecreaseAttempt,
			Permanent: true,
			CreatedAt: s.clock,
		}))
	}

	entries, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(entries, 3)

	sources := make(map[id.SourceID]bool, len(entries))
	for _, e := range entries {
		sources[e.Source] = true
		s.True(e.Permanent)
	}
	s.True(sources["ROGUE_ORB"], "sources outside the catalog must be storable")
}

func (s *RedisQuarantineSuite) TestServiceBlocksThroughRedis() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := New(s.store, WithLogger(logger), WithClock(func() time.Time { return s.clock }))
	s.Require().NoError(err)

	_, err = svc.Block(s.ctx, id.SourceSocial, "orb", domain.ReasonXPDecreaseAttempt, false)
	s.Require().NoError(err)

	blocked, err := svc.Blocked(s.ctx, id.SourceSocial)
	s.Require().NoError(err)
	s.True(blocked)

	// A second violation escalates the count on the shared entry.
	_, err = svc.Block(s.ctx, id.SourceSocial, "orb", domain.ReasonXPDecreaseAttempt, false)
	s.Require().NoError(err)

	entry, err := s.store.Get(s.ctx, id.SourceSocial)
	s.Require().NoError(err)
	s.Equal(2, entry.ViolationCount)
}
