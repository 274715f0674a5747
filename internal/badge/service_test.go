package badge

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"identity-dna/internal/domain"
	id "identity-dna/pkg/domain"
	dErrors "identity-dna/pkg/domain-errors"
)

type sourceReaderStub struct {
	badges   map[id.SourceID][]domain.Badge
	degraded map[id.SourceID]bool
}

func (s *sourceReaderStub) ReadBadges(_ context.Context, source id.SourceID, _ id.UserID) ([]domain.Badge, bool) {
	if s.degraded[source] {
		return nil, true
	}
	return s.badges[source], false
}

// =============================================================================
// Badge Aggregator Test Suite
// =============================================================================
// Justification for unit tests: award/progress/revoke transitions carry
// ordering and archive-before-remove guarantees that downstream components
// rely on and that integration tests would only exercise indirectly.

type AggregatorSuite struct {
	suite.Suite
	reader  *sourceReaderStub
	archive *InMemoryArchive
	agg     *Aggregator
	clock   time.Time
	user    id.UserID
}

func TestAggregatorSuite(t *testing.T) {
	suite.Run(t, new(AggregatorSuite))
}

func (s *AggregatorSuite) SetupTest() {
	s.reader = &sourceReaderStub{
		badges:   make(map[id.SourceID][]domain.Badge),
		degraded: make(map[id.SourceID]bool),
	}
	s.archive = NewInMemoryArchive()
	s.clock = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.user = id.UserID("user-1")

	var err error
	s.agg, err = New(s.reader, s.archive,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return s.clock }),
	)
	s.Require().NoError(err)
}

func (s *AggregatorSuite) TestCollect() {
	s.Run("unions badge sets from all sources", func() {
		s.reader.badges[id.SourceTraining] = []domain.Badge{mkBadge(id.SourceTraining, "gto-wizard", domain.RarityRare, s.clock)}
		s.reader.badges[id.SourceArcade] = []domain.Badge{mkBadge(id.SourceArcade, "speed-demon", domain.RarityEpic, s.clock)}

		merged, degraded := s.agg.Collect(context.Background(), s.user, nil,
			[]id.SourceID{id.SourceTraining, id.SourceArcade})

		s.Len(merged, 2)
		s.Empty(degraded)
		// Epic sorts ahead of rare.
		s.Equal(id.BadgeCode("speed-demon"), merged[0].Code)
	})

	s.Run("degraded sources contribute nothing and are reported", func() {
		s.reader.degraded[id.SourceTraining] = true
		s.reader.badges[id.SourceArcade] = []domain.Badge{mkBadge(id.SourceArcade, "speed-demon", domain.RarityEpic, s.clock)}

		merged, degraded := s.agg.Collect(context.Background(), s.user, nil,
			[]id.SourceID{id.SourceTraining, id.SourceArcade})

		s.Len(merged, 1)
		s.Equal([]id.SourceID{id.SourceTraining}, degraded)
	})

	s.Run("existing badges survive a fully degraded read", func() {
		s.reader.degraded[id.SourceTraining] = true
		existing := []domain.Badge{mkBadge(id.SourceTraining, "gto-wizard", domain.RarityRare, s.clock)}

		merged, degraded := s.agg.Collect(context.Background(), s.user, existing,
			[]id.SourceID{id.SourceTraining})

		s.Equal(existing, merged)
		s.Len(degraded, 1)
	})
}

func (s *AggregatorSuite) TestAward() {
	s.Run("awards a new badge and stamps earned_at", func() {
		b := domain.Badge{Source: id.SourceSocial, Code: "mentor", Rarity: domain.RarityUncommon, Progress: 100}

		next, outcome := s.agg.Award(nil, b)
		s.Equal(OutcomeAwarded, outcome)
		s.Require().Len(next, 1)
		s.Equal(s.clock, next[0].EarnedAt)
	})

	s.Run("duplicate award reports ALREADY_EARNED and keeps the original", func() {
		original := mkBadge(id.SourceSocial, "mentor", domain.RarityUncommon, s.clock.Add(-time.Hour))
		set := []domain.Badge{original}

		next, outcome := s.agg.Award(set, mkBadge(id.SourceSocial, "mentor", domain.RarityUncommon, s.clock))
		s.Equal(OutcomeAlreadyEarned, outcome)
		s.Require().Len(next, 1)
		s.Equal(original.EarnedAt, next[0].EarnedAt)
	})

	s.Run("in-progress award keeps a zero earned_at", func() {
		b := domain.Badge{Source: id.SourceTraining, Code: "grinder", Progress: 40}

		next, outcome := s.agg.Award(nil, b)
		s.Equal(OutcomeAwarded, outcome)
		s.True(next[0].EarnedAt.IsZero())
	})
}

func (s *AggregatorSuite) TestUpdateProgress() {
	s.Run("progress below one hundred updates without earning", func() {
		set := []domain.Badge{{Source: id.SourceTraining, Code: "grinder", Progress: 40}}

		next, outcome, err := s.agg.UpdateProgress(set, id.SourceTraining, "grinder", 75)
		s.Require().NoError(err)
		s.Equal(OutcomeProgressed, outcome)
		s.Equal(75, next[0].Progress)
		s.True(next[0].EarnedAt.IsZero())
	})

	s.Run("reaching one hundred earns the badge", func() {
		set := []domain.Badge{{Source: id.SourceTraining, Code: "grinder", Progress: 99}}

		next, outcome, err := s.agg.UpdateProgress(set, id.SourceTraining, "grinder", 100)
		s.Require().NoError(err)
		s.Equal(OutcomeEarned, outcome)
		s.Equal(s.clock, next[0].EarnedAt)
	})

	s.Run("progress clamps to the valid range", func() {
		set := []domain.Badge{{Source: id.SourceTraining, Code: "grinder", Progress: 40}}

		next, outcome, err := s.agg.UpdateProgress(set, id.SourceTraining, "grinder", 250)
		s.Require().NoError(err)
		s.Equal(OutcomeEarned, outcome)
		s.Equal(100, next[0].Progress)

		next, outcome, err = s.agg.UpdateProgress(next, id.SourceTraining, "grinder", -5)
		s.Require().NoError(err)
		s.Equal(OutcomeAlreadyEarned, outcome)
	})

	s.Run("an earned badge keeps its timestamp", func() {
		earned := s.clock.Add(-24 * time.Hour)
		set := []domain.Badge{mkBadge(id.SourceTraining, "grinder", domain.RarityCommon, earned)}

		next, outcome, err := s.agg.UpdateProgress(set, id.SourceTraining, "grinder", 50)
		s.Require().NoError(err)
		s.Equal(OutcomeAlreadyEarned, outcome)
		s.Equal(earned, next[0].EarnedAt)
		s.Equal(100, next[0].Progress)
	})

	s.Run("unknown badge is a not-found error", func() {
		_, _, err := s.agg.UpdateProgress(nil, id.SourceTraining, "ghost", 10)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *AggregatorSuite) TestRevoke() {
	s.Run("archives before removing", func() {
		set := []domain.Badge{mkBadge(id.SourceArcade, "speed-demon", domain.RarityEpic, s.clock)}

		next, err := s.agg.Revoke(context.Background(), s.user, set, id.SourceArcade, "speed-demon", "score rollback")
		s.Require().NoError(err)
		s.Empty(next)

		revoked, err := s.archive.ListRevoked(context.Background(), s.user)
		s.Require().NoError(err)
		s.Require().Len(revoked, 1)
		s.Equal(id.BadgeCode("speed-demon"), revoked[0].Badge.Code)
		s.Equal("score rollback", revoked[0].Reason)
		s.Equal(s.clock, revoked[0].RevokedAt)
	})

	s.Run("revoking an untracked badge is a not-found error", func() {
		_, err := s.agg.Revoke(context.Background(), s.user, nil, id.SourceArcade, "ghost", "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
