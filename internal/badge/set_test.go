package badge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"identity-dna/internal/domain"
	id "identity-dna/pkg/domain"
)

func mkBadge(source id.SourceID, code string, rarity domain.Rarity, earned time.Time) domain.Badge {
	return domain.Badge{
		Source:   source,
		Code:     id.BadgeCode(code),
		Name:     code,
		Rarity:   rarity,
		Progress: 100,
		EarnedAt: earned,
	}
}

func TestUnion(t *testing.T) {
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	t.Run("disjoint sets merge fully", func(t *testing.T) {
		existing := []domain.Badge{mkBadge(id.SourceTraining, "gto-wizard", domain.RarityRare, base)}
		incoming := []domain.Badge{mkBadge(id.SourceArcade, "speed-demon", domain.RarityEpic, base.Add(time.Hour))}

		merged, results := Union(existing, incoming)
		assert.Len(t, merged, 2)
		assert.Equal(t, []MergeResult{
			{Source: id.SourceArcade, Code: "speed-demon", Outcome: OutcomeAwarded},
		}, results)
	})

	t.Run("same code from a different source is a distinct badge", func(t *testing.T) {
		existing := []domain.Badge{mkBadge(id.SourceTraining, "top-10", domain.RarityRare, base)}
		incoming := []domain.Badge{mkBadge(id.SourceArcade, "top-10", domain.RarityRare, base)}

		merged, results := Union(existing, incoming)
		assert.Len(t, merged, 2)
		assert.Equal(t, OutcomeAwarded, results[0].Outcome)
	})

	t.Run("duplicate within a source yields ALREADY_EARNED", func(t *testing.T) {
		existing := []domain.Badge{mkBadge(id.SourceTraining, "top-10", domain.RarityRare, base)}
		incoming := []domain.Badge{mkBadge(id.SourceTraining, "top-10", domain.RarityRare, base.Add(time.Hour))}

		merged, results := Union(existing, incoming)
		assert.Len(t, merged, 1)
		assert.Equal(t, OutcomeAlreadyEarned, results[0].Outcome)
		// The existing record wins.
		assert.Equal(t, base, merged[0].EarnedAt)
	})

	t.Run("duplicates inside incoming collapse to first occurrence", func(t *testing.T) {
		incoming := []domain.Badge{
			mkBadge(id.SourceSocial, "mentor", domain.RarityUncommon, base),
			mkBadge(id.SourceSocial, "mentor", domain.RarityUncommon, base.Add(time.Hour)),
		}

		merged, results := Union(nil, incoming)
		assert.Len(t, merged, 1)
		assert.Equal(t, OutcomeAwarded, results[0].Outcome)
		assert.Equal(t, OutcomeAlreadyEarned, results[1].Outcome)
	})

	t.Run("union does not mutate its inputs", func(t *testing.T) {
		existing := []domain.Badge{mkBadge(id.SourceTraining, "a", domain.RarityCommon, base)}
		incoming := []domain.Badge{mkBadge(id.SourceArcade, "b", domain.RarityMythic, base)}

		_, _ = Union(existing, incoming)
		assert.Equal(t, id.BadgeCode("a"), existing[0].Code)
		assert.Len(t, existing, 1)
	})
}

func TestSortForDisplay(t *testing.T) {
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	t.Run("rarity descending wins over recency", func(t *testing.T) {
		set := []domain.Badge{
			mkBadge(id.SourceTraining, "common-new", domain.RarityCommon, base.Add(48*time.Hour)),
			mkBadge(id.SourceArcade, "mythic-old", domain.RarityMythic, base),
			mkBadge(id.SourceSocial, "rare-mid", domain.RarityRare, base.Add(24*time.Hour)),
		}
		SortForDisplay(set)
		assert.Equal(t, id.BadgeCode("mythic-old"), set[0].Code)
		assert.Equal(t, id.BadgeCode("rare-mid"), set[1].Code)
		assert.Equal(t, id.BadgeCode("common-new"), set[2].Code)
	})

	t.Run("equal rarity orders by earned_at descending", func(t *testing.T) {
		set := []domain.Badge{
			mkBadge(id.SourceTraining, "older", domain.RarityEpic, base),
			mkBadge(id.SourceArcade, "newer", domain.RarityEpic, base.Add(time.Hour)),
		}
		SortForDisplay(set)
		assert.Equal(t, id.BadgeCode("newer"), set[0].Code)
		assert.Equal(t, id.BadgeCode("older"), set[1].Code)
	})
}

func TestRarityJSON(t *testing.T) {
	t.Run("rarity round-trips by name", func(t *testing.T) {
		assert.Equal(t, domain.RarityLegendary, domain.ParseRarity("LEGENDARY"))
		assert.Equal(t, "LEGENDARY", domain.RarityLegendary.String())
	})

	t.Run("unknown names rank COMMON", func(t *testing.T) {
		assert.Equal(t, domain.RarityCommon, domain.ParseRarity("SHINY"))
	})
}
