package badge

import (
	"sort"

	"identity-dna/internal/domain"
	id "identity-dna/pkg/domain"
)

// Outcome classifies the effect of a single award or merge attempt.
type Outcome string

const (
	OutcomeAwarded       Outcome = "AWARDED"
	OutcomeAlreadyEarned Outcome = "ALREADY_EARNED"
	OutcomeProgressed    Outcome = "PROGRESS_UPDATED"
	OutcomeEarned        Outcome = "EARNED"
)

// MergeResult reports what happened to one incoming badge during a
// union.
type MergeResult struct {
	Source  id.SourceID
	Code    id.BadgeCode
	Outcome Outcome
}

type setKey struct {
	source id.SourceID
	code   id.BadgeCode
}

func keyOf(b domain.Badge) setKey {
	return setKey{source: b.Source, code: b.Code}
}

// Union merges incoming badges into the existing set, keyed by
// (source, code). A badge already present yields ALREADY_EARNED and the
// existing record wins; first occurrence wins among duplicates inside
// the incoming slice too. The merged set is returned in display order.
func Union(existing, incoming []domain.Badge) ([]domain.Badge, []MergeResult) {
	merged := make([]domain.Badge, len(existing))
	copy(merged, existing)

	seen := make(map[setKey]struct{}, len(merged))
	for _, b := range merged {
		seen[keyOf(b)] = struct{}{}
	}

	results := make([]MergeResult, 0, len(incoming))
	for _, b := range incoming {
		key := keyOf(b)
		if _, dup := seen[key]; dup {
			results = append(results, MergeResult{Source: b.Source, Code: b.Code, Outcome: OutcomeAlreadyEarned})
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, b)
		results = append(results, MergeResult{Source: b.Source, Code: b.Code, Outcome: OutcomeAwarded})
	}

	SortForDisplay(merged)
	return merged, results
}

// SortForDisplay orders badges by rarity descending, then earned_at
// descending. The sort is stable so equal badges keep their relative
// order.
func SortForDisplay(badges []domain.Badge) {
	sort.SliceStable(badges, func(i, j int) bool {
		if badges[i].Rarity != badges[j].Rarity {
			return badges[i].Rarity > badges[j].Rarity
		}
		return badges[i].EarnedAt.After(badges[j].EarnedAt)
	})
}

// find returns the index of (source, code) in the set, or -1.
func find(set []domain.Badge, source id.SourceID, code id.BadgeCode) int {
	for i, b := range set {
		if b.Source == source && b.Code == code {
			return i
		}
	}
	return -1
}
