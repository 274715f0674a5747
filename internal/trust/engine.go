// Package trust aggregates social and verification factors into the
// 0-100 reputation score. Pure domain logic - no I/O, no side effects.
package trust

import (
	"math"

	"identity-dna/internal/domain"
)

// Baseline is the score every profile starts from.
const Baseline = 50.0

// Factor weights. Positive factors add, negative subtract.
const (
	perPositiveReview      = 2.0
	geoVerifiedBonus       = 5.0
	profileCompleteBonus   = 3.0
	perTenureMonth         = 0.5
	perActiveMonth         = 1.0
	perCompletedTournament = 0.5
	perHandShared          = 0.1
	perHelpfulUpvote       = 1.0

	perNegativeReview    = 3.0
	perSubstantiatedRpt  = 5.0
	perDisputedTxn       = 2.0
	perNoShow            = 4.0
	perSpamFlag          = 10.0

	inactivityGraceDays = 30
	decayPerIdleDay     = 0.1

	checkInRecovery = 0.5
)

// Compute derives the trust score from a SOCIAL bundle. The result is
// clamped to [0,100] and rounded to two decimals.
func Compute(s domain.SocialStats) float64 {
	score := Baseline

	score += perPositiveReview * float64(s.PositiveReviews)
	if s.GeoVerified {
		score += geoVerifiedBonus
	}
	if s.ProfileComplete {
		score += profileCompleteBonus
	}
	score += perTenureMonth * float64(s.TenureMonths)
	score += perActiveMonth * float64(s.ActiveMonths)
	score += perCompletedTournament * float64(s.TournamentsCompleted)
	score += perHandShared * float64(s.HandsShared)
	score += perHelpfulUpvote * float64(s.HelpfulUpvotes)

	score -= perNegativeReview * float64(s.NegativeReviews)
	score -= perSubstantiatedRpt * float64(s.SubstantiatedReports)
	score -= perDisputedTxn * float64(s.DisputedTxns)
	score -= perNoShow * float64(s.NoShows)
	score -= perSpamFlag * float64(s.SpamFlags)

	score = Decay(score, s.DaysSinceLastActive)

	return Round(Clamp(score))
}

// Decay subtracts the inactivity penalty once the grace window lapses.
func Decay(score float64, daysIdle int) float64 {
	if daysIdle > inactivityGraceDays {
		score -= decayPerIdleDay * float64(daysIdle-inactivityGraceDays)
	}
	return score
}

// ApplyDelta shifts an existing score by a partial-sync delta.
func ApplyDelta(current, delta float64) float64 {
	return Round(Clamp(current + delta))
}

// ApplyCheckIn credits a verified check-in, capped at 100.
func ApplyCheckIn(current float64) float64 {
	return Round(Clamp(current + checkInRecovery))
}

// Clamp bounds a score to [0,100].
func Clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Round keeps two decimal places, half away from zero.
func Round(score float64) float64 {
	return math.Round(score*100) / 100
}
