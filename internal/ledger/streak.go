package ledger

import (
	"time"

	"identity-dna/internal/domain"
	id "identity-dna/pkg/domain"
)

// advanceStreak applies the daily streak transition for activity at now.
// Same day is a no-op; consecutive day increments; any gap resets to 1
// and reseeds the start. Pure function, exercised directly in tests.
func advanceStreak(rec domain.StreakRecord, userID id.UserID, now time.Time) domain.StreakRecord {
	today := dateOnly(now)

	if rec.UserID.IsNil() {
		return domain.StreakRecord{
			UserID:        userID,
			CurrentStreak: 1,
			LongestStreak: 1,
			LastActive:    today,
			StartedAt:     now,
		}
	}

	last := dateOnly(rec.LastActive)
	switch {
	case today.Equal(last):
		return rec
	case today.Equal(last.AddDate(0, 0, 1)):
		rec.CurrentStreak++
		if rec.CurrentStreak > rec.LongestStreak {
			rec.LongestStreak = rec.CurrentStreak
		}
	default:
		rec.CurrentStreak = 1
		rec.StartedAt = now
	}
	rec.LastActive = today
	return rec
}

// Multiplier computes the streak bonus: min(max, 1 + k*streak).
func Multiplier(streak int, increment, max float64) float64 {
	m := 1 + increment*float64(streak)
	if m > max {
		return max
	}
	return m
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
