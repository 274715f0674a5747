package domain

import (
	"time"

	id "identity-dna/pkg/domain"
)

// EventType names a signal kind emitted by an upstream source.
type EventType string

// Known event types, grouped by the sync behavior they trigger.
const (
	// XP-bearing
	EventXPAwarded     EventType = "XP_AWARDED"
	EventXPStreakBonus EventType = "XP_STREAK_BONUS"

	// Skill-affecting
	EventSkillImproved     EventType = "SKILL_IMPROVED"
	EventTierPromotion     EventType = "TIER_PROMOTION"
	EventTrainingCompleted EventType = "TRAINING_COMPLETED"
	EventDisciplineScore   EventType = "DISCIPLINE_SCORE"

	// Trust-affecting
	EventTrustUpdated   EventType = "TRUST_UPDATED"
	EventReviewReceived EventType = "REVIEW_RECEIVED"

	// Badge-granting
	EventBadgeEarned       EventType = "BADGE_EARNED"
	EventAchievementUnlock EventType = "ACHIEVEMENT_UNLOCKED"
	EventVerifiedCheckIn   EventType = "VERIFIED_CHECK_IN" // trust recovery
)

var knownEventTypes = map[EventType]struct{}{
	EventXPAwarded:         {},
	EventXPStreakBonus:     {},
	EventSkillImproved:     {},
	EventTierPromotion:     {},
	EventTrainingCompleted: {},
	EventDisciplineScore:   {},
	EventTrustUpdated:      {},
	EventReviewReceived:    {},
	EventBadgeEarned:       {},
	EventAchievementUnlock: {},
	EventVerifiedCheckIn:   {},
}

// Known reports whether the type is in the accepted set. Unknown types
// are dropped at intake with a warning record.
func (t EventType) Known() bool {
	_, ok := knownEventTypes[t]
	return ok
}

// XPBearing reports whether the event contributes to the XP delta.
func (t EventType) XPBearing() bool {
	return t == EventXPAwarded || t == EventXPStreakBonus
}

// SkillAffecting reports whether the event marks the skill-change flag.
func (t EventType) SkillAffecting() bool {
	switch t {
	case EventSkillImproved, EventTierPromotion, EventTrainingCompleted, EventDisciplineScore:
		return true
	}
	return false
}

// TrustAffecting reports whether the event contributes to the trust delta.
func (t EventType) TrustAffecting() bool {
	return t == EventTrustUpdated || t == EventReviewReceived || t == EventVerifiedCheckIn
}

// BadgeGranting reports whether the event carries a badge payload.
func (t EventType) BadgeGranting() bool {
	return t == EventBadgeEarned || t == EventAchievementUnlock
}

// RequiresFullSync reports whether the event forces a full re-read of
// all source bundles instead of a delta apply.
func (t EventType) RequiresFullSync() bool {
	switch t {
	case EventTierPromotion, EventSkillImproved, EventDisciplineScore:
		return true
	}
	return false
}

// EventPayload carries the type-specific fields of an inbound event.
// Only the fields relevant to the event type are populated.
type EventPayload struct {
	Amount     int64             `json:"amount,omitempty"`
	TrustDelta float64           `json:"delta,omitempty"`
	Badge      *Badge            `json:"badge,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Event is the inbound envelope consumed by the orchestrator. ID is
// optional; when present it participates in the dedup window.
type Event struct {
	ID        string
	Type      EventType
	UserID    id.UserID
	Source    id.SourceID
	Payload   EventPayload
	Timestamp time.Time
}
