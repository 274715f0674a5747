// Package domain holds the shared model for the aggregated player
// profile and the signals that mutate it. Structs here are plain data;
// behavior lives in the component packages.
package domain

import (
	"time"

	id "identity-dna/pkg/domain"
)

// Profile is the authoritative per-user record. Exactly one exists per
// user. XPTotal never decreases; Version strictly increases on every
// committed mutation.
type Profile struct {
	UserID     id.UserID `json:"userId"`
	Username   string    `json:"username"`
	XPTotal    int64     `json:"xpTotal"`
	TrustScore float64   `json:"trustScore"` // clamped [0,100]
	SkillTier  int       `json:"skillTier"`  // [1,10]
	Badges     []Badge   `json:"badges"`
	LastSync   time.Time `json:"lastSync"`
	Version    int64     `json:"version"`
}

// NewProfile returns the defaults applied on first signal for a user.
func NewProfile(userID id.UserID, username string) Profile {
	return Profile{
		UserID:     userID,
		Username:   username,
		XPTotal:    0,
		TrustScore: 50.0,
		SkillTier:  1,
		Badges:     nil,
		Version:    0,
	}
}

// HasBadge reports whether the profile already holds (source, code).
func (p Profile) HasBadge(source id.SourceID, code id.BadgeCode) bool {
	for _, b := range p.Badges {
		if b.Source == source && b.Code == code {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so cached readers never alias the badge slice.
func (p Profile) Clone() Profile {
	out := p
	if p.Badges != nil {
		out.Badges = make([]Badge, len(p.Badges))
		copy(out.Badges, p.Badges)
	}
	return out
}

// ProfilePatch is a partial update proposal. Nil fields are untouched.
// Patches flow through the orchestrator commit path only.
type ProfilePatch struct {
	Username   *string
	TrustScore *float64
	SkillTier  *int
	Badges     []Badge // replaces the set when non-nil
	LastSync   *time.Time
}

// ChangeRecord is one append-only audit row per committed field change.
// LastSync changes are deliberately not recorded.
type ChangeRecord struct {
	UserID    id.UserID
	Field     string
	OldValue  string
	NewValue  string
	Source    string // caller identifier that produced the change
	Metadata  map[string]string
	ChangedAt time.Time
}

// ArchivedProfile is the snapshot kept for a retention window after a
// confirmed erasure.
type ArchivedProfile struct {
	ArchiveID      string
	UserID         id.UserID
	Data           Profile
	ArchivedAt     time.Time
	RetentionUntil time.Time
}

// Change record field names. Kept as constants so history queries and
// tests agree on spelling.
const (
	FieldUsername   = "username"
	FieldXPTotal    = "xp_total"
	FieldTrustScore = "trust_score"
	FieldSkillTier  = "skill_tier"
	FieldBadges     = "badges"
	FieldDeleted    = "deleted"
)
