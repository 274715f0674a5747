package domain

import (
	"fmt"
	"strings"
)

// UserID is the stable opaque identifier for a player profile. Upstream
// sources mint it; this service only carries it around.
type UserID string

// ParseUserID validates and returns a UserID.
func ParseUserID(s string) (UserID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("user id is empty")
	}
	if len(s) > 128 {
		return "", fmt.Errorf("user id exceeds 128 characters")
	}
	return UserID(s), nil
}

// String returns the string representation of the user ID.
func (u UserID) String() string {
	return string(u)
}

// IsNil returns true if the user ID is empty.
func (u UserID) IsNil() bool {
	return u == ""
}

// SourceID names an upstream domain service ("orb") that emits signals.
type SourceID string

// Known sources. The catalog in internal/gateway binds these to
// endpoints and multiplier eligibility.
const (
	SourceTraining SourceID = "TRAINING"
	SourceArcade   SourceID = "ARCADE"
	SourceBankroll SourceID = "BANKROLL"
	SourceSocial   SourceID = "SOCIAL"
)

// ParseSourceID validates and returns a SourceID. Unknown sources are
// accepted: quarantine must be able to name sources the catalog has
// never heard of.
func ParseSourceID(s string) (SourceID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("source id is empty")
	}
	return SourceID(strings.ToUpper(s)), nil
}

// String returns the string representation of the source ID.
func (s SourceID) String() string {
	return string(s)
}

// IsNil returns true if the source ID is empty.
func (s SourceID) IsNil() bool {
	return s == ""
}

// BadgeCode identifies a badge within a source's badge namespace.
// Uniqueness is per (source, code), not global.
type BadgeCode string

func (b BadgeCode) String() string {
	return string(b)
}

func (b BadgeCode) IsNil() bool {
	return b == ""
}
