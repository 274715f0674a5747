package domain

import (
	"encoding/json"
	"time"

	id "identity-dna/pkg/domain"
)

// Rarity orders badges for display. Higher is rarer.
type Rarity int

const (
	RarityCommon Rarity = iota
	RarityUncommon
	RarityRare
	RarityEpic
	RarityLegendary
	RarityMythic
)

var rarityNames = map[Rarity]string{
	RarityCommon:    "COMMON",
	RarityUncommon:  "UNCOMMON",
	RarityRare:      "RARE",
	RarityEpic:      "EPIC",
	RarityLegendary: "LEGENDARY",
	RarityMythic:    "MYTHIC",
}

var raritiesByName = func() map[string]Rarity {
	m := make(map[string]Rarity, len(rarityNames))
	for r, n := range rarityNames {
		m[n] = r
	}
	return m
}()

func (r Rarity) String() string {
	if n, ok := rarityNames[r]; ok {
		return n
	}
	return "COMMON"
}

// ParseRarity maps a rarity name to its rank; unknown names rank COMMON.
func ParseRarity(s string) Rarity {
	if r, ok := raritiesByName[s]; ok {
		return r
	}
	return RarityCommon
}

// MarshalJSON renders the rarity by name; sources and downstreams
// exchange names, not ranks.
func (r Rarity) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Rarity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	*r = ParseRarity(name)
	return nil
}

// Badge is one earned badge, unique per (Source, Code).
type Badge struct {
	Source   id.SourceID  `json:"source"`
	Code     id.BadgeCode `json:"code"`
	Name     string       `json:"name"`
	Rarity   Rarity       `json:"rarity"`
	Progress int          `json:"progress"` // 0-100; earned at 100
	EarnedAt time.Time    `json:"earnedAt"`
}

// Earned reports whether the badge has reached full progress.
func (b Badge) Earned() bool {
	return b.Progress >= 100
}
