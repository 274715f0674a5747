package gateway

import (
	id "identity-dna/pkg/domain"
)

// SourceSpec binds a source to its HTTP endpoint and its ledger
// multiplier eligibility. The catalog is fixed at startup; sources are
// not discovered dynamically.
type SourceSpec struct {
	Source             id.SourceID
	BaseURL            string
	Endpoint           string
	BadgeEndpoint      string // empty when the source awards no badges
	MultiplierEligible bool
}

// Catalog is the fixed set of upstream sources.
type Catalog struct {
	specs map[id.SourceID]SourceSpec
}

// NewCatalog builds a catalog from explicit specs.
func NewCatalog(specs ...SourceSpec) *Catalog {
	m := make(map[id.SourceID]SourceSpec, len(specs))
	for _, s := range specs {
		m[s.Source] = s
	}
	return &Catalog{specs: m}
}

// DefaultCatalog wires the four known sources against a single base URL.
// Deployments with per-source hosts build the catalog explicitly.
func DefaultCatalog(baseURL string) *Catalog {
	return NewCatalog(
		SourceSpec{Source: id.SourceTraining, BaseURL: baseURL, Endpoint: "/training/stats", BadgeEndpoint: "/training/badges", MultiplierEligible: true},
		SourceSpec{Source: id.SourceArcade, BaseURL: baseURL, Endpoint: "/arcade/stats", BadgeEndpoint: "/arcade/badges", MultiplierEligible: true},
		SourceSpec{Source: id.SourceBankroll, BaseURL: baseURL, Endpoint: "/bankroll/stats", MultiplierEligible: false},
		SourceSpec{Source: id.SourceSocial, BaseURL: baseURL, Endpoint: "/social/stats", BadgeEndpoint: "/social/badges", MultiplierEligible: false},
	)
}

// Spec looks up a source. ok is false for sources outside the catalog.
func (c *Catalog) Spec(source id.SourceID) (SourceSpec, bool) {
	s, ok := c.specs[source]
	return s, ok
}

// MultiplierEligible reports whether deposits from the source receive
// the streak multiplier. Unknown sources are never eligible.
func (c *Catalog) MultiplierEligible(source id.SourceID) bool {
	s, ok := c.specs[source]
	return ok && s.MultiplierEligible
}

// Sources lists the catalog's source ids.
func (c *Catalog) Sources() []id.SourceID {
	out := make([]id.SourceID, 0, len(c.specs))
	for s := range c.specs {
		out = append(out, s)
	}
	return out
}
