// Package quarantine tracks sources barred from XP-mutating writes.
// The store is durable; the service layers a short-lived observation
// cache on top for read-heavy callers.
package quarantine

import (
	"context"

	"identity-dna/internal/domain"
	id "identity-dna/pkg/domain"
)

// Store persists quarantine entries keyed by source identifier.
type Store interface {
	// Get returns the entry for a source, sentinel.ErrNotFound if none.
	Get(ctx context.Context, source id.SourceID) (domain.QuarantineEntry, error)
	// Put inserts or replaces the entry for its source.
	Put(ctx context.Context, entry domain.QuarantineEntry) error
	// List returns every stored entry, active or lapsed.
	List(ctx context.Context) ([]domain.QuarantineEntry, error)
}
