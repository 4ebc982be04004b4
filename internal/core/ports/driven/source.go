package driven

import (
	"context"

	"github.com/reserca-labs/reserca-cli/internal/core/domain"
)

// SourceAdapter wraps exactly one external search capability behind a
// uniform contract. Each concrete adapter builds the source-specific query
// from the keyword set, calls the source, and normalises whatever shape it
// returns into EvidenceItems.
//
// Adapters never return errors to the aggregator: every failure mode is
// folded into the AdapterStatus. A source returning zero results is Ok
// with an empty slice, not a failure. The per-source timeout arrives as a
// context deadline; adapters must honour cancellation promptly.
//
// Adapters must not retry indefinitely: at most one internal retry on a
// transient network failure, then Unavailable.
type SourceAdapter interface {
	// Kind returns the source classification used for priority weighting.
	Kind() domain.SourceKind

	// Name returns the display name used for attribution (e.g., "Crossref").
	Name() string

	// Search queries the source and normalises results.
	// limit bounds the result count for this source only.
	Search(ctx context.Context, keywords domain.KeywordSet, limit int) ([]domain.EvidenceItem, domain.AdapterStatus)
}
