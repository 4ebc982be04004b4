package driven

import (
	"context"

	"github.com/reserca-labs/reserca-cli/internal/core/domain"
)

// MetadataRegistry is the process-wide index of previously seen content
// identities. It is shared across concurrent aggregation calls, so
// implementations must be safe for concurrent lookups and inserts.
//
// Entries are never evicted within a process lifetime.
type MetadataRegistry interface {
	// Lookup returns the entry for an identity, or domain.ErrNotFound.
	Lookup(ctx context.Context, identity string) (*domain.RegistryEntry, error)

	// Record registers an identity on first sight. Recording an identity
	// that already exists is a no-op; the original entry is preserved.
	// Returns true if the identity was newly recorded.
	Record(ctx context.Context, entry domain.RegistryEntry) (bool, error)

	// Count returns the number of recorded identities.
	Count(ctx context.Context) (int, error)

	// Close releases resources.
	Close() error
}
