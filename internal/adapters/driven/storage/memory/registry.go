package memory

import (
	"context"
	"sync"
	"time"

	"github.com/reserca-labs/reserca-cli/internal/core/domain"
	"github.com/reserca-labs/reserca-cli/internal/core/ports/driven"
)

// Ensure MetadataRegistry implements the interface.
var _ driven.MetadataRegistry = (*MetadataRegistry)(nil)

// MetadataRegistry is an in-memory implementation of driven.MetadataRegistry.
type MetadataRegistry struct {
	mu      sync.RWMutex
	entries map[string]domain.RegistryEntry
}

// NewMetadataRegistry creates a new in-memory metadata registry.
func NewMetadataRegistry() *MetadataRegistry {
	return &MetadataRegistry{
		entries: make(map[string]domain.RegistryEntry),
	}
}

// Lookup returns the entry for an identity.
func (r *MetadataRegistry) Lookup(_ context.Context, identity string) (*domain.RegistryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[identity]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &entry, nil
}

// Record registers an identity on first sight. An existing entry is
// preserved untouched.
func (r *MetadataRegistry) Record(_ context.Context, entry domain.RegistryEntry) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[entry.Identity]; exists {
		return false, nil
	}
	if entry.FirstSeen.IsZero() {
		entry.FirstSeen = time.Now().UTC()
	}
	r.entries[entry.Identity] = entry
	return true, nil
}

// Count returns the number of recorded identities.
func (r *MetadataRegistry) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries), nil
}

// Close releases resources.
func (r *MetadataRegistry) Close() error {
	return nil
}
