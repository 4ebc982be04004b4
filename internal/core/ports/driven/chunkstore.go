package driven

import (
	"context"

	"github.com/reserca-labs/reserca-cli/internal/core/domain"
)

// ChunkStore persists corpus chunks and their parent documents.
// Reads must be safe under concurrent access; ReplaceChunks is the single
// operation requiring exclusivity, and only per document.
type ChunkStore interface {
	// ReplaceChunks atomically swaps the chunk set for a document.
	// Either the old set is removed and the new one fully in place, or
	// the call fails and the old set is left untouched. Concurrent
	// replacements of different documents must not block each other.
	ReplaceChunks(ctx context.Context, doc domain.Document, chunks []domain.Chunk) error

	// GetDocument retrieves document metadata by ID.
	// Returns domain.ErrNotFound if the document is not indexed.
	GetDocument(ctx context.Context, documentID string) (*domain.Document, error)

	// GetChunks returns the current chunk set for a document in position
	// order. Returns an empty slice for an unknown document.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// AllChunks returns every indexed chunk. Used by similarity lookup.
	AllChunks(ctx context.Context) ([]domain.Chunk, error)

	// ListDocuments returns metadata for all indexed documents.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// DeleteDocument removes a document and its chunks.
	DeleteDocument(ctx context.Context, documentID string) error

	// Close releases resources.
	Close() error
}
