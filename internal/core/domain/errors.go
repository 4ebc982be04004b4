package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured. Semantic lookup over the local corpus is disabled.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrIngestionFailed indicates every chunk of a document failed
	// embedding. The previously indexed chunk set, if any, is preserved.
	ErrIngestionFailed = errors.New("ingestion failed")

	// ErrNoEvidence indicates every source failed or returned empty.
	// Callers receive an empty, valid AssembledContext alongside it.
	ErrNoEvidence = errors.New("no evidence retrieved")

	// ErrRateLimited indicates an external API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)
