package mcp

import (
	"github.com/reserca-labs/reserca-cli/internal/core/ports/driven"
	"github.com/reserca-labs/reserca-cli/internal/core/ports/driving"
)

// Ports aggregates all port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retrieval answers queries with assembled context.
	Retrieval driving.RetrievalService

	// Ingest adds documents to the local corpus. Optional; without it
	// the ingest tool reports an error.
	Ingest driving.IngestService

	// Corpus exposes indexed documents as resources. Optional.
	Corpus driven.ChunkStore
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	// Ingest and Corpus are optional
	return nil
}
