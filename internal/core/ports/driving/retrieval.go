package driving

import (
	"context"

	"github.com/reserca-labs/reserca-cli/internal/core/domain"
)

// RetrievalService is the single outward entry point for answering a query.
// It runs the full pipeline: decompose, fan out, aggregate, assemble.
type RetrievalService interface {
	// Retrieve answers one query within the given size budget.
	// The report is always populated, including on total source failure;
	// in that case the context is empty and valid, not an error.
	Retrieve(ctx context.Context, queryText, languageHint string, budget domain.SizeBudget) (domain.AssembledContext, domain.AggregationReport, error)
}

// IngestService is the single outward entry point for adding documents
// to the local corpus index.
type IngestService interface {
	// IngestDocument chunks, embeds, and indexes pre-extracted plain text
	// under a stable document identifier. Re-ingesting the same identifier
	// atomically replaces the previous chunk set.
	IngestDocument(ctx context.Context, documentID, title, text string) (domain.IngestResult, error)
}
