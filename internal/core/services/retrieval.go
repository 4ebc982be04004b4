package services

import (
	"context"
	"fmt"

	"github.com/reserca-labs/reserca-cli/internal/core/domain"
	"github.com/reserca-labs/reserca-cli/internal/core/ports/driving"
	"github.com/reserca-labs/reserca-cli/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// RetrievalService is the outward-facing retrieval entry point. It runs
// the aggregation pipeline and assembles the result into a budget-bounded,
// attributed context for the generation layer.
type RetrievalService struct {
	aggregator *Aggregator
}

// NewRetrievalService creates a new retrieval service.
func NewRetrievalService(aggregator *Aggregator) *RetrievalService {
	return &RetrievalService{aggregator: aggregator}
}

// Retrieve answers one query within the given size budget.
//
// Source failures never surface as errors: the caller always receives a
// valid (possibly empty) context plus a report describing per-source
// outcomes, so a UI can say "search partially failed" instead of crashing.
func (s *RetrievalService) Retrieve(ctx context.Context, queryText, languageHint string, budget domain.SizeBudget) (domain.AssembledContext, domain.AggregationReport, error) {
	query := domain.Query{Text: queryText, Language: languageHint}

	items, report, err := s.aggregator.Aggregate(ctx, query)
	if err != nil {
		return domain.AssembledContext{Budget: budget}, report, fmt.Errorf("retrieve: %w", err)
	}

	assembled := AssembleContext(items, budget)
	if assembled.IsEmpty() && report.TotalFailure() {
		logger.Info("Retrieve: no evidence from any source")
	}
	return assembled, report, nil
}
