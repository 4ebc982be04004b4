package domain

// SizeBudget bounds the total size of an assembled context, measured in
// bytes of evidence title + body text.
type SizeBudget int

// ContextItem is one evidence item included in an assembled context.
type ContextItem struct {
	// Evidence is the included item. Body may be truncated only in the
	// single-oversized-item case; provenance is never truncated.
	Evidence EvidenceItem

	// Truncated is true if the body was cut to fit the budget.
	Truncated bool
}

// AssembledContext is the budget-bounded, attributed evidence set handed
// to the generation layer. It is consumed once per retrieval request.
type AssembledContext struct {
	// Items is ordered by descending effective score.
	Items []ContextItem

	// Size is the total size of all included items in budget units.
	Size int

	// Budget is the configured limit the context was assembled under.
	Budget SizeBudget

	// Dropped is the number of ranked items that did not fit.
	Dropped int
}

// IsEmpty returns true if no evidence was included.
func (c AssembledContext) IsEmpty() bool {
	return len(c.Items) == 0
}
