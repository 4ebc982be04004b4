package driven

import "context"

// KeywordExtractor extracts salient search terms from free text, typically
// backed by a language-model service. It is optional: when nil, the query
// decomposer relies on its heuristic extraction.
//
// An extractor may fail or return unparseable output; the decomposer treats
// any error as a signal to fall back, never as a fatal condition.
type KeywordExtractor interface {
	// ExtractKeywords returns up to max salient terms, best first.
	ExtractKeywords(ctx context.Context, text string, max int) ([]string, error)
}
