package domain

import "strings"

// Query represents one retrieval request. It is immutable once created
// and lives for the duration of a single retrieval.
type Query struct {
	// Text is the raw user query.
	Text string

	// Language is a BCP 47 language tag hint (e.g., "en", "zh").
	// Empty means unknown.
	Language string

	// DomainHint optionally biases source selection
	// (e.g., "chemical", "literature").
	DomainHint string
}

// IsEmpty returns true if the query carries no searchable text.
func (q Query) IsEmpty() bool {
	return strings.TrimSpace(q.Text) == ""
}

// Keyword is a single extracted search term or phrase.
type Keyword struct {
	// Text is the term or phrase.
	Text string

	// Weight is the estimated relevance in [0,1].
	Weight float64
}

// KeywordSet is an ordered sequence of keywords, highest relevance first.
// Equal-weight keywords retain their left-to-right order of appearance
// in the original query.
type KeywordSet struct {
	// Keywords is ordered by descending weight.
	Keywords []Keyword

	// Raw is the query text the set was derived from.
	Raw string
}

// Terms returns the keyword texts in rank order.
func (ks KeywordSet) Terms() []string {
	terms := make([]string, len(ks.Keywords))
	for i, kw := range ks.Keywords {
		terms[i] = kw.Text
	}
	return terms
}

// Joined returns the keywords joined into a single query string.
func (ks KeywordSet) Joined() string {
	return strings.Join(ks.Terms(), " ")
}

// IsEmpty returns true if the set contains no keywords.
func (ks KeywordSet) IsEmpty() bool {
	return len(ks.Keywords) == 0
}
