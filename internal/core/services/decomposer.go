package services

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/reserca-labs/reserca-cli/internal/core/domain"
	"github.com/reserca-labs/reserca-cli/internal/core/ports/driven"
	"github.com/reserca-labs/reserca-cli/internal/logger"
)

// DefaultMaxKeywords is the keyword cap used when callers pass 0 or less.
const DefaultMaxKeywords = 8

// stopwords are high-frequency terms excluded from heuristic extraction.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "can": {}, "do": {}, "does": {}, "for": {},
	"from": {}, "how": {}, "in": {}, "is": {}, "it": {}, "of": {},
	"on": {}, "or": {}, "that": {}, "the": {}, "this": {}, "to": {},
	"what": {}, "when": {}, "where": {}, "which": {}, "why": {},
	"with": {},
}

// QueryDecomposer turns a free-text query into a ranked keyword set.
// Extraction is language-agnostic: runs of CJK text and runs of
// alphanumeric text become separate matchable fragments. An optional
// LLM-backed extractor refines the result; any extractor failure falls
// back to heuristic extraction, and heuristic failure falls back to the
// whole query as a single keyword. Decompose never fails observably.
type QueryDecomposer struct {
	extractor driven.KeywordExtractor
}

// NewQueryDecomposer creates a new decomposer.
// The extractor is optional (can be nil).
func NewQueryDecomposer(extractor driven.KeywordExtractor) *QueryDecomposer {
	return &QueryDecomposer{extractor: extractor}
}

// Decompose extracts up to maxKeywords weighted keywords from the query.
// The result always contains between 1 and maxKeywords entries, ordered by
// descending weight; equal-weight keywords retain their left-to-right order
// of appearance in the query.
func (d *QueryDecomposer) Decompose(ctx context.Context, query domain.Query, maxKeywords int) domain.KeywordSet {
	if maxKeywords < 1 {
		maxKeywords = DefaultMaxKeywords
	}

	raw := query.Text
	if query.IsEmpty() {
		logger.Debug("Decompose: empty query, using raw text as single keyword")
		return fallbackSet(raw)
	}

	if d.extractor != nil {
		if set, ok := d.extractWithAssist(ctx, raw, maxKeywords); ok {
			return set
		}
	}

	keywords := heuristicKeywords(raw, maxKeywords)
	if len(keywords) == 0 {
		return fallbackSet(raw)
	}

	return domain.KeywordSet{Keywords: keywords, Raw: raw}
}

// extractWithAssist tries the LLM-backed extractor. Failure or unusable
// output returns ok=false and is handled by the heuristic path.
func (d *QueryDecomposer) extractWithAssist(ctx context.Context, raw string, maxKeywords int) (domain.KeywordSet, bool) {
	terms, err := d.extractor.ExtractKeywords(ctx, raw, maxKeywords)
	if err != nil {
		logger.Warn("Decompose: keyword extractor failed: %v (falling back)", err)
		return domain.KeywordSet{}, false
	}

	keywords := make([]domain.Keyword, 0, maxKeywords)
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		// Rank order from the extractor maps to descending weights.
		weight := 1.0 - float64(len(keywords))*(0.5/float64(maxKeywords))
		keywords = append(keywords, domain.Keyword{Text: term, Weight: weight})
		if len(keywords) == maxKeywords {
			break
		}
	}

	if len(keywords) == 0 {
		logger.Warn("Decompose: keyword extractor returned no usable terms (falling back)")
		return domain.KeywordSet{}, false
	}

	logger.Debug("Decompose: extractor produced %d keywords", len(keywords))
	return domain.KeywordSet{Keywords: keywords, Raw: raw}, true
}

// fallbackSet wraps the whole query as a single full-weight keyword.
func fallbackSet(raw string) domain.KeywordSet {
	return domain.KeywordSet{
		Keywords: []domain.Keyword{{Text: raw, Weight: 1.0}},
		Raw:      raw,
	}
}

// heuristicKeywords extracts keywords without external help.
// The query is segmented into script runs so mixed-script input (e.g. CJK
// mixed with Latin) yields separate matchable fragments. Alphanumeric
// fragments are weighted by term frequency; CJK fragments keep full weight
// since they are not further segmented.
func heuristicKeywords(text string, maxKeywords int) []domain.Keyword {
	fragments := segmentScripts(text)

	type candidate struct {
		text     string
		weight   float64
		firstPos int
	}

	var candidates []candidate
	seen := make(map[string]int) // term -> candidate index
	maxCount := 1

	pos := 0
	for _, frag := range fragments {
		if frag.cjk {
			if _, ok := seen[frag.text]; !ok {
				seen[frag.text] = len(candidates)
				candidates = append(candidates, candidate{text: frag.text, weight: 1.0, firstPos: pos})
			}
			pos++
			continue
		}

		for _, word := range strings.Fields(frag.text) {
			term := strings.ToLower(strings.Trim(word, ".,;:!?()[]{}\"'"))
			if len(term) < 2 {
				pos++
				continue
			}
			if _, stop := stopwords[term]; stop {
				pos++
				continue
			}
			if idx, ok := seen[term]; ok {
				candidates[idx].weight++
				if int(candidates[idx].weight) > maxCount {
					maxCount = int(candidates[idx].weight)
				}
			} else {
				seen[term] = len(candidates)
				candidates = append(candidates, candidate{text: term, weight: 1.0, firstPos: pos})
			}
			pos++
		}
	}

	// Normalise frequency counts into [0,1].
	for i := range candidates {
		if !isCJKText(candidates[i].text) {
			candidates[i].weight /= float64(maxCount)
		} else {
			candidates[i].weight = 1.0
		}
	}

	// Descending weight; ties keep original appearance order.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].weight > candidates[j].weight
	})

	if len(candidates) > maxKeywords {
		candidates = candidates[:maxKeywords]
	}

	keywords := make([]domain.Keyword, len(candidates))
	for i, c := range candidates {
		keywords[i] = domain.Keyword{Text: c.text, Weight: c.weight}
	}
	return keywords
}

// fragment is one script-homogeneous run of the query.
type fragment struct {
	text string
	cjk  bool
}

// segmentScripts splits text into alternating CJK and non-CJK runs.
func segmentScripts(text string) []fragment {
	var fragments []fragment
	var current strings.Builder
	currentCJK := false

	flush := func() {
		s := strings.TrimSpace(current.String())
		if s != "" {
			fragments = append(fragments, fragment{text: s, cjk: currentCJK})
		}
		current.Reset()
	}

	for _, r := range text {
		rCJK := isCJK(r)
		if current.Len() > 0 && rCJK != currentCJK && !unicode.IsSpace(r) {
			flush()
		}
		if current.Len() == 0 {
			currentCJK = rCJK
		}
		current.WriteRune(r)
	}
	flush()

	return fragments
}

// isCJK reports whether a rune belongs to a CJK script.
func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}

// isCJKText reports whether a fragment starts with a CJK rune.
func isCJKText(s string) bool {
	for _, r := range s {
		return isCJK(r)
	}
	return false
}
