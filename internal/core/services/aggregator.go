package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/reserca-labs/reserca-cli/internal/core/domain"
	"github.com/reserca-labs/reserca-cli/internal/core/ports/driven"
	"github.com/reserca-labs/reserca-cli/internal/logger"
)

// Default aggregation configuration values.
const (
	DefaultPerSourceTimeout = 10 * time.Second
	DefaultOverallTimeout   = 20 * time.Second
	DefaultPerSourceLimit   = 10
	DefaultLocalTopK        = 5
	DefaultMinResults       = 3
	DefaultTitleSimilarity  = 0.85
)

// DefaultPriorities weights sources for ranking and duplicate tie-breaks:
// local corpus > domain-specific adapters > fallback web search.
func DefaultPriorities() map[domain.SourceKind]float64 {
	return map[domain.SourceKind]float64{
		domain.SourceLocal:      1.0,
		domain.SourceLiterature: 0.8,
		domain.SourceChemical:   0.8,
		domain.SourceWebSearch:  0.5,
	}
}

// AggregatorConfig tunes one aggregation call. Zero values fall back to
// the defaults above.
type AggregatorConfig struct {
	// PerSourceTimeout bounds each adapter call and the local lookup.
	PerSourceTimeout time.Duration

	// OverallTimeout bounds the whole aggregation, both phases.
	OverallTimeout time.Duration

	// PerSourceLimit bounds result count per external source.
	PerSourceLimit int

	// LocalTopK bounds results from the local corpus index.
	LocalTopK int

	// MinResults is the phase-1 result count below which the fallback
	// web-search adapter is consulted.
	MinResults int

	// MaxKeywords caps query decomposition.
	MaxKeywords int

	// Priorities maps source kinds to ranking weights in (0,1].
	Priorities map[domain.SourceKind]float64

	// TitleSimilarity is the near-duplicate title threshold in (0,1].
	TitleSimilarity float64
}

// withDefaults fills unset fields.
func (c AggregatorConfig) withDefaults() AggregatorConfig {
	if c.PerSourceTimeout <= 0 {
		c.PerSourceTimeout = DefaultPerSourceTimeout
	}
	if c.OverallTimeout <= 0 {
		c.OverallTimeout = DefaultOverallTimeout
	}
	if c.PerSourceLimit <= 0 {
		c.PerSourceLimit = DefaultPerSourceLimit
	}
	if c.LocalTopK <= 0 {
		c.LocalTopK = DefaultLocalTopK
	}
	if c.MinResults <= 0 {
		c.MinResults = DefaultMinResults
	}
	if c.MaxKeywords <= 0 {
		c.MaxKeywords = DefaultMaxKeywords
	}
	if c.Priorities == nil {
		c.Priorities = DefaultPriorities()
	}
	if c.TitleSimilarity <= 0 || c.TitleSimilarity > 1 {
		c.TitleSimilarity = DefaultTitleSimilarity
	}
	return c
}

// Aggregator orchestrates one retrieval: query decomposition, concurrent
// fan-out to source adapters and the local corpus index, deduplication,
// and ranking. Source failures never fail the aggregation; outcomes are
// reported per source in the AggregationReport.
type Aggregator struct {
	decomposer *QueryDecomposer
	adapters   []driven.SourceAdapter
	fallback   driven.SourceAdapter
	corpus     *CorpusIndex
	registry   driven.MetadataRegistry
	cfg        AggregatorConfig
}

// NewAggregator creates a new aggregator.
// corpus, fallback, and registry are optional (can be nil); adapters holds
// the domain-specific sources consulted in phase 1.
func NewAggregator(
	decomposer *QueryDecomposer,
	adapters []driven.SourceAdapter,
	fallback driven.SourceAdapter,
	corpus *CorpusIndex,
	registry driven.MetadataRegistry,
	cfg AggregatorConfig,
) *Aggregator {
	return &Aggregator{
		decomposer: decomposer,
		adapters:   adapters,
		fallback:   fallback,
		corpus:     corpus,
		registry:   registry,
		cfg:        cfg.withDefaults(),
	}
}

// sourceResult is one source's contribution collected during fan-out.
type sourceResult struct {
	kind   domain.SourceKind
	items  []domain.EvidenceItem
	status domain.AdapterStatus
}

// Aggregate runs the full aggregation for one query.
//
// The returned items are deduplicated and ordered by descending effective
// score; ordering depends only on scores and identities, never on which
// source answered first. Total source failure returns an empty slice and
// a report flagging it, not an error.
func (a *Aggregator) Aggregate(ctx context.Context, query domain.Query) ([]domain.EvidenceItem, domain.AggregationReport, error) {
	logger.Section("Aggregation")

	keywords := a.decomposer.Decompose(ctx, query, a.cfg.MaxKeywords)
	logger.Debug("Aggregate: %d keywords: %v", len(keywords.Keywords), keywords.Terms())

	overall, cancel := context.WithTimeout(ctx, a.cfg.OverallTimeout)
	defer cancel()

	// Phase 1: domain adapters + local corpus, concurrently.
	results := a.fanOut(overall, query, keywords)

	var report domain.AggregationReport
	var merged []domain.EvidenceItem
	for _, res := range results {
		report.Sources = append(report.Sources, domain.SourceReport{
			Source:   res.kind,
			Status:   res.status,
			Returned: len(res.items),
		})
		merged = append(merged, res.items...)
	}

	// Phase 2: conditional fallback when domain sources came up short.
	if a.fallback != nil && len(merged) < a.cfg.MinResults {
		logger.Info("Aggregate: %d phase-1 items < %d, consulting fallback", len(merged), a.cfg.MinResults)
		report.FallbackTriggered = true

		res := a.callAdapter(overall, a.fallback, keywords)
		report.Sources = append(report.Sources, domain.SourceReport{
			Source:   res.kind,
			Status:   res.status,
			Returned: len(res.items),
		})
		merged = append(merged, res.items...)
	}

	a.tagSeen(ctx, merged)

	items := a.rank(a.deduplicate(merged))
	report.TotalItems = len(items)

	if report.TotalFailure() {
		logger.Warn("Aggregate: total failure, no evidence from any source")
	}
	logger.Info("Aggregate: %d items after dedup and ranking", len(items))
	return items, report, nil
}

// fanOut runs every phase-1 source concurrently, each under its own
// timeout, and collects whatever arrived when the overall deadline
// elapses. Sources still in flight at the deadline are reported as
// Unavailable(timeout) and abandoned; their goroutines write into a
// buffered channel so they never block the caller.
func (a *Aggregator) fanOut(ctx context.Context, query domain.Query, keywords domain.KeywordSet) []sourceResult {
	type pending struct {
		kind domain.SourceKind
		run  func(context.Context) sourceResult
	}

	var sources []pending
	if a.corpus != nil && a.corpus.Embedder() != nil {
		sources = append(sources, pending{
			kind: domain.SourceLocal,
			run:  func(cctx context.Context) sourceResult { return a.localLookup(cctx, query) },
		})
	}
	for _, adapter := range a.adapters {
		adapter := adapter
		sources = append(sources, pending{
			kind: adapter.Kind(),
			run:  func(cctx context.Context) sourceResult { return a.callAdapter(cctx, adapter, keywords) },
		})
	}

	resultCh := make(chan sourceResult, len(sources))
	for _, src := range sources {
		src := src
		go func() {
			callCtx, cancel := context.WithTimeout(ctx, a.cfg.PerSourceTimeout)
			defer cancel()
			resultCh <- src.run(callCtx)
		}()
	}

	received := make(map[domain.SourceKind]sourceResult, len(sources))
	for len(received) < len(sources) {
		select {
		case res := <-resultCh:
			received[res.kind] = res
			continue
		case <-ctx.Done():
		}

		// Deadline elapsed: keep anything already delivered, abandon
		// whatever is still in flight.
		for drained := false; !drained; {
			select {
			case res := <-resultCh:
				received[res.kind] = res
			default:
				drained = true
			}
		}
		break
	}

	// Preserve the configured source order in the report so output is
	// deterministic regardless of response timing.
	results := make([]sourceResult, 0, len(sources))
	for _, src := range sources {
		if res, ok := received[src.kind]; ok {
			results = append(results, res)
			continue
		}
		logger.Warn("Aggregate: source %s missed the deadline", src.kind)
		results = append(results, sourceResult{
			kind:   src.kind,
			status: domain.StatusUnavailableFor("timeout"),
		})
	}
	return results
}

// callAdapter invokes one source adapter under the per-source context.
func (a *Aggregator) callAdapter(ctx context.Context, adapter driven.SourceAdapter, keywords domain.KeywordSet) sourceResult {
	callCtx, cancel := context.WithTimeout(ctx, a.cfg.PerSourceTimeout)
	defer cancel()

	items, status := adapter.Search(callCtx, keywords, a.cfg.PerSourceLimit)
	logger.Debug("Aggregate: %s returned %d items, status %s", adapter.Name(), len(items), status.Code)
	return sourceResult{kind: adapter.Kind(), items: items, status: status}
}

// localLookup embeds the raw query and searches the corpus index.
func (a *Aggregator) localLookup(ctx context.Context, query domain.Query) sourceResult {
	embedding, err := a.corpus.Embedder().Embed(ctx, query.Text)
	if err != nil {
		logger.Warn("Aggregate: query embedding failed: %v", err)
		return sourceResult{
			kind:   domain.SourceLocal,
			status: domain.StatusUnavailableFor("query embedding failed"),
		}
	}

	items, err := a.corpus.Lookup(ctx, embedding, a.cfg.LocalTopK)
	if err != nil {
		logger.Warn("Aggregate: local lookup failed: %v", err)
		return sourceResult{
			kind:   domain.SourceLocal,
			status: domain.StatusUnavailableFor("corpus lookup failed"),
		}
	}
	return sourceResult{kind: domain.SourceLocal, items: items, status: domain.StatusOkResult()}
}

// tagSeen marks items previously recorded in the metadata registry and
// records first sightings. Registry failures only cost the tag.
func (a *Aggregator) tagSeen(ctx context.Context, items []domain.EvidenceItem) {
	if a.registry == nil {
		return
	}
	for i := range items {
		created, err := a.registry.Record(ctx, domain.RegistryEntry{
			Identity:  items[i].Identity,
			Source:    items[i].Source,
			FirstSeen: items[i].RetrievedAt,
		})
		if err != nil {
			logger.Warn("Aggregate: registry record failed for %s: %v", items[i].Identity, err)
			continue
		}
		items[i].Seen = !created
	}
}

// deduplicate collapses items sharing a stable identity, then items whose
// normalised titles are near-identical within the same reference domain.
// The survivor is the item with the higher effective score; score ties go
// to the higher-priority source.
func (a *Aggregator) deduplicate(items []domain.EvidenceItem) []domain.EvidenceItem {
	for i := range items {
		items[i].Score = items[i].NativeScore * a.priority(items[i].Source)
	}

	// Primary rule: stable identity.
	byIdentity := make(map[string]int, len(items))
	var unique []domain.EvidenceItem
	for _, item := range items {
		idx, ok := byIdentity[item.Identity]
		if !ok {
			byIdentity[item.Identity] = len(unique)
			unique = append(unique, item)
			continue
		}
		if a.prefer(item, unique[idx]) {
			unique[idx] = item
		}
	}

	// Secondary rule: near-duplicate titles from the same domain.
	var deduped []domain.EvidenceItem
	for _, item := range unique {
		matched := -1
		for i := range deduped {
			if referenceDomain(item.Reference) != referenceDomain(deduped[i].Reference) {
				continue
			}
			if titleSimilarity(item.Title, deduped[i].Title) >= a.cfg.TitleSimilarity {
				matched = i
				break
			}
		}
		if matched < 0 {
			deduped = append(deduped, item)
			continue
		}
		if a.prefer(item, deduped[matched]) {
			deduped[matched] = item
		}
	}
	return deduped
}

// prefer reports whether candidate should replace incumbent among
// duplicates.
func (a *Aggregator) prefer(candidate, incumbent domain.EvidenceItem) bool {
	if candidate.Score != incumbent.Score {
		return candidate.Score > incumbent.Score
	}
	return a.priority(candidate.Source) > a.priority(incumbent.Source)
}

// rank orders items by descending effective score. Identity breaks exact
// score ties so the ordering is deterministic for identical inputs.
func (a *Aggregator) rank(items []domain.EvidenceItem) []domain.EvidenceItem {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].Identity < items[j].Identity
	})
	return items
}

// priority returns the configured weight for a source kind.
func (a *Aggregator) priority(kind domain.SourceKind) float64 {
	if w, ok := a.cfg.Priorities[kind]; ok && w > 0 {
		return w
	}
	return 0.5
}

// referenceDomain extracts the host part of a reference URL.
func referenceDomain(reference string) string {
	rest := reference
	if idx := strings.Index(rest, "://"); idx >= 0 {
		rest = rest[idx+3:]
	}
	if idx := strings.IndexAny(rest, "/?#"); idx >= 0 {
		rest = rest[:idx]
	}
	return strings.ToLower(rest)
}

// titleSimilarity is the Jaccard similarity of normalised title tokens.
func titleSimilarity(a, b string) float64 {
	tokensA := strings.Fields(domain.NormaliseTitle(a))
	tokensB := strings.Fields(domain.NormaliseTitle(b))
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(tokensA))
	for _, tok := range tokensA {
		setA[tok] = struct{}{}
	}
	setB := make(map[string]struct{}, len(tokensB))
	for _, tok := range tokensB {
		setB[tok] = struct{}{}
	}

	intersection := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}
