package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reserca-labs/reserca-cli/internal/core/domain"
	"github.com/reserca-labs/reserca-cli/internal/core/ports/driven"
)

// evidence builds a test item with a content-derived identity.
func evidence(source domain.SourceKind, title, body, ref string, native float64) domain.EvidenceItem {
	return domain.EvidenceItem{
		Identity:    domain.ContentIdentity(title, body),
		Source:      source,
		SourceName:  string(source),
		Title:       title,
		Body:        body,
		Reference:   ref,
		NativeScore: native,
		RetrievedAt: time.Now().UTC(),
	}
}

func fastConfig() AggregatorConfig {
	return AggregatorConfig{
		PerSourceTimeout: 500 * time.Millisecond,
		OverallTimeout:   time.Second,
	}
}

func newTestAggregator(adapters []driven.SourceAdapter, fallback driven.SourceAdapter, corpus *CorpusIndex, registry driven.MetadataRegistry, cfg AggregatorConfig) *Aggregator {
	return NewAggregator(NewQueryDecomposer(nil), adapters, fallback, corpus, registry, cfg)
}

func TestAggregate_MergesSourcesAndReports(t *testing.T) {
	lit := &mockAdapter{kind: domain.SourceLiterature, name: "lit", status: domain.StatusOkResult(), items: []domain.EvidenceItem{
		evidence(domain.SourceLiterature, "Paper A", "body a", "https://doi.org/a", 0.9),
		evidence(domain.SourceLiterature, "Paper B", "body b", "https://doi.org/b", 0.8),
	}}
	chem := &mockAdapter{kind: domain.SourceChemical, name: "chem", status: domain.StatusOkResult(), items: []domain.EvidenceItem{
		evidence(domain.SourceChemical, "Compound X", "body x", "https://pubchem.ncbi.nlm.nih.gov/x", 0.7),
	}}

	agg := newTestAggregator([]driven.SourceAdapter{lit, chem}, nil, nil, nil, fastConfig())

	items, report, err := agg.Aggregate(context.Background(), domain.Query{Text: "test query"})
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.Equal(t, 3, report.TotalItems)

	litReport, ok := report.ReportFor(domain.SourceLiterature)
	require.True(t, ok)
	assert.Equal(t, domain.StatusOk, litReport.Status.Code)
	assert.Equal(t, 2, litReport.Returned)
	assert.False(t, report.TotalFailure())
	assert.False(t, report.PartialFailure())
}

func TestAggregate_ScenarioTimeoutAndOverlap(t *testing.T) {
	// Source A returns 5, source B times out, source C returns 2 with one
	// overlapping A by identity: report shows A=Ok(5), B=Unavailable,
	// C=Ok(2); the final set has 6 items.
	aItems := make([]domain.EvidenceItem, 5)
	for i, title := range []string{"P1", "P2", "P3", "P4", "P5"} {
		aItems[i] = evidence(domain.SourceLiterature, title, "body "+title, "https://doi.org/"+title, 0.9-float64(i)*0.1)
	}
	cItems := []domain.EvidenceItem{
		evidence(domain.SourceChemical, "P1", "body P1", "https://pubchem.ncbi.nlm.nih.gov/p1", 0.95), // same identity as A's P1
		evidence(domain.SourceChemical, "Q1", "body Q1", "https://pubchem.ncbi.nlm.nih.gov/q1", 0.6),
	}

	cfg := fastConfig()
	cfg.PerSourceTimeout = 100 * time.Millisecond
	cfg.OverallTimeout = 300 * time.Millisecond
	cfg.MinResults = 1

	srcA := &mockAdapter{kind: domain.SourceLiterature, name: "A", items: aItems, status: domain.StatusOkResult()}
	srcB := &mockAdapter{kind: domain.SourceWebSearch, name: "B", delay: 5 * time.Second}
	srcC := &mockAdapter{kind: domain.SourceChemical, name: "C", items: cItems, status: domain.StatusOkResult()}

	agg := newTestAggregator([]driven.SourceAdapter{srcA, srcB, srcC}, nil, nil, nil, cfg)

	items, report, err := agg.Aggregate(context.Background(), domain.Query{Text: "CO2 capture MOF"})
	require.NoError(t, err)
	assert.Len(t, items, 6)

	aReport, _ := report.ReportFor(domain.SourceLiterature)
	assert.Equal(t, domain.StatusOk, aReport.Status.Code)
	assert.Equal(t, 5, aReport.Returned)

	bReport, _ := report.ReportFor(domain.SourceWebSearch)
	assert.Equal(t, domain.StatusUnavailable, bReport.Status.Code)
	assert.Equal(t, "timeout", bReport.Status.Reason)

	cReport, _ := report.ReportFor(domain.SourceChemical)
	assert.Equal(t, domain.StatusOk, cReport.Status.Code)
	assert.Equal(t, 2, cReport.Returned)

	assert.True(t, report.PartialFailure())
}

func TestAggregate_DuplicateIdentityKeepsHighestScore(t *testing.T) {
	// Same identity from two sources; chemical has the higher native score
	// but equal priority, so the higher effective score survives.
	shared := evidence(domain.SourceLiterature, "Shared Paper", "same body", "https://doi.org/s", 0.5)
	better := evidence(domain.SourceChemical, "Shared Paper", "same body", "https://pubchem.ncbi.nlm.nih.gov/s", 0.9)
	require.Equal(t, shared.Identity, better.Identity)

	lit := &mockAdapter{kind: domain.SourceLiterature, name: "lit", items: []domain.EvidenceItem{shared}, status: domain.StatusOkResult()}
	chem := &mockAdapter{kind: domain.SourceChemical, name: "chem", items: []domain.EvidenceItem{better}, status: domain.StatusOkResult()}

	agg := newTestAggregator([]driven.SourceAdapter{lit, chem}, nil, nil, nil, fastConfig())

	items, _, err := agg.Aggregate(context.Background(), domain.Query{Text: "q"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, domain.SourceChemical, items[0].Source)
}

func TestAggregate_DuplicateScoreTieKeepsHigherPrioritySource(t *testing.T) {
	cfg := fastConfig()
	cfg.Priorities = map[domain.SourceKind]float64{
		domain.SourceLiterature: 0.8,
		domain.SourceWebSearch:  0.8, // equal effective score on purpose
	}

	litItem := evidence(domain.SourceLiterature, "Tied", "tied body", "https://doi.org/t", 0.5)
	webItem := evidence(domain.SourceWebSearch, "Tied", "tied body", "https://example.com/t", 0.5)

	lit := &mockAdapter{kind: domain.SourceLiterature, name: "lit", items: []domain.EvidenceItem{litItem}, status: domain.StatusOkResult()}
	web := &mockAdapter{kind: domain.SourceWebSearch, name: "web", items: []domain.EvidenceItem{webItem}, status: domain.StatusOkResult()}

	agg := newTestAggregator([]driven.SourceAdapter{web, lit}, nil, nil, nil, cfg)

	items, _, err := agg.Aggregate(context.Background(), domain.Query{Text: "q"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	// Effective scores tie; priority preference is taken from the
	// configured weights, which tie too, so the incumbent is kept.
	assert.Equal(t, domain.SourceWebSearch, items[0].Source)
}

func TestAggregate_NearDuplicateTitleSameDomainCollapses(t *testing.T) {
	first := evidence(domain.SourceLiterature, "CO2 Capture in Metal-Organic Frameworks", "body one", "https://doi.org/1", 0.9)
	second := evidence(domain.SourceLiterature, "CO2 capture in metal organic frameworks!", "body two", "https://doi.org/2", 0.5)
	require.NotEqual(t, first.Identity, second.Identity)

	lit := &mockAdapter{kind: domain.SourceLiterature, name: "lit", items: []domain.EvidenceItem{first, second}, status: domain.StatusOkResult()}

	agg := newTestAggregator([]driven.SourceAdapter{lit}, nil, nil, nil, fastConfig())

	items, _, err := agg.Aggregate(context.Background(), domain.Query{Text: "q"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "body one", items[0].Body)
}

func TestAggregate_NearDuplicateTitleDifferentDomainKept(t *testing.T) {
	first := evidence(domain.SourceLiterature, "Perovskite Stability", "body one", "https://doi.org/1", 0.9)
	second := evidence(domain.SourceWebSearch, "Perovskite Stability", "body two", "https://example.com/2", 0.5)

	lit := &mockAdapter{kind: domain.SourceLiterature, name: "lit", items: []domain.EvidenceItem{first}, status: domain.StatusOkResult()}
	web := &mockAdapter{kind: domain.SourceWebSearch, name: "web", items: []domain.EvidenceItem{second}, status: domain.StatusOkResult()}

	agg := newTestAggregator([]driven.SourceAdapter{lit, web}, nil, nil, nil, fastConfig())

	items, _, err := agg.Aggregate(context.Background(), domain.Query{Text: "q"})
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestAggregate_FallbackTriggeredWhenTooFewResults(t *testing.T) {
	cfg := fastConfig()
	cfg.MinResults = 3

	lit := &mockAdapter{kind: domain.SourceLiterature, name: "lit", items: []domain.EvidenceItem{
		evidence(domain.SourceLiterature, "Only Paper", "body", "https://doi.org/1", 0.9),
	}, status: domain.StatusOkResult()}
	fallback := &mockAdapter{kind: domain.SourceWebSearch, name: "web", items: []domain.EvidenceItem{
		evidence(domain.SourceWebSearch, "Web Hit", "web body", "https://example.com/1", 0.8),
	}, status: domain.StatusOkResult()}

	agg := newTestAggregator([]driven.SourceAdapter{lit}, fallback, nil, nil, cfg)

	items, report, err := agg.Aggregate(context.Background(), domain.Query{Text: "q"})
	require.NoError(t, err)
	assert.True(t, report.FallbackTriggered)
	assert.Equal(t, 1, fallback.callCount())
	assert.Len(t, items, 2)

	webReport, ok := report.ReportFor(domain.SourceWebSearch)
	require.True(t, ok)
	assert.Equal(t, 1, webReport.Returned)
}

func TestAggregate_FallbackSkippedWhenEnoughResults(t *testing.T) {
	cfg := fastConfig()
	cfg.MinResults = 2

	lit := &mockAdapter{kind: domain.SourceLiterature, name: "lit", items: []domain.EvidenceItem{
		evidence(domain.SourceLiterature, "Paper A", "a", "https://doi.org/a", 0.9),
		evidence(domain.SourceLiterature, "Paper B", "b", "https://doi.org/b", 0.8),
	}, status: domain.StatusOkResult()}
	fallback := &mockAdapter{kind: domain.SourceWebSearch, name: "web", status: domain.StatusOkResult()}

	agg := newTestAggregator([]driven.SourceAdapter{lit}, fallback, nil, nil, cfg)

	_, report, err := agg.Aggregate(context.Background(), domain.Query{Text: "q"})
	require.NoError(t, err)
	assert.False(t, report.FallbackTriggered)
	assert.Zero(t, fallback.callCount())
	_, ok := report.ReportFor(domain.SourceWebSearch)
	assert.False(t, ok)
}

func TestAggregate_AllSourcesUnavailableIsNotAnError(t *testing.T) {
	down := domain.StatusUnavailableFor("connection refused")
	a := &mockAdapter{kind: domain.SourceLiterature, name: "a", status: down}
	b := &mockAdapter{kind: domain.SourceChemical, name: "b", status: down}
	fallback := &mockAdapter{kind: domain.SourceWebSearch, name: "c", status: down}

	agg := newTestAggregator([]driven.SourceAdapter{a, b}, fallback, nil, nil, fastConfig())

	items, report, err := agg.Aggregate(context.Background(), domain.Query{Text: "q"})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.True(t, report.TotalFailure())
	assert.True(t, report.FallbackTriggered)
}

func TestAggregate_RankingBlendsPriorityWithNativeScore(t *testing.T) {
	// A mid-confidence literature hit must outrank a high-confidence
	// generic web hit under default priorities (0.8 vs 0.5).
	litItem := evidence(domain.SourceLiterature, "Domain Hit", "lit body", "https://doi.org/1", 0.7)
	webItem := evidence(domain.SourceWebSearch, "Generic Hit", "web body", "https://example.com/1", 0.95)

	cfg := fastConfig()
	cfg.MinResults = 10 // force the fallback phase

	lit := &mockAdapter{kind: domain.SourceLiterature, name: "lit", items: []domain.EvidenceItem{litItem}, status: domain.StatusOkResult()}
	web := &mockAdapter{kind: domain.SourceWebSearch, name: "web", items: []domain.EvidenceItem{webItem}, status: domain.StatusOkResult()}

	agg := newTestAggregator([]driven.SourceAdapter{lit}, web, nil, nil, cfg)

	items, _, err := agg.Aggregate(context.Background(), domain.Query{Text: "q"})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, domain.SourceLiterature, items[0].Source)
	assert.InDelta(t, 0.7*0.8, items[0].Score, 1e-9)
	assert.InDelta(t, 0.95*0.5, items[1].Score, 1e-9)
}

func TestAggregate_RegistryTagsSeenAndNew(t *testing.T) {
	registry := newMockRegistry()
	item := evidence(domain.SourceLiterature, "Repeat Paper", "same body", "https://doi.org/r", 0.9)

	lit := &mockAdapter{kind: domain.SourceLiterature, name: "lit", items: []domain.EvidenceItem{item}, status: domain.StatusOkResult()}
	agg := newTestAggregator([]driven.SourceAdapter{lit}, nil, nil, registry, fastConfig())

	items, _, err := agg.Aggregate(context.Background(), domain.Query{Text: "q"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.False(t, items[0].Seen, "first sighting is new")

	items, _, err = agg.Aggregate(context.Background(), domain.Query{Text: "q"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].Seen, "second sighting was previously recorded")

	count, err := registry.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestAggregate_LocalCorpusParticipates(t *testing.T) {
	store := newMockChunkStore()
	embedder := newMockEmbedder()
	corpus := NewCorpusIndex(store, embedder, nil)

	_, err := corpus.IngestDocument(context.Background(), "notes", "My Notes", "solid sorbents capture carbon dioxide effectively")
	require.NoError(t, err)

	lit := &mockAdapter{kind: domain.SourceLiterature, name: "lit", items: []domain.EvidenceItem{
		evidence(domain.SourceLiterature, "Paper", "paper body", "https://doi.org/p", 0.4),
	}, status: domain.StatusOkResult()}

	agg := newTestAggregator([]driven.SourceAdapter{lit}, nil, corpus, nil, fastConfig())

	items, report, err := agg.Aggregate(context.Background(), domain.Query{Text: "solid sorbents capture carbon dioxide effectively"})
	require.NoError(t, err)

	localReport, ok := report.ReportFor(domain.SourceLocal)
	require.True(t, ok)
	assert.Equal(t, domain.StatusOk, localReport.Status.Code)
	assert.Equal(t, 1, localReport.Returned)

	require.Len(t, items, 2)
	// Identical text embeds identically: cosine 1.0 at priority 1.0
	// beats the external item.
	assert.Equal(t, domain.SourceLocal, items[0].Source)
}

func TestAggregate_DeterministicOrderingAcrossTimings(t *testing.T) {
	itemsA := []domain.EvidenceItem{evidence(domain.SourceLiterature, "Paper A", "a", "https://doi.org/a", 0.8)}
	itemsB := []domain.EvidenceItem{evidence(domain.SourceChemical, "Compound B", "b", "https://pubchem.ncbi.nlm.nih.gov/b", 0.8)}

	run := func(delayA, delayB time.Duration) []string {
		a := &mockAdapter{kind: domain.SourceLiterature, name: "a", items: itemsA, status: domain.StatusOkResult(), delay: delayA}
		b := &mockAdapter{kind: domain.SourceChemical, name: "b", items: itemsB, status: domain.StatusOkResult(), delay: delayB}
		agg := newTestAggregator([]driven.SourceAdapter{a, b}, nil, nil, nil, fastConfig())

		items, _, err := agg.Aggregate(context.Background(), domain.Query{Text: "q"})
		require.NoError(t, err)
		ids := make([]string, len(items))
		for i, item := range items {
			ids[i] = item.Identity
		}
		return ids
	}

	first := run(50*time.Millisecond, 0)
	second := run(0, 50*time.Millisecond)
	assert.Equal(t, first, second, "ordering must not depend on response timing")
}
