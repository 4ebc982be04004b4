package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/reserca-labs/reserca-cli/internal/chunker"
	"github.com/reserca-labs/reserca-cli/internal/core/domain"
	"github.com/reserca-labs/reserca-cli/internal/core/ports/driven"
	"github.com/reserca-labs/reserca-cli/internal/core/ports/driving"
	"github.com/reserca-labs/reserca-cli/internal/logger"
)

// Ensure CorpusIndex implements the interface.
var _ driving.IngestService = (*CorpusIndex)(nil)

// CorpusIndex is the local corpus index: it ingests pre-extracted document
// text into embedded chunks and serves nearest-neighbour lookups over them.
//
// The index is shared across concurrent retrievals. Reads run concurrently;
// chunk replacement takes an exclusive lock per document ID only, so
// ingestions of different documents do not block each other.
type CorpusIndex struct {
	store    driven.ChunkStore
	embedder driven.EmbeddingService
	splitter *chunker.Chunker

	mu       sync.Mutex
	docLocks map[string]*sync.Mutex
}

// NewCorpusIndex creates a new corpus index.
// The embedder is optional (can be nil); without it, ingestion and lookup
// report domain.ErrEmbeddingUnavailable.
func NewCorpusIndex(store driven.ChunkStore, embedder driven.EmbeddingService, splitter *chunker.Chunker) *CorpusIndex {
	if splitter == nil {
		splitter = chunker.New()
	}
	return &CorpusIndex{
		store:    store,
		embedder: embedder,
		splitter: splitter,
		docLocks: make(map[string]*sync.Mutex),
	}
}

// IngestDocument chunks, embeds, and indexes one document, atomically
// replacing any previous chunk set for the same document ID.
//
// Embedding failure for an individual chunk excludes that chunk and is
// reported as partial; if every chunk fails, nothing is written and the
// previous chunk set survives.
func (c *CorpusIndex) IngestDocument(ctx context.Context, documentID, title, text string) (domain.IngestResult, error) {
	failed := domain.IngestResult{DocumentID: documentID, Status: domain.IngestFailed}

	if strings.TrimSpace(documentID) == "" {
		return failed, fmt.Errorf("ingest: document ID: %w", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(text) == "" {
		return failed, fmt.Errorf("ingest %s: empty text: %w", documentID, domain.ErrInvalidInput)
	}
	if c.embedder == nil {
		return failed, fmt.Errorf("ingest %s: %w", documentID, domain.ErrEmbeddingUnavailable)
	}

	logger.Section("Ingest " + documentID)
	chunks := c.splitter.Split(documentID, text)
	logger.Debug("Ingest %s: %d chunks", documentID, len(chunks))

	kept, failures := c.embedChunks(ctx, chunks)
	if len(kept) == 0 {
		logger.Warn("Ingest %s: every chunk failed embedding, previous index preserved", documentID)
		failed.ChunksFailed = failures
		return failed, fmt.Errorf("ingest %s: %w", documentID, domain.ErrIngestionFailed)
	}

	doc := domain.Document{
		ID:         documentID,
		Title:      title,
		ChunkCount: len(kept),
		IngestedAt: time.Now().UTC(),
	}

	unlock := c.lockDocument(documentID)
	defer unlock()

	if err := c.store.ReplaceChunks(ctx, doc, kept); err != nil {
		failed.ChunksFailed = len(chunks)
		return failed, fmt.Errorf("ingest %s: replace chunks: %w", documentID, err)
	}

	result := domain.IngestResult{
		DocumentID:   documentID,
		Status:       domain.IngestOk,
		ChunksStored: len(kept),
		ChunksFailed: failures,
	}
	if failures > 0 {
		result.Status = domain.IngestPartial
		logger.Warn("Ingest %s: %d of %d chunks failed embedding", documentID, failures, len(chunks))
	}
	logger.Info("Ingest %s: stored %d chunks", documentID, len(kept))
	return result, nil
}

// embedChunks embeds all chunks, preferring one batch call and degrading
// to per-chunk embedding so individual failures only exclude their chunk.
func (c *CorpusIndex) embedChunks(ctx context.Context, chunks []domain.Chunk) ([]domain.Chunk, int) {
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}

	vectors, err := c.embedder.EmbedBatch(ctx, texts)
	if err == nil && len(vectors) == len(chunks) {
		kept := make([]domain.Chunk, len(chunks))
		copy(kept, chunks)
		for i := range kept {
			kept[i].Embedding = vectors[i]
		}
		return kept, 0
	}
	if err != nil {
		logger.Warn("Ingest: batch embedding failed: %v (retrying per chunk)", err)
	}

	kept := make([]domain.Chunk, 0, len(chunks))
	failures := 0
	for _, chunk := range chunks {
		vector, embedErr := c.embedder.Embed(ctx, chunk.Content)
		if embedErr != nil {
			logger.Warn("Ingest: chunk %d failed embedding: %v", chunk.Position, embedErr)
			failures++
			continue
		}
		chunk.Embedding = vector
		kept = append(kept, chunk)
	}
	return kept, failures
}

// Lookup returns the topK chunks nearest to the query embedding, wrapped
// as local-source evidence. Ties are broken by most recent ingestion.
func (c *CorpusIndex) Lookup(ctx context.Context, queryEmbedding []float32, topK int) ([]domain.EvidenceItem, error) {
	if topK < 1 {
		return nil, nil
	}

	chunks, err := c.store.AllChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("corpus lookup: %w", err)
	}

	type scored struct {
		chunk      domain.Chunk
		similarity float64
	}

	candidates := make([]scored, 0, len(chunks))
	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			continue
		}
		candidates = append(candidates, scored{
			chunk:      chunk,
			similarity: CosineSimilarity(queryEmbedding, chunk.Embedding),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].similarity != candidates[j].similarity {
			return candidates[i].similarity > candidates[j].similarity
		}
		return candidates[i].chunk.IngestedAt.After(candidates[j].chunk.IngestedAt)
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	now := time.Now().UTC()
	items := make([]domain.EvidenceItem, len(candidates))
	for i, cand := range candidates {
		doc, docErr := c.store.GetDocument(ctx, cand.chunk.DocumentID)
		title := cand.chunk.DocumentID
		if docErr == nil && doc.Title != "" {
			title = doc.Title
		}

		// Similarity clamps into [0,1]; negative cosine means unrelated.
		score := cand.similarity
		if score < 0 {
			score = 0
		}

		items[i] = domain.EvidenceItem{
			Identity:    domain.ContentIdentity(title, cand.chunk.Content),
			Source:      domain.SourceLocal,
			SourceName:  "local: " + cand.chunk.DocumentID,
			Title:       title,
			Body:        cand.chunk.Content,
			Reference:   fmt.Sprintf("local://%s#%d", cand.chunk.DocumentID, cand.chunk.Position),
			NativeScore: score,
			RetrievedAt: now,
		}
	}
	return items, nil
}

// Embedder returns the configured embedding service, which may be nil.
func (c *CorpusIndex) Embedder() driven.EmbeddingService {
	return c.embedder
}

// lockDocument acquires the per-document ingestion lock.
func (c *CorpusIndex) lockDocument(documentID string) func() {
	c.mu.Lock()
	lock, ok := c.docLocks[documentID]
	if !ok {
		lock = &sync.Mutex{}
		c.docLocks[documentID] = lock
	}
	c.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched or zero-length vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
