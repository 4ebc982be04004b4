package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reserca-labs/reserca-cli/internal/chunker"
	"github.com/reserca-labs/reserca-cli/internal/core/domain"
)

func newTestCorpus(store *mockChunkStore, embedder *mockEmbedder) *CorpusIndex {
	return NewCorpusIndex(store, embedder, chunker.New(chunker.WithChunkSize(20), chunker.WithOverlap(5)))
}

func TestIngestDocument_Success(t *testing.T) {
	store := newMockChunkStore()
	corpus := newTestCorpus(store, newMockEmbedder())

	text := strings.Repeat("carbon capture sorbent ", 20)
	result, err := corpus.IngestDocument(context.Background(), "doc-1", "Sorbents", text)
	require.NoError(t, err)
	assert.Equal(t, domain.IngestOk, result.Status)
	assert.Zero(t, result.ChunksFailed)
	assert.Greater(t, result.ChunksStored, 0)

	chunks, err := store.GetChunks(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Len(t, chunks, result.ChunksStored)
	for _, chunk := range chunks {
		assert.NotEmpty(t, chunk.Embedding)
	}
}

func TestIngestDocument_InvalidInput(t *testing.T) {
	corpus := newTestCorpus(newMockChunkStore(), newMockEmbedder())

	_, err := corpus.IngestDocument(context.Background(), "", "t", "text")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	result, err := corpus.IngestDocument(context.Background(), "doc-1", "t", "   ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, domain.IngestFailed, result.Status)
}

func TestIngestDocument_NoEmbedder(t *testing.T) {
	corpus := NewCorpusIndex(newMockChunkStore(), nil, nil)

	_, err := corpus.IngestDocument(context.Background(), "doc-1", "t", "some text")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestIngestDocument_PartialEmbeddingFailure(t *testing.T) {
	store := newMockChunkStore()
	embedder := newMockEmbedder()
	embedder.batchErr = errors.New("batch unsupported")

	corpus := newTestCorpus(store, embedder)

	// Two chunks; fail the second chunk's text only.
	words := make([]string, 30)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	text := strings.Join(words, " ")
	failing := strings.Join(words[15:], " ") // second window [15,30)
	embedder.failOn[failing] = true

	result, err := corpus.IngestDocument(context.Background(), "doc-1", "t", text)
	require.NoError(t, err)
	assert.Equal(t, domain.IngestPartial, result.Status)
	assert.Equal(t, 1, result.ChunksStored)
	assert.Equal(t, 1, result.ChunksFailed)
}

func TestIngestDocument_TotalEmbeddingFailurePreservesOldChunks(t *testing.T) {
	store := newMockChunkStore()
	embedder := newMockEmbedder()
	corpus := newTestCorpus(store, embedder)

	_, err := corpus.IngestDocument(context.Background(), "doc-1", "t", "original text here")
	require.NoError(t, err)
	before, err := store.GetChunks(context.Background(), "doc-1")
	require.NoError(t, err)
	require.NotEmpty(t, before)

	embedder.embedErr = errors.New("service down")
	embedder.batchErr = errors.New("service down")

	result, err := corpus.IngestDocument(context.Background(), "doc-1", "t", "replacement text here")
	assert.ErrorIs(t, err, domain.ErrIngestionFailed)
	assert.Equal(t, domain.IngestFailed, result.Status)

	after, err := store.GetChunks(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, before, after, "old chunk set must be preserved")
}

func TestIngestDocument_ReingestReplacesNotAccumulates(t *testing.T) {
	store := newMockChunkStore()
	corpus := newTestCorpus(store, newMockEmbedder())

	text := strings.Repeat("zeolite framework topology ", 15)
	first, err := corpus.IngestDocument(context.Background(), "doc-1", "t", text)
	require.NoError(t, err)

	second, err := corpus.IngestDocument(context.Background(), "doc-1", "t", text)
	require.NoError(t, err)

	assert.Equal(t, first.ChunksStored, second.ChunksStored)

	chunks, err := store.GetChunks(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Len(t, chunks, second.ChunksStored)

	// Identical content yields an identical chunk set: same count, offsets.
	firstOffsets := make([]int, 0, len(chunks))
	for _, chunk := range chunks {
		firstOffsets = append(firstOffsets, chunk.Offset)
	}
	third, err := corpus.IngestDocument(context.Background(), "doc-1", "t", text)
	require.NoError(t, err)
	require.Equal(t, second.ChunksStored, third.ChunksStored)

	chunks, err = store.GetChunks(context.Background(), "doc-1")
	require.NoError(t, err)
	for i, chunk := range chunks {
		assert.Equal(t, firstOffsets[i], chunk.Offset)
	}
}

func TestLookup_RanksBySimilarity(t *testing.T) {
	store := newMockChunkStore()
	embedder := newMockEmbedder()
	embedder.vectors["chunk about cats"] = []float32{1, 0, 0, 0}
	embedder.vectors["chunk about dogs"] = []float32{0, 1, 0, 0}

	corpus := NewCorpusIndex(store, embedder, chunker.New(chunker.WithChunkSize(5), chunker.WithOverlap(0)))

	_, err := corpus.IngestDocument(context.Background(), "cats", "Cats", "chunk about cats")
	require.NoError(t, err)
	_, err = corpus.IngestDocument(context.Background(), "dogs", "Dogs", "chunk about dogs")
	require.NoError(t, err)

	items, err := corpus.Lookup(context.Background(), []float32{1, 0.1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Cats", items[0].Title)
	assert.Equal(t, domain.SourceLocal, items[0].Source)
	assert.Greater(t, items[0].NativeScore, items[1].NativeScore)
	assert.Equal(t, "local://cats#0", items[0].Reference)
}

func TestLookup_TopKBounds(t *testing.T) {
	store := newMockChunkStore()
	corpus := newTestCorpus(store, newMockEmbedder())

	_, err := corpus.IngestDocument(context.Background(), "doc-1", "t", strings.Repeat("word ", 100))
	require.NoError(t, err)

	items, err := corpus.Lookup(context.Background(), hashVector("word"), 2)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(items), 2)

	items, err = corpus.Lookup(context.Background(), hashVector("word"), 0)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestLookup_EmptyCorpus(t *testing.T) {
	corpus := newTestCorpus(newMockChunkStore(), newMockEmbedder())

	items, err := corpus.Lookup(context.Background(), []float32{1, 2, 3, 4}, 5)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Zero(t, CosineSimilarity(nil, []float32{1}))
	assert.Zero(t, CosineSimilarity([]float32{1}, []float32{1, 2}))
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 1}))
}
