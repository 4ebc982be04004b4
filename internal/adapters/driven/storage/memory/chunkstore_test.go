package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reserca-labs/reserca-cli/internal/core/domain"
)

func chunksFor(docID string, n int) []domain.Chunk {
	chunks := make([]domain.Chunk, n)
	for i := range chunks {
		chunks[i] = domain.Chunk{
			ID:         docID + "-" + string(rune('a'+i)),
			DocumentID: docID,
			Content:    "content",
			Position:   i,
			Offset:     i * 50,
		}
	}
	return chunks
}

func TestChunkStoreReplaceAndGet(t *testing.T) {
	store := NewChunkStore()
	ctx := context.Background()

	doc := domain.Document{ID: "doc-1", Title: "Notes"}
	require.NoError(t, store.ReplaceChunks(ctx, doc, chunksFor("doc-1", 3)))

	got, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 3, got.ChunkCount)
	assert.False(t, got.IngestedAt.IsZero())

	chunks, err := store.GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Position)
	}
}

func TestChunkStoreReplaceSwapsOldSet(t *testing.T) {
	store := NewChunkStore()
	ctx := context.Background()

	doc := domain.Document{ID: "doc-1", Title: "Notes"}
	require.NoError(t, store.ReplaceChunks(ctx, doc, chunksFor("doc-1", 5)))
	require.NoError(t, store.ReplaceChunks(ctx, doc, chunksFor("doc-1", 2)))

	chunks, err := store.GetChunks(ctx, "doc-1")
	require.NoError(t, err)
	assert.Len(t, chunks, 2)

	got, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.ChunkCount)
}

func TestChunkStoreNotFound(t *testing.T) {
	store := NewChunkStore()

	_, err := store.GetDocument(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	chunks, err := store.GetChunks(context.Background(), "missing")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkStoreAllChunks(t *testing.T) {
	store := NewChunkStore()
	ctx := context.Background()

	require.NoError(t, store.ReplaceChunks(ctx, domain.Document{ID: "a"}, chunksFor("a", 2)))
	require.NoError(t, store.ReplaceChunks(ctx, domain.Document{ID: "b"}, chunksFor("b", 3)))

	all, err := store.AllChunks(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestChunkStoreDelete(t *testing.T) {
	store := NewChunkStore()
	ctx := context.Background()

	require.NoError(t, store.ReplaceChunks(ctx, domain.Document{ID: "a"}, chunksFor("a", 2)))
	require.NoError(t, store.DeleteDocument(ctx, "a"))

	_, err := store.GetDocument(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	docs, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestChunkStoreConcurrentReplace(t *testing.T) {
	store := NewChunkStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			docID := "doc-" + string(rune('a'+n))
			_ = store.ReplaceChunks(ctx, domain.Document{ID: docID}, chunksFor(docID, 2))
		}(i)
	}
	wg.Wait()

	docs, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 8)
}

func TestRegistryRecordAndLookup(t *testing.T) {
	registry := NewMetadataRegistry()
	ctx := context.Background()

	created, err := registry.Record(ctx, domain.RegistryEntry{Identity: "x", Source: domain.SourceChemical})
	require.NoError(t, err)
	assert.True(t, created)

	entry, err := registry.Lookup(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceChemical, entry.Source)
	assert.False(t, entry.FirstSeen.IsZero())
}

func TestRegistryRecordPreservesFirstEntry(t *testing.T) {
	registry := NewMetadataRegistry()
	ctx := context.Background()

	created, err := registry.Record(ctx, domain.RegistryEntry{Identity: "x", Source: domain.SourceLiterature})
	require.NoError(t, err)
	require.True(t, created)

	created, err = registry.Record(ctx, domain.RegistryEntry{Identity: "x", Source: domain.SourceWebSearch})
	require.NoError(t, err)
	assert.False(t, created)

	entry, err := registry.Lookup(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceLiterature, entry.Source)
}

func TestRegistryCount(t *testing.T) {
	registry := NewMetadataRegistry()
	ctx := context.Background()

	count, err := registry.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	for _, id := range []string{"a", "b"} {
		_, err := registry.Record(ctx, domain.RegistryEntry{Identity: id, Source: domain.SourceLocal})
		require.NoError(t, err)
	}

	count, err = registry.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRegistryLookupNotFound(t *testing.T) {
	registry := NewMetadataRegistry()

	_, err := registry.Lookup(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
