package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/reserca-labs/reserca-cli/internal/core/domain"
)

// mockAdapter is a mock implementation of driven.SourceAdapter.
type mockAdapter struct {
	kind   domain.SourceKind
	name   string
	items  []domain.EvidenceItem
	status domain.AdapterStatus
	delay  time.Duration

	mu       sync.Mutex
	calls    int
	keywords domain.KeywordSet
}

func (m *mockAdapter) Kind() domain.SourceKind { return m.kind }
func (m *mockAdapter) Name() string            { return m.name }

func (m *mockAdapter) Search(ctx context.Context, keywords domain.KeywordSet, _ int) ([]domain.EvidenceItem, domain.AdapterStatus) {
	m.mu.Lock()
	m.calls++
	m.keywords = keywords
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, domain.StatusUnavailableFor("timeout")
		}
	}
	return m.items, m.status
}

func (m *mockAdapter) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockEmbedder is a mock implementation of driven.EmbeddingService.
// Vectors default to a deterministic function of the text so distinct
// texts get distinct directions; fixed vectors can be injected per text.
type mockEmbedder struct {
	vectors  map[string][]float32
	failOn   map[string]bool
	batchErr error
	embedErr error
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{
		vectors: make(map[string][]float32),
		failOn:  make(map[string]bool),
	}
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if m.failOn[text] {
		return nil, errors.New("embed failed")
	}
	if vec, ok := m.vectors[text]; ok {
		return vec, nil
	}
	return hashVector(text), nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int              { return 4 }
func (m *mockEmbedder) ModelName() string            { return "mock-embed" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

// hashVector spreads text bytes over 4 dimensions.
func hashVector(text string) []float32 {
	vec := make([]float32, 4)
	for i := 0; i < len(text); i++ {
		vec[i%4] += float32(text[i])
	}
	return vec
}

// mockChunkStore is an in-memory mock of driven.ChunkStore.
type mockChunkStore struct {
	mu         sync.RWMutex
	docs       map[string]domain.Document
	chunks     map[string][]domain.Chunk
	replaceErr error
}

func newMockChunkStore() *mockChunkStore {
	return &mockChunkStore{
		docs:   make(map[string]domain.Document),
		chunks: make(map[string][]domain.Chunk),
	}
}

func (s *mockChunkStore) ReplaceChunks(_ context.Context, doc domain.Document, chunks []domain.Chunk) error {
	if s.replaceErr != nil {
		return s.replaceErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
	s.chunks[doc.ID] = chunks
	return nil
}

func (s *mockChunkStore) GetDocument(_ context.Context, documentID string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[documentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

func (s *mockChunkStore) GetChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Chunk(nil), s.chunks[documentID]...), nil
}

func (s *mockChunkStore) AllChunks(_ context.Context) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []domain.Chunk
	for _, chunks := range s.chunks {
		all = append(all, chunks...)
	}
	return all, nil
}

func (s *mockChunkStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var docs []domain.Document
	for _, doc := range s.docs {
		docs = append(docs, doc)
	}
	return docs, nil
}

func (s *mockChunkStore) DeleteDocument(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, documentID)
	delete(s.chunks, documentID)
	return nil
}

func (s *mockChunkStore) Close() error { return nil }

// mockRegistry is an in-memory mock of driven.MetadataRegistry.
type mockRegistry struct {
	mu      sync.Mutex
	entries map[string]domain.RegistryEntry
}

func newMockRegistry() *mockRegistry {
	return &mockRegistry{entries: make(map[string]domain.RegistryEntry)}
}

func (r *mockRegistry) Lookup(_ context.Context, identity string) (*domain.RegistryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[identity]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &entry, nil
}

func (r *mockRegistry) Record(_ context.Context, entry domain.RegistryEntry) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[entry.Identity]; ok {
		return false, nil
	}
	r.entries[entry.Identity] = entry
	return true, nil
}

func (r *mockRegistry) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries), nil
}

func (r *mockRegistry) Close() error { return nil }

// mockExtractor is a mock implementation of driven.KeywordExtractor.
type mockExtractor struct {
	terms []string
	err   error
}

func (m *mockExtractor) ExtractKeywords(_ context.Context, _ string, _ int) ([]string, error) {
	return m.terms, m.err
}
