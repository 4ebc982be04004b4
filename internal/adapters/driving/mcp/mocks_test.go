package mcp

import (
	"context"

	"github.com/reserca-labs/reserca-cli/internal/core/domain"
)

// mockRetrieval implements driving.RetrievalService.
type mockRetrieval struct {
	assembled domain.AssembledContext
	report    domain.AggregationReport
	err       error

	lastQuery    string
	lastLanguage string
	lastBudget   domain.SizeBudget
}

func (m *mockRetrieval) Retrieve(_ context.Context, queryText, languageHint string, budget domain.SizeBudget) (domain.AssembledContext, domain.AggregationReport, error) {
	m.lastQuery = queryText
	m.lastLanguage = languageHint
	m.lastBudget = budget
	return m.assembled, m.report, m.err
}

// mockIngest implements driving.IngestService.
type mockIngest struct {
	result domain.IngestResult
	err    error
}

func (m *mockIngest) IngestDocument(_ context.Context, documentID, title, text string) (domain.IngestResult, error) {
	if m.err != nil {
		return domain.IngestResult{}, m.err
	}
	result := m.result
	if result.DocumentID == "" {
		result.DocumentID = documentID
	}
	return result, nil
}

// mockCorpus implements driven.ChunkStore for resource handlers.
type mockCorpus struct {
	documents []domain.Document
	chunks    map[string][]domain.Chunk
	err       error
}

func (m *mockCorpus) ReplaceChunks(_ context.Context, _ domain.Document, _ []domain.Chunk) error {
	return nil
}

func (m *mockCorpus) GetDocument(_ context.Context, documentID string) (*domain.Document, error) {
	for _, doc := range m.documents {
		if doc.ID == documentID {
			return &doc, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockCorpus) GetChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.chunks[documentID], nil
}

func (m *mockCorpus) AllChunks(_ context.Context) ([]domain.Chunk, error) {
	var all []domain.Chunk
	for _, chunks := range m.chunks {
		all = append(all, chunks...)
	}
	return all, nil
}

func (m *mockCorpus) ListDocuments(_ context.Context) ([]domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.documents, nil
}

func (m *mockCorpus) DeleteDocument(_ context.Context, _ string) error {
	return nil
}

func (m *mockCorpus) Close() error {
	return nil
}
