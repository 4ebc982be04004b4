package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/reserca-labs/reserca-cli/internal/core/domain"
)

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query    string `json:"query" jsonschema:"the research question to gather evidence for"`
	Language string `json:"language,omitempty" jsonschema:"optional language hint for query decomposition"`
	Budget   int    `json:"budget,omitempty" jsonschema:"maximum context size in bytes (default 8192)"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Items     []EvidenceOutput `json:"items"`
	Size      int              `json:"size"`
	Dropped   int              `json:"dropped"`
	Fallback  bool             `json:"fallback_triggered"`
	Sources   []SourceOutput   `json:"sources"`
	AllFailed bool             `json:"all_sources_failed"`
}

// EvidenceOutput represents a single assembled evidence item.
type EvidenceOutput struct {
	Source    string  `json:"source"`
	Title     string  `json:"title"`
	Body      string  `json:"body"`
	Reference string  `json:"reference,omitempty"`
	Score     float64 `json:"score"`
	Seen      bool    `json:"seen"`
	Truncated bool    `json:"truncated,omitempty"`
}

// SourceOutput reports per-source aggregation status.
type SourceOutput struct {
	Source   string `json:"source"`
	Status   string `json:"status"`
	Reason   string `json:"reason,omitempty"`
	Returned int    `json:"returned"`
}

// IngestInput is the input schema for the ingest_document tool.
type IngestInput struct {
	DocumentID string `json:"document_id" jsonschema:"stable identifier for the document"`
	Title      string `json:"title" jsonschema:"document title"`
	Text       string `json:"text" jsonschema:"full document text to index"`
}

// IngestOutput is the output schema for the ingest_document tool.
type IngestOutput struct {
	DocumentID   string `json:"document_id"`
	Status       string `json:"status"`
	ChunksStored int    `json:"chunks_stored"`
	ChunksFailed int    `json:"chunks_failed"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Gather evidence for a question from the local corpus and remote knowledge sources",
	}, s.handleRetrieve)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest_document",
		Description: "Add or update a document in the local corpus",
	}, s.handleIngest)
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	budget := domain.SizeBudget(input.Budget)

	assembled, report, err := s.ports.Retrieval.Retrieve(ctx, input.Query, input.Language, budget)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{
		Items:     make([]EvidenceOutput, len(assembled.Items)),
		Size:      assembled.Size,
		Dropped:   assembled.Dropped,
		Fallback:  report.FallbackTriggered,
		AllFailed: report.TotalFailure(),
	}

	for i, item := range assembled.Items {
		output.Items[i] = EvidenceOutput{
			Source:    item.Evidence.Source.String(),
			Title:     item.Evidence.Title,
			Body:      item.Evidence.Body,
			Reference: item.Evidence.Reference,
			Score:     item.Evidence.Score,
			Seen:      item.Evidence.Seen,
			Truncated: item.Truncated,
		}
	}

	for _, sr := range report.Sources {
		output.Sources = append(output.Sources, SourceOutput{
			Source:   sr.Source.String(),
			Status:   string(sr.Status.Code),
			Reason:   sr.Status.Reason,
			Returned: sr.Returned,
		})
	}

	return nil, output, nil
}

// handleIngest handles the ingest_document tool invocation.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	if s.ports.Ingest == nil {
		return nil, IngestOutput{}, errors.New("mcp: ingestion is not configured")
	}

	result, err := s.ports.Ingest.IngestDocument(ctx, input.DocumentID, input.Title, input.Text)
	if err != nil {
		return nil, IngestOutput{}, err
	}

	return nil, IngestOutput{
		DocumentID:   result.DocumentID,
		Status:       string(result.Status),
		ChunksStored: result.ChunksStored,
		ChunksFailed: result.ChunksFailed,
	}, nil
}
