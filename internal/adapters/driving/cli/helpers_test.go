package cli

import (
	"bytes"
	"context"
	"errors"

	"github.com/reserca-labs/reserca-cli/internal/adapters/driven/storage/memory"
	"github.com/reserca-labs/reserca-cli/internal/core/domain"
)

// setupTestServices installs mock services so initServices is skipped.
// Returns a cleanup function restoring the previous wiring.
func setupTestServices() func() {
	oldRetrieval := retrievalService
	oldIngest := ingestService
	oldCorpus := corpusStore
	oldConfig := configStore

	retrievalService = &stubRetrieval{
		assembled: domain.AssembledContext{
			Items: []domain.ContextItem{
				{
					Evidence: domain.EvidenceItem{
						Identity:  "id-1",
						Source:    domain.SourceLiterature,
						Title:     "Graphene thermal transport",
						Body:      "Measured in-plane conductivity.",
						Reference: "https://doi.org/10.1000/x",
						Score:     0.8,
					},
				},
			},
			Size:   64,
			Budget: 8192,
		},
		report: domain.AggregationReport{
			Sources: []domain.SourceReport{
				{Source: domain.SourceLiterature, Status: domain.StatusOkResult(), Returned: 1},
			},
			TotalItems: 1,
		},
	}
	ingestService = &stubIngest{}
	corpusStore = memory.NewChunkStore()
	configStore = memory.NewConfigStore()

	return func() {
		retrievalService = oldRetrieval
		ingestService = oldIngest
		corpusStore = oldCorpus
		configStore = oldConfig
	}
}

// execute runs the root command with args, capturing combined output.
func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

type stubRetrieval struct {
	assembled domain.AssembledContext
	report    domain.AggregationReport
	err       error

	lastQuery  string
	lastBudget domain.SizeBudget
}

func (s *stubRetrieval) Retrieve(_ context.Context, queryText, _ string, budget domain.SizeBudget) (domain.AssembledContext, domain.AggregationReport, error) {
	s.lastQuery = queryText
	s.lastBudget = budget
	return s.assembled, s.report, s.err
}

type stubIngest struct {
	result domain.IngestResult
	err    error

	lastID    string
	lastTitle string
	lastText  string
}

func (s *stubIngest) IngestDocument(_ context.Context, documentID, title, text string) (domain.IngestResult, error) {
	s.lastID = documentID
	s.lastTitle = title
	s.lastText = text
	if s.err != nil {
		return domain.IngestResult{}, s.err
	}
	result := s.result
	if result.DocumentID == "" {
		result.DocumentID = documentID
		result.Status = domain.IngestOk
		result.ChunksStored = 2
	}
	return result, nil
}

var errStub = errors.New("stub failure")
