// Package cli provides the command-line interface for Reserca.
// Commands are thin adapters over the core services; all wiring
// happens once in initServices.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/reserca-labs/reserca-cli/internal/adapters/driven/config/file"
	localembed "github.com/reserca-labs/reserca-cli/internal/adapters/driven/embedding/local"
	"github.com/reserca-labs/reserca-cli/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/reserca-labs/reserca-cli/internal/adapters/driven/embedding/openai"
	openaillm "github.com/reserca-labs/reserca-cli/internal/adapters/driven/llm/openai"
	"github.com/reserca-labs/reserca-cli/internal/adapters/driven/sources/crossref"
	"github.com/reserca-labs/reserca-cli/internal/adapters/driven/sources/pubchem"
	"github.com/reserca-labs/reserca-cli/internal/adapters/driven/sources/websearch"
	"github.com/reserca-labs/reserca-cli/internal/adapters/driven/storage/sqlite"
	"github.com/reserca-labs/reserca-cli/internal/chunker"
	"github.com/reserca-labs/reserca-cli/internal/core/domain"
	"github.com/reserca-labs/reserca-cli/internal/core/ports/driven"
	"github.com/reserca-labs/reserca-cli/internal/core/ports/driving"
	"github.com/reserca-labs/reserca-cli/internal/core/services"
	"github.com/reserca-labs/reserca-cli/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// Package-level services shared by all commands. Populated by
// initServices; tests inject mocks directly.
var (
	configStore      driven.ConfigStore
	corpusStore      driven.ChunkStore
	retrievalService driving.RetrievalService
	ingestService    driving.IngestService

	store   *sqlite.Store
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "reserca",
	Short: "Aggregate evidence from local and remote knowledge sources",
	Long: `Reserca answers research questions by decomposing them into weighted
keywords, querying the local corpus and remote sources (Crossref, PubChem,
web search) in parallel, and assembling the deduplicated, ranked evidence
into a size-bounded context.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		if skipServiceInit(cmd) {
			return nil
		}
		return initServices()
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		if store != nil {
			store.Close() //nolint:errcheck
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

// Execute runs the root command. Interrupt cancels the command
// context so long-running commands like watch shut down cleanly.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// skipServiceInit reports whether a command runs without the full
// service graph.
func skipServiceInit(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "version", "help", "completion":
		return true
	}
	return false
}

// initServices wires the full dependency graph from configuration.
// Idempotent; the first caller wins.
func initServices() error {
	if retrievalService != nil {
		return nil
	}

	var err error
	configStore, err = file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}

	store, err = sqlite.NewStore("")
	if err != nil {
		return fmt.Errorf("opening corpus store: %w", err)
	}
	corpusStore = store.ChunkStore()
	registry := store.MetadataRegistry()

	embedder, err := buildEmbedder(configStore)
	if err != nil {
		return err
	}
	logger.Debug("using embedding provider %s (%d dimensions)", embedder.ModelName(), embedder.Dimensions())

	splitter := chunker.New(
		chunker.WithChunkSize(configStore.GetInt("chunk.size")),
		chunker.WithOverlap(configStore.GetInt("chunk.overlap")),
	)

	corpus := services.NewCorpusIndex(corpusStore, embedder, splitter)
	ingestService = corpus

	decomposer := services.NewQueryDecomposer(buildExtractor(configStore))

	aggregator := services.NewAggregator(
		decomposer,
		[]driven.SourceAdapter{
			crossref.NewAdapter(crossref.Config{
				Mailto: configStore.GetString("source.crossref.mailto"),
			}),
			pubchem.NewAdapter(pubchem.Config{}),
		},
		websearch.NewAdapter(websearch.Config{}),
		corpus,
		registry,
		aggregatorConfig(configStore),
	)

	retrievalService = services.NewRetrievalService(aggregator)
	return nil
}

// buildEmbedder selects the embedding service from configuration.
// Unset or unknown providers fall back to the in-process embedder so
// ingestion always works out of the box.
func buildEmbedder(cfg driven.ConfigStore) (driven.EmbeddingService, error) {
	switch cfg.GetString("embedding.provider") {
	case "openai":
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:  cfg.GetString("embedding.api_key"),
			BaseURL: cfg.GetString("embedding.base_url"),
			Model:   cfg.GetString("embedding.model"),
		})
	case "ollama":
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL: cfg.GetString("embedding.base_url"),
			Model:   cfg.GetString("embedding.model"),
		}), nil
	default:
		return localembed.NewEmbeddingService(cfg.GetInt("embedding.dimensions")), nil
	}
}

// buildExtractor returns an LLM keyword extractor when one is
// configured, nil otherwise. The decomposer degrades to heuristic
// extraction without it.
func buildExtractor(cfg driven.ConfigStore) driven.KeywordExtractor {
	apiKey := cfg.GetString("extractor.api_key")
	if apiKey == "" {
		return nil
	}
	extractor, err := openaillm.NewKeywordExtractor(openaillm.Config{
		APIKey:  apiKey,
		BaseURL: cfg.GetString("extractor.base_url"),
		Model:   cfg.GetString("extractor.model"),
	})
	if err != nil {
		logger.Warn("keyword extractor disabled: %v", err)
		return nil
	}
	return extractor
}

// aggregatorConfig maps configuration keys onto the aggregator knobs.
func aggregatorConfig(cfg driven.ConfigStore) services.AggregatorConfig {
	priorities := services.DefaultPriorities()
	for key, kind := range map[string]domain.SourceKind{
		"priority.local":      domain.SourceLocal,
		"priority.literature": domain.SourceLiterature,
		"priority.chemical":   domain.SourceChemical,
		"priority.websearch":  domain.SourceWebSearch,
	} {
		if _, ok := cfg.Get(key); ok {
			priorities[kind] = cfg.GetFloat(key)
		}
	}

	return services.AggregatorConfig{
		PerSourceTimeout: secondsOrZero(cfg, "aggregate.source_timeout_seconds"),
		OverallTimeout:   secondsOrZero(cfg, "aggregate.overall_timeout_seconds"),
		PerSourceLimit:   cfg.GetInt("aggregate.per_source_limit"),
		LocalTopK:        cfg.GetInt("aggregate.local_topk"),
		MinResults:       cfg.GetInt("aggregate.min_results"),
		Priorities:       priorities,
	}
}

func secondsOrZero(cfg driven.ConfigStore, key string) time.Duration {
	return time.Duration(cfg.GetInt(key)) * time.Second
}
