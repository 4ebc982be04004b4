// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - SourceAdapter: Searches one external knowledge source
//   - ChunkStore: Corpus chunk persistence
//   - MetadataRegistry: Content-identity bookkeeping for deduplication
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Generates vector embeddings. Without it, the local
//     corpus index is disabled and only external sources are consulted.
//   - KeywordExtractor: LLM-assisted keyword extraction. Without it, the
//     query decomposer uses its heuristic extraction only.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
