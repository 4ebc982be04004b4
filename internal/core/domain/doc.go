// Package domain defines the core business entities for Reserca.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Query: One retrieval request as entered by the user
//   - KeywordSet: Weighted search terms derived from a Query
//   - EvidenceItem: One normalised retrieved fact with provenance
//   - Document / Chunk: Ingested text and its embedded spans
//   - AssembledContext: Budget-bounded evidence handed to generation
//   - AggregationReport: Per-source outcome of one aggregation
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
