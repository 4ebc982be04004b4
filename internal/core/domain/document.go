package domain

import "time"

// Document represents one ingested document known to the corpus index.
// Content arrives pre-extracted as plain text from the upload pipeline.
type Document struct {
	// ID is the caller-supplied stable document identifier.
	ID string

	// Title is the human-readable title. May be empty.
	Title string

	// ChunkCount is the number of chunks currently indexed.
	ChunkCount int

	// IngestedAt is when the current chunk set was written.
	IngestedAt time.Time
}

// Chunk is a bounded span of ingested text with its embedding.
// Chunks are immutable after creation; re-ingesting a document replaces
// its whole chunk set atomically.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Content is the text content of this chunk.
	Content string

	// Position is the ordinal position within the document.
	Position int

	// Offset is the byte offset of the chunk start within the document.
	Offset int

	// Embedding is the vector representation for semantic lookup.
	Embedding []float32

	// IngestedAt is when the chunk was created. Ties in similarity
	// lookups are broken by most recent ingestion.
	IngestedAt time.Time
}

// IngestStatus describes the outcome of one document ingestion.
type IngestStatus string

// Available ingestion outcomes.
const (
	// IngestOk means every chunk was embedded and stored.
	IngestOk IngestStatus = "ok"

	// IngestPartial means some chunks failed embedding and were skipped,
	// but at least one chunk was stored.
	IngestPartial IngestStatus = "partial"

	// IngestFailed means no chunk could be stored; any previously
	// indexed chunk set for the document is left untouched.
	IngestFailed IngestStatus = "failed"
)

// IngestResult reports the outcome of ingesting one document.
type IngestResult struct {
	// DocumentID is the document the result refers to.
	DocumentID string

	// Status is the overall outcome.
	Status IngestStatus

	// ChunksStored is the number of chunks written.
	ChunksStored int

	// ChunksFailed is the number of chunks excluded by embedding failure.
	ChunksFailed int
}
