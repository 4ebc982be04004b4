// Package chunker splits ingested text into bounded, overlapping chunks.
package chunker

import (
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/reserca-labs/reserca-cli/internal/core/domain"
)

// DefaultChunkSize is the default number of tokens per chunk.
const DefaultChunkSize = 200

// DefaultChunkOverlap is the default number of overlapping tokens.
const DefaultChunkOverlap = 40

// Chunker splits document text into fixed-size token windows.
// Tokens are whitespace-delimited; chunk text is sliced from the original
// document so spacing inside a chunk is preserved and offsets are exact.
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the chunk size in tokens.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in tokens.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// New creates a new chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Ensure overlap doesn't exceed chunk size
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}

	return c
}

// span marks one token's byte range within the document.
type span struct {
	start int
	end   int
}

// Split chunks the document text. A document shorter than one chunk
// produces exactly one chunk; trailing content smaller than the overlap
// window is never dropped. Empty text produces no chunks.
func (c *Chunker) Split(documentID, text string) []domain.Chunk {
	tokens := tokenise(text)
	if len(tokens) == 0 {
		return nil
	}

	now := time.Now().UTC()
	stride := c.chunkSize - c.overlap
	estimated := (len(tokens) / stride) + 1
	chunks := make([]domain.Chunk, 0, estimated)

	position := 0
	for start := 0; ; start += stride {
		end := start + c.chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}

		from := tokens[start].start
		to := tokens[end-1].end

		chunks = append(chunks, domain.Chunk{
			ID:         uuid.New().String(),
			DocumentID: documentID,
			Content:    text[from:to],
			Position:   position,
			Offset:     from,
			IngestedAt: now,
		})
		position++

		// The chunk that reaches the end of the document is the last one.
		if end == len(tokens) {
			break
		}
	}

	return chunks
}

// tokenise returns the byte spans of whitespace-delimited tokens.
func tokenise(text string) []span {
	var tokens []span
	start := -1
	for i, r := range text {
		if unicode.IsSpace(r) {
			if start >= 0 {
				tokens = append(tokens, span{start: start, end: i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, span{start: start, end: len(text)})
	}
	return tokens
}
