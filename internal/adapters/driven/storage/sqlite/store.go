package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/reserca-labs/reserca-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/reserca-labs/reserca-cli/internal/core/domain"
	"github.com/reserca-labs/reserca-cli/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to the
// chunk store and metadata registry through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.reserca/data/corpus.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".reserca", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "corpus.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// ChunkStore returns a ChunkStore interface backed by this store.
func (s *Store) ChunkStore() driven.ChunkStore {
	return &chunkStore{store: s}
}

// MetadataRegistry returns a MetadataRegistry interface backed by this store.
func (s *Store) MetadataRegistry() driven.MetadataRegistry {
	return &metadataRegistry{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Chunk Store ====================

// chunkStore implements driven.ChunkStore.
type chunkStore struct {
	store *Store
}

var _ driven.ChunkStore = (*chunkStore)(nil)

// ReplaceChunks atomically swaps the chunk set for a document inside a
// single transaction. SQLite serialises writers, so concurrent
// replacements of different documents queue rather than interleave.
func (c *chunkStore) ReplaceChunks(ctx context.Context, doc domain.Document, chunks []domain.Chunk) error {
	tx, err := c.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if doc.IngestedAt.IsZero() {
		doc.IngestedAt = time.Now().UTC()
	}
	doc.ChunkCount = len(chunks)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (id, title, chunk_count, ingested_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			chunk_count = excluded.chunk_count,
			ingested_at = excluded.ingested_at
	`, doc.ID, doc.Title, doc.ChunkCount, doc.IngestedAt)
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", doc.ID); err != nil {
		return fmt.Errorf("removing old chunks: %w", err)
	}

	for _, chunk := range chunks {
		if chunk.IngestedAt.IsZero() {
			chunk.IngestedAt = doc.IngestedAt
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO chunks (id, document_id, content, position, byte_offset, embedding, ingested_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, chunk.ID, doc.ID, chunk.Content, chunk.Position, chunk.Offset,
			float32SliceToBytes(chunk.Embedding), chunk.IngestedAt)
		if err != nil {
			return fmt.Errorf("saving chunk %s: %w", chunk.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetDocument retrieves document metadata by ID.
func (c *chunkStore) GetDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	row := c.store.db.QueryRowContext(ctx, `
		SELECT id, title, chunk_count, ingested_at
		FROM documents WHERE id = ?
	`, documentID)

	var doc domain.Document
	if err := row.Scan(&doc.ID, &doc.Title, &doc.ChunkCount, &doc.IngestedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	return &doc, nil
}

// GetChunks returns the chunk set for a document in position order.
func (c *chunkStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	rows, err := c.store.db.QueryContext(ctx, `
		SELECT id, document_id, content, position, byte_offset, embedding, ingested_at
		FROM chunks WHERE document_id = ?
		ORDER BY position
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

// AllChunks returns every indexed chunk.
func (c *chunkStore) AllChunks(ctx context.Context) ([]domain.Chunk, error) {
	rows, err := c.store.db.QueryContext(ctx, `
		SELECT id, document_id, content, position, byte_offset, embedding, ingested_at
		FROM chunks
		ORDER BY document_id, position
	`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

// ListDocuments returns metadata for all indexed documents.
func (c *chunkStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := c.store.db.QueryContext(ctx, `
		SELECT id, title, chunk_count, ingested_at
		FROM documents
		ORDER BY ingested_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var doc domain.Document
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.ChunkCount, &doc.IngestedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a document and its chunks.
func (c *chunkStore) DeleteDocument(ctx context.Context, documentID string) error {
	_, err := c.store.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", documentID)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// Close is a no-op; the lifecycle belongs to the parent Store.
func (c *chunkStore) Close() error {
	return nil
}

func scanChunks(rows *sql.Rows) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for rows.Next() {
		var chunk domain.Chunk
		var embedding []byte
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Content,
			&chunk.Position, &chunk.Offset, &embedding, &chunk.IngestedAt); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunk.Embedding = bytesToFloat32Slice(embedding)
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

// ==================== Metadata Registry ====================

// metadataRegistry implements driven.MetadataRegistry.
type metadataRegistry struct {
	store *Store
}

var _ driven.MetadataRegistry = (*metadataRegistry)(nil)

// Lookup returns the entry for an identity.
func (m *metadataRegistry) Lookup(ctx context.Context, identity string) (*domain.RegistryEntry, error) {
	row := m.store.db.QueryRowContext(ctx, `
		SELECT identity, source, first_seen
		FROM registry WHERE identity = ?
	`, identity)

	var entry domain.RegistryEntry
	var source string
	if err := row.Scan(&entry.Identity, &source, &entry.FirstSeen); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning registry entry: %w", err)
	}
	entry.Source = domain.SourceKind(source)
	return &entry, nil
}

// Record registers an identity on first sight. An existing entry is
// preserved untouched.
func (m *metadataRegistry) Record(ctx context.Context, entry domain.RegistryEntry) (bool, error) {
	if entry.FirstSeen.IsZero() {
		entry.FirstSeen = time.Now().UTC()
	}

	result, err := m.store.db.ExecContext(ctx, `
		INSERT INTO registry (identity, source, first_seen)
		VALUES (?, ?, ?)
		ON CONFLICT(identity) DO NOTHING
	`, entry.Identity, string(entry.Source), entry.FirstSeen)
	if err != nil {
		return false, fmt.Errorf("recording identity: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking insert result: %w", err)
	}
	return affected > 0, nil
}

// Count returns the number of recorded identities.
func (m *metadataRegistry) Count(ctx context.Context) (int, error) {
	var count int
	row := m.store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM registry")
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("counting registry entries: %w", err)
	}
	return count, nil
}

// Close is a no-op; the lifecycle belongs to the parent Store.
func (m *metadataRegistry) Close() error {
	return nil
}

// ==================== Embedding encoding ====================

// float32SliceToBytes converts a float32 slice to a little-endian byte
// blob for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
