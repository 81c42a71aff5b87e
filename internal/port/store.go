package port

import (
	"context"
	"time"

	"docqa/internal/domain"
)

// ChunkMatch is one search hit: the chunk, its raw cosine similarity
// (zero for substring matches), and the owning document's identity.
type ChunkMatch struct {
	Chunk      domain.Chunk
	Similarity float64
	Filename   string
	FileType   domain.FileType
}

// NearestQuery describes a single vector search against one embedding space.
type NearestQuery struct {
	Space  domain.EmbeddingSpace
	Vector []float32
	K      int

	// Optional creation-date window. Zero values mean unbounded.
	DateFrom time.Time
	DateTo   time.Time
}

// ChunkStore is the persistent store of documents and their chunks.
// Similarity computation is delegated to the store; callers never load the
// full embedding set into memory.
type ChunkStore interface {
	// CreateDocument inserts a document row. Filename is a unique identity
	// key; inserting an existing filename replaces the previous document
	// and cascades to its chunks.
	CreateDocument(ctx context.Context, doc domain.Document) error

	// SetDocumentStatus transitions a document's processing status.
	SetDocumentStatus(ctx context.Context, id string, status domain.DocumentStatus) error

	// GetDocument returns a document by ID, or domain.ErrNotFound.
	GetDocument(ctx context.Context, id string) (domain.Document, error)

	// GetDocumentByFilename returns a document by filename, or domain.ErrNotFound.
	GetDocumentByFilename(ctx context.Context, filename string) (domain.Document, error)

	// ListDocuments returns all documents, newest first.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// ExistsWithChunks reports whether a document with this filename exists
	// and already has at least one chunk.
	ExistsWithChunks(ctx context.Context, filename string) (bool, error)

	// CreateChunks inserts all chunks of one document in a single
	// transaction. Embedding dimensions and model tags are validated here.
	CreateChunks(ctx context.Context, chunks []domain.Chunk) error

	// DeleteChunksByDocument removes all chunks of a document.
	DeleteChunksByDocument(ctx context.Context, documentID string) error

	// CountChunks returns the number of chunks stored for a document.
	CountChunks(ctx context.Context, documentID string) (int, error)

	// Nearest returns up to K chunks ordered by descending cosine
	// similarity to the query vector in the given embedding space. Chunks
	// without a vector in that space are never returned.
	Nearest(ctx context.Context, q NearestQuery) ([]ChunkMatch, error)

	// SearchContent performs a case-insensitive substring search over chunk
	// content for any of the given terms, up to k results, newest first.
	SearchContent(ctx context.Context, terms []string, k int) ([]ChunkMatch, error)

	Close() error
}
