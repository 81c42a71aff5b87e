package domain

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by stores when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnsupportedFileType is returned when an upload has a type no
	// extractor can handle.
	ErrUnsupportedFileType = errors.New("unsupported file type")
)

// FileType classifies an uploaded artifact.
type FileType string

const (
	FileTypePDF   FileType = "PDF"
	FileTypeImage FileType = "IMAGE"
	FileTypeText  FileType = "TEXT"
)

// DocumentStatus is the processing lifecycle of a document.
type DocumentStatus string

const (
	StatusPending   DocumentStatus = "PENDING"
	StatusProcessed DocumentStatus = "PROCESSED"
	StatusFailed    DocumentStatus = "FAILED"
)

// EmbeddingSpace identifies which vector column a search runs against.
type EmbeddingSpace string

const (
	SpacePrimary    EmbeddingSpace = "primary"
	SpaceMultimodal EmbeddingSpace = "multimodal"
)

// ScoreSource records how a retrieval result was found.
type ScoreSource string

const (
	SourceVectorPrimary    ScoreSource = "vector:primary"
	SourceVectorMultimodal ScoreSource = "vector:multimodal"
	SourceKeyword          ScoreSource = "keyword"
)

// Document is one uploaded artifact. Immutable after it reaches
// StatusProcessed, except by explicit re-ingestion.
type Document struct {
	ID        string
	Filename  string
	FileType  FileType
	SizeBytes int64
	Status    DocumentStatus
	CreatedAt time.Time
}

// Chunk is the unit of retrieval: a bounded segment of a document's
// extracted text with up to two embedding vectors.
type Chunk struct {
	ID         string
	DocumentID string
	ChunkIndex int
	Heading    string
	Content    string

	// Embedding is the primary text-space vector; EmbeddingModel tags the
	// model that produced it. Either both are set or neither is.
	Embedding      []float32
	EmbeddingModel string

	// SecondaryEmbedding is the optional multimodal-space vector.
	SecondaryEmbedding      []float32
	SecondaryEmbeddingModel string

	Metadata  map[string]string
	CreatedAt time.Time
}

// RetrievalResult is one ranked hit for a single query. It lives only for
// the duration of that query and is never persisted.
type RetrievalResult struct {
	Chunk    Chunk
	Score    float64
	Source   ScoreSource
	Filename string
	FileType FileType
}

// Answer is the assembled response for one chat turn.
type Answer struct {
	Text            string
	Confidence      float64
	ConfidenceLabel string
	SourceFiles     []string
	Found           bool
}

// ChatTurn is one (user, assistant) exchange of prior history.
type ChatTurn struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}
