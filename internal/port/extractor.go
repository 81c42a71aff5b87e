package port

import (
	"context"
	"io"

	"docqa/internal/domain"
)

// Extractor turns an uploaded artifact into raw text.
type Extractor interface {
	// FileType reports which artifact type this extractor handles.
	FileType() domain.FileType

	// Extract reads the artifact and returns its text content.
	Extract(ctx context.Context, r io.Reader) (string, error)
}

// Chunker splits extracted text into retrieval units.
type Chunker interface {
	// Split returns non-empty chunks of the text. Chunk length and overlap
	// are properties of the chunker, not of the call.
	Split(text string) []string
}
