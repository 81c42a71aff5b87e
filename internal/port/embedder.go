package port

import "context"

// Embedder generates vector embeddings for text.
type Embedder interface {
	// EmbedTexts generates embeddings for the given texts in one batched
	// call. Returns a slice of vectors, one per input text.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string
}

// MultimodalEmbedder embeds text and images into one shared comparison space.
type MultimodalEmbedder interface {
	Embedder

	// EmbedImages generates embeddings for raw image bytes, one vector per
	// input image.
	EmbedImages(ctx context.Context, images [][]byte) ([][]float32, error)
}
