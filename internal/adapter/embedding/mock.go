package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// MockEmbedder produces deterministic bag-of-words vectors by hashing
// tokens into dimension buckets and normalizing. Texts that share words get
// proportionally similar vectors, which makes retrieval behavior observable
// in tests without a model server.
type MockEmbedder struct {
	dimension int
	model     string
	// Fail forces every call to error, for degradation tests.
	Fail bool
}

func NewMockEmbedder(dimension int) *MockEmbedder {
	return &MockEmbedder{dimension: dimension, model: "mock"}
}

func (e *MockEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	if e.Fail {
		return nil, errMockFailure
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.embed(text)
	}
	return vectors, nil
}

// EmbedImages hashes raw bytes the same way, so MockEmbedder can stand in
// for the multimodal embedder as well.
func (e *MockEmbedder) EmbedImages(_ context.Context, images [][]byte) ([][]float32, error) {
	if e.Fail {
		return nil, errMockFailure
	}
	vectors := make([][]float32, len(images))
	for i, img := range images {
		vectors[i] = e.embed(string(img))
	}
	return vectors, nil
}

func (e *MockEmbedder) embed(text string) []float32 {
	vec := make([]float32, e.dimension)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		if seen[tok] {
			continue
		}
		seen[tok] = true
		h := fnv.New32a()
		h.Write([]byte(tok))
		vec[int(h.Sum32())%e.dimension] = 1
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec
}

func (e *MockEmbedder) Dimension() int { return e.dimension }

func (e *MockEmbedder) ModelName() string { return e.model }

type mockError string

func (e mockError) Error() string { return string(e) }

const errMockFailure = mockError("mock embedder failure")
