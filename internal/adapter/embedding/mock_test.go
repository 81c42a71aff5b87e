package embedding

import (
	"context"
	"math"
	"testing"
)

func cosine32(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestMockEmbedder_Deterministic(t *testing.T) {
	e := NewMockEmbedder(64)
	ctx := context.Background()

	a, err := e.EmbedTexts(ctx, []string{"the quarterly revenue"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.EmbedTexts(ctx, []string{"the quarterly revenue"})
	if err != nil {
		t.Fatal(err)
	}
	if sim := cosine32(a[0], b[0]); sim < 0.9999 {
		t.Errorf("expected identical vectors for identical text, cosine %f", sim)
	}
}

func TestMockEmbedder_SharedWordsRaiseSimilarity(t *testing.T) {
	e := NewMockEmbedder(64)
	ctx := context.Background()

	vecs, err := e.EmbedTexts(ctx, []string{
		"What was the quarterly revenue?",
		"The quarterly revenue was 5 million dollars.",
		"Preheat the oven and whisk the eggs.",
	})
	if err != nil {
		t.Fatal(err)
	}

	related := cosine32(vecs[0], vecs[1])
	unrelated := cosine32(vecs[0], vecs[2])
	if related <= unrelated {
		t.Errorf("expected related text to score higher: %f vs %f", related, unrelated)
	}
	if related < 0.3 {
		t.Errorf("expected clear overlap signal, got %f", related)
	}
}

func TestMockEmbedder_NormalizedAndSized(t *testing.T) {
	e := NewMockEmbedder(32)
	vecs, err := e.EmbedTexts(context.Background(), []string{"some words here"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs[0]) != 32 {
		t.Fatalf("expected dimension 32, got %d", len(vecs[0]))
	}
	var norm float64
	for _, v := range vecs[0] {
		norm += float64(v) * float64(v)
	}
	if math.Abs(norm-1.0) > 1e-5 {
		t.Errorf("expected unit norm, got %f", math.Sqrt(norm))
	}
}

func TestMockEmbedder_Fail(t *testing.T) {
	e := NewMockEmbedder(32)
	e.Fail = true
	if _, err := e.EmbedTexts(context.Background(), []string{"x"}); err == nil {
		t.Error("expected forced failure")
	}
	if _, err := e.EmbedImages(context.Background(), [][]byte{{1}}); err == nil {
		t.Error("expected forced failure")
	}
}
