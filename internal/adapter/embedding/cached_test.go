package embedding

import (
	"context"
	"path/filepath"
	"testing"
)

// countingEmbedder records which texts reached the inner embedder.
type countingEmbedder struct {
	*MockEmbedder
	embedded [][]string
}

func (c *countingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	c.embedded = append(c.embedded, texts)
	return c.MockEmbedder.EmbedTexts(ctx, texts)
}

func TestCachedEmbedder_ServesHitsFromCache(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(32)}
	cached, err := NewCachedEmbedder(inner, filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer cached.Close()

	ctx := context.Background()
	first, err := cached.EmbedTexts(ctx, []string{"alpha", "beta"})
	if err != nil {
		t.Fatal(err)
	}
	if len(inner.embedded) != 1 {
		t.Fatalf("expected one inner call, got %d", len(inner.embedded))
	}

	second, err := cached.EmbedTexts(ctx, []string{"alpha", "beta"})
	if err != nil {
		t.Fatal(err)
	}
	if len(inner.embedded) != 1 {
		t.Errorf("expected no further inner calls, got %d", len(inner.embedded))
	}
	for i := range first {
		if cosine32(first[i], second[i]) < 0.9999 {
			t.Errorf("vector %d changed across calls", i)
		}
	}
}

func TestCachedEmbedder_OnlyMissesReachInner(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(32)}
	cached, err := NewCachedEmbedder(inner, filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer cached.Close()

	ctx := context.Background()
	if _, err := cached.EmbedTexts(ctx, []string{"alpha"}); err != nil {
		t.Fatal(err)
	}
	vecs, err := cached.EmbedTexts(ctx, []string{"alpha", "beta", "gamma"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vecs))
	}
	for i, v := range vecs {
		if v == nil {
			t.Errorf("vector %d is nil", i)
		}
	}

	// Second call only embeds the two new texts.
	last := inner.embedded[len(inner.embedded)-1]
	if len(last) != 2 || last[0] != "beta" || last[1] != "gamma" {
		t.Errorf("expected only misses to reach inner embedder, got %v", last)
	}
}

func TestCachedEmbedder_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	inner1 := &countingEmbedder{MockEmbedder: NewMockEmbedder(32)}
	cached1, err := NewCachedEmbedder(inner1, path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cached1.EmbedTexts(ctx, []string{"alpha"}); err != nil {
		t.Fatal(err)
	}
	if err := cached1.Close(); err != nil {
		t.Fatal(err)
	}

	inner2 := &countingEmbedder{MockEmbedder: NewMockEmbedder(32)}
	cached2, err := NewCachedEmbedder(inner2, path)
	if err != nil {
		t.Fatal(err)
	}
	defer cached2.Close()
	if _, err := cached2.EmbedTexts(ctx, []string{"alpha"}); err != nil {
		t.Fatal(err)
	}
	if len(inner2.embedded) != 0 {
		t.Errorf("expected reopened cache to serve the hit, inner saw %v", inner2.embedded)
	}
}
