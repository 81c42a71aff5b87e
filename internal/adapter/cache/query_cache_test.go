package cache

import (
	"context"
	"testing"
	"time"

	"docqa/internal/domain"
)

func resultsFor(id string) []domain.RetrievalResult {
	return []domain.RetrievalResult{{Chunk: domain.Chunk{ID: id}, Score: 0.5}}
}

func TestQueryCache_PutGet(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	ctx := context.Background()

	if _, ok := c.Get(ctx, "query", 5); ok {
		t.Error("expected miss on empty cache")
	}

	c.Put(ctx, "query", 5, resultsFor("c1"))
	got, ok := c.Get(ctx, "query", 5)
	if !ok {
		t.Fatal("expected hit")
	}
	if len(got) != 1 || got[0].Chunk.ID != "c1" {
		t.Errorf("unexpected results: %+v", got)
	}

	// Same query with a different topK is a different entry.
	if _, ok := c.Get(ctx, "query", 3); ok {
		t.Error("expected miss for different topK")
	}
}

func TestQueryCache_TTLExpiry(t *testing.T) {
	c := NewQueryCache(10, 10*time.Millisecond)
	ctx := context.Background()

	c.Put(ctx, "query", 5, resultsFor("c1"))
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get(ctx, "query", 5); ok {
		t.Error("expected expired entry to miss")
	}
	if c.Size() != 0 {
		t.Errorf("expected expired entry removed, size %d", c.Size())
	}
}

func TestQueryCache_InvalidateDropsEverything(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	ctx := context.Background()

	c.Put(ctx, "a", 5, resultsFor("c1"))
	c.Put(ctx, "b", 5, resultsFor("c2"))
	c.Invalidate(ctx)

	if _, ok := c.Get(ctx, "a", 5); ok {
		t.Error("expected miss after invalidation")
	}
	if _, ok := c.Get(ctx, "b", 5); ok {
		t.Error("expected miss after invalidation")
	}
	if c.Size() != 0 {
		t.Errorf("expected empty cache, size %d", c.Size())
	}
}

func TestQueryCache_EvictsOldest(t *testing.T) {
	c := NewQueryCache(2, time.Minute)
	ctx := context.Background()

	c.Put(ctx, "first", 5, resultsFor("c1"))
	c.Put(ctx, "second", 5, resultsFor("c2"))
	// Touch "first" so "second" becomes the LRU victim.
	if _, ok := c.Get(ctx, "first", 5); !ok {
		t.Fatal("expected hit")
	}
	c.Put(ctx, "third", 5, resultsFor("c3"))

	if _, ok := c.Get(ctx, "second", 5); ok {
		t.Error("expected LRU entry evicted")
	}
	if _, ok := c.Get(ctx, "first", 5); !ok {
		t.Error("expected recently used entry kept")
	}
	if _, ok := c.Get(ctx, "third", 5); !ok {
		t.Error("expected new entry present")
	}
}
