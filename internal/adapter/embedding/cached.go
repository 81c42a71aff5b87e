package embedding

import (
	"context"
	"crypto/sha256"
	"fmt"

	"go.etcd.io/bbolt"

	"docqa/internal/adapter/store"
	"docqa/internal/port"
)

var bucketEmbeddings = []byte("embeddings")

// CachedEmbedder wraps an Embedder with a persistent bbolt cache keyed by
// sha256(model|text). Chunk text is stable across re-uploads, so re-ingesting
// a replaced document only pays for text that actually changed.
type CachedEmbedder struct {
	inner port.Embedder
	db    *bbolt.DB
}

// NewCachedEmbedder opens (or creates) the cache database at path.
func NewCachedEmbedder(inner port.Embedder, path string) (*CachedEmbedder, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding cache: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEmbeddings)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create embedding cache bucket: %w", err)
	}
	return &CachedEmbedder{inner: inner, db: db}, nil
}

// EmbedTexts serves cached vectors where possible and embeds only the
// misses, preserving input order. The miss batch still goes through the
// inner embedder in one call.
func (c *CachedEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(texts))
	keys := make([][]byte, len(texts))
	var missIdx []int

	err := c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEmbeddings)
		for i, text := range texts {
			keys[i] = c.cacheKey(text)
			if data := b.Get(keys[i]); data != nil {
				vec, err := store.DecodeVector(data)
				if err != nil {
					// Corrupt entry; treat as a miss.
					missIdx = append(missIdx, i)
					continue
				}
				vectors[i] = vec
			} else {
				missIdx = append(missIdx, i)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("embedding cache read failed: %w", err)
	}

	if len(missIdx) == 0 {
		return vectors, nil
	}

	missTexts := make([]string, len(missIdx))
	for i, idx := range missIdx {
		missTexts[i] = texts[idx]
	}
	fresh, err := c.inner.EmbedTexts(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missIdx) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d inputs", len(fresh), len(missIdx))
	}

	err = c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEmbeddings)
		for i, idx := range missIdx {
			vectors[idx] = fresh[i]
			if err := b.Put(keys[idx], store.EncodeVector(fresh[i])); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("embedding cache write failed: %w", err)
	}
	return vectors, nil
}

func (c *CachedEmbedder) cacheKey(text string) []byte {
	h := sha256.Sum256([]byte(c.inner.ModelName() + "|" + text))
	return h[:]
}

func (c *CachedEmbedder) Dimension() int { return c.inner.Dimension() }

func (c *CachedEmbedder) ModelName() string { return c.inner.ModelName() }

func (c *CachedEmbedder) Close() error { return c.db.Close() }
