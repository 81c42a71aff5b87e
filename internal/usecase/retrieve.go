package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"docqa/config"
	"docqa/internal/adapter/analyzer"
	"docqa/internal/adapter/cache"
	"docqa/internal/adapter/embedding"
	"docqa/internal/adapter/retriever"
	"docqa/internal/domain"
	"docqa/internal/port"
	"docqa/pkg/logger"
)

// candidateFactor is the headroom multiplier for per-space searches: fusion
// and deduplication need more candidates than the final top-k.
const candidateFactor = 3

// RetrieveOptions tune a single retrieval call. Zero values fall back to
// the configured defaults.
type RetrieveOptions struct {
	TopK     int
	DateFrom time.Time
	DateTo   time.Time

	// NoExpansion forces single-query search even when multi-query is
	// configured.
	NoExpansion bool
}

// Engine is the retrieval engine: recency-aware, dual-embedding-space
// similarity search with multi-query fusion and keyword fallback.
//
// A query moves through a fixed sequence: embed, optional expansion, vector
// search per (variant, space), recency boost, max-fusion, threshold check,
// keyword fallback when weak, rank, truncate.
type Engine struct {
	store    port.ChunkStore
	provider *embedding.Provider
	expander *retriever.Expander
	cache    cache.ResultCache
	cfg      config.RetrieveConfig
	log      logger.Logger

	// now is swappable for recency tests.
	now func() time.Time
}

// NewEngine wires the engine. expander and cache may be nil, which disables
// multi-query expansion and result caching respectively.
func NewEngine(
	store port.ChunkStore,
	provider *embedding.Provider,
	expander *retriever.Expander,
	resultCache cache.ResultCache,
	cfg config.RetrieveConfig,
	log logger.Logger,
) *Engine {
	return &Engine{
		store:    store,
		provider: provider,
		expander: expander,
		cache:    resultCache,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// Retrieve returns up to topK chunks ranked by adjusted similarity. An
// empty store yields an empty slice, not an error. A query-embedding or
// store failure is fatal; everything else degrades to a narrower strategy.
func (e *Engine) Retrieve(ctx context.Context, query string, opts RetrieveOptions) ([]domain.RetrievalResult, error) {
	topK := opts.TopK
	if topK <= 0 {
		topK = e.cfg.TopK
	}

	// The cache key is (query, topK); a date window or expansion override
	// changes the result set in ways the key cannot express, so such calls
	// bypass the cache entirely.
	useCache := e.cache != nil &&
		opts.DateFrom.IsZero() && opts.DateTo.IsZero() && !opts.NoExpansion
	if useCache {
		if results, ok := e.cache.Get(ctx, query, topK); ok {
			return results, nil
		}
	}

	queries := []string{query}
	if e.expander != nil && !opts.NoExpansion {
		queries = e.expander.Expand(ctx, query)
	}

	candidates, err := e.vectorSearch(ctx, queries, topK*candidateFactor, opts)
	if err != nil {
		return nil, err
	}

	fused := fuseMax(candidates)

	if best := bestScore(fused); best < e.cfg.SimilarityThreshold {
		e.log.Debug("vector results below threshold, using keyword fallback",
			logger.Float64("best_score", best),
			logger.Float64("threshold", e.cfg.SimilarityThreshold))
		fallback, err := e.keywordFallback(ctx, query, topK)
		if err != nil {
			return nil, err
		}
		// Fallback is last-resort: it replaces the weak vector set rather
		// than competing with it.
		fused = fallback
	}

	results := rank(fused, topK)
	if useCache {
		e.cache.Put(ctx, query, topK, results)
	}
	return results, nil
}

// vectorSearch embeds all query variants per available space and runs the
// (variant x space) searches concurrently. Primary embedding failure is
// fatal; multimodal embedding failure degrades to primary-only search.
func (e *Engine) vectorSearch(ctx context.Context, queries []string, k int, opts RetrieveOptions) ([]domain.RetrievalResult, error) {
	primaryVecs, err := e.provider.Text().EmbedTexts(ctx, queries)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	type search struct {
		space  domain.EmbeddingSpace
		source domain.ScoreSource
		vector []float32
	}
	searches := make([]search, 0, len(queries)*2)
	for _, v := range primaryVecs {
		searches = append(searches, search{domain.SpacePrimary, domain.SourceVectorPrimary, v})
	}

	if e.provider.MultimodalEnabled() {
		mmVecs, err := e.provider.Multimodal().EmbedTexts(ctx, queries)
		if err != nil {
			e.log.Warn("multimodal query embedding failed, searching primary space only", logger.Err(err))
		} else {
			for _, v := range mmVecs {
				searches = append(searches, search{domain.SpaceMultimodal, domain.SourceVectorMultimodal, v})
			}
		}
	}

	var (
		mu  sync.Mutex
		all []domain.RetrievalResult
	)
	g, ctx := errgroup.WithContext(ctx)
	for _, s := range searches {
		s := s
		g.Go(func() error {
			matches, err := e.store.Nearest(ctx, port.NearestQuery{
				Space:    s.space,
				Vector:   s.vector,
				K:        k,
				DateFrom: opts.DateFrom,
				DateTo:   opts.DateTo,
			})
			if err != nil {
				return fmt.Errorf("vector search in %s space failed: %w", s.space, err)
			}
			mu.Lock()
			for _, m := range matches {
				all = append(all, domain.RetrievalResult{
					Chunk:    m.Chunk,
					Score:    m.Similarity + e.recencyBoost(m.Chunk.CreatedAt),
					Source:   s.source,
					Filename: m.Filename,
					FileType: m.FileType,
				})
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return all, nil
}

// recencyBoost is the additive score adjustment favoring newer chunks:
// weight * 2^(-age/halfLife), bounded in [0, weight]. It reorders near-ties
// but cannot override a decisively stronger raw similarity.
func (e *Engine) recencyBoost(createdAt time.Time) float64 {
	if e.cfg.RecencyWeight == 0 || createdAt.IsZero() {
		return 0
	}
	age := e.now().Sub(createdAt)
	if age < 0 {
		age = 0
	}
	halfLife := e.cfg.RecencyHalfLife
	if halfLife <= 0 {
		halfLife = 30 * 24 * time.Hour
	}
	factor := math.Exp(-math.Ln2 * float64(age) / float64(halfLife))
	return e.cfg.RecencyWeight * factor
}

// keywordFallback runs the case-insensitive substring search used when
// vector scores are too weak. Matches carry a fixed low confidence so they
// can never masquerade as strong vector hits.
func (e *Engine) keywordFallback(ctx context.Context, query string, topK int) ([]domain.RetrievalResult, error) {
	terms := analyzer.SignificantTerms(query)
	if len(terms) == 0 {
		terms = []string{query}
	}
	matches, err := e.store.SearchContent(ctx, terms, topK)
	if err != nil {
		return nil, fmt.Errorf("keyword fallback search failed: %w", err)
	}

	results := make([]domain.RetrievalResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, domain.RetrievalResult{
			Chunk:    m.Chunk,
			Score:    e.cfg.KeywordFallbackScore,
			Source:   domain.SourceKeyword,
			Filename: m.Filename,
			FileType: m.FileType,
		})
	}
	return results, nil
}

// fuseMax merges results from all (query variant x embedding space)
// searches, keyed by chunk ID. A chunk seen several times keeps its maximum
// score: one strong match proves relevance, and duplicate weak matches must
// not be rewarded or penalized.
func fuseMax(results []domain.RetrievalResult) []domain.RetrievalResult {
	best := make(map[string]domain.RetrievalResult, len(results))
	for _, r := range results {
		if prev, ok := best[r.Chunk.ID]; !ok || r.Score > prev.Score {
			best[r.Chunk.ID] = r
		}
	}
	fused := make([]domain.RetrievalResult, 0, len(best))
	for _, r := range best {
		fused = append(fused, r)
	}
	return fused
}

// rank orders results by score descending, ties broken newer-first, and
// truncates to topK.
func rank(results []domain.RetrievalResult, topK int) []domain.RetrievalResult {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.CreatedAt.After(results[j].Chunk.CreatedAt)
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

func bestScore(results []domain.RetrievalResult) float64 {
	best := math.Inf(-1)
	for _, r := range results {
		if r.Score > best {
			best = r.Score
		}
	}
	if len(results) == 0 {
		return math.Inf(-1)
	}
	return best
}
