package cli

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"docqa/config"
	"docqa/internal/adapter/cache"
	"docqa/internal/adapter/chunker"
	"docqa/internal/adapter/embedding"
	"docqa/internal/adapter/extractor"
	"docqa/internal/adapter/llm"
	"docqa/internal/adapter/retriever"
	"docqa/internal/adapter/store"
	"docqa/internal/port"
	"docqa/internal/usecase"
	"docqa/pkg/logger"
)

// app holds the wired object graph shared by the serve, ingest and query
// commands.
type app struct {
	cfg       *config.Config
	store     port.ChunkStore
	provider  *embedding.Provider
	ingestor  *usecase.Ingestor
	engine    *usecase.Engine
	assembler *usecase.Assembler

	closers []func() error
}

func newApp(ctx context.Context, cfg *config.Config, log logger.Logger) (*app, error) {
	a := &app{cfg: cfg}

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	secondaryDim := 0
	if cfg.Multimodal.Enabled {
		secondaryDim = cfg.Multimodal.Dimension
	}

	// The store open and the multimodal capability probe are independent
	// and the probe can take seconds, so they run concurrently.
	var multimodal port.MultimodalEmbedder
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		st, err := store.Open(cfg.ChunkDBPath(), cfg.Embedding.Dimension, secondaryDim)
		if err != nil {
			return fmt.Errorf("failed to open chunk store: %w", err)
		}
		a.store = st
		a.closers = append(a.closers, st.Close)
		return nil
	})
	g.Go(func() error {
		if !cfg.Multimodal.Enabled {
			return nil
		}
		clip, err := embedding.NewClipEmbedder(gctx, cfg.Multimodal.BaseURL, cfg.Multimodal.Model, cfg.Multimodal.Dimension, log)
		if err != nil {
			// The multimodal space is an optional capability. A failed
			// probe disables it for the process lifetime.
			log.Warn("multimodal embedder unavailable, continuing without it", logger.Err(err))
			return nil
		}
		multimodal = clip
		return nil
	})
	if err := g.Wait(); err != nil {
		a.Close()
		return nil, err
	}

	text, err := buildTextEmbedder(cfg, a)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.provider = embedding.NewProvider(text, multimodal)

	generator, err := llm.NewOpenAIClient(cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.APIKeyEnv, cfg.LLM.Timeout)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to build llm client: %w", err)
	}

	var expander *retriever.Expander
	if cfg.Retrieve.MultiQueryEnabled {
		expander = retriever.NewExpander(generator, cfg.Retrieve.QueryVariations, cfg.Retrieve.ExpandTimeout, log)
	}

	var resultCache cache.ResultCache
	if cfg.Cache.Enabled {
		if cfg.Cache.RedisAddr != "" {
			rc, err := cache.NewRedisCache(ctx, cfg.Cache.RedisAddr, cfg.Cache.TTL, log)
			if err != nil {
				log.Warn("redis unavailable, using in-process cache", logger.Err(err))
				resultCache = cache.NewQueryCache(cfg.Cache.MaxSize, cfg.Cache.TTL)
			} else {
				resultCache = rc
			}
		} else {
			resultCache = cache.NewQueryCache(cfg.Cache.MaxSize, cfg.Cache.TTL)
		}
	}

	registry := extractor.NewRegistry(
		extractor.NewPDFExtractor(log),
		extractor.NewImageExtractor(cfg.Ingest.OCRLanguages, log),
		extractor.NewPlaintextExtractor(),
	)
	split := chunker.NewRecursiveChunker(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)

	a.ingestor = usecase.NewIngestor(a.store, registry, split, a.provider, resultCache, cfg.Multimodal, log)
	a.engine = usecase.NewEngine(a.store, a.provider, expander, resultCache, cfg.Retrieve, log)
	a.assembler = usecase.NewAssembler(a.engine, generator, cfg.LLM.Timeout, log)
	return a, nil
}

func buildTextEmbedder(cfg *config.Config, a *app) (port.Embedder, error) {
	var (
		inner port.Embedder
		err   error
	)
	switch cfg.Embedding.Provider {
	case "mock":
		inner = embedding.NewMockEmbedder(cfg.Embedding.Dimension)
	default:
		inner, err = embedding.NewOpenAIEmbedder(
			cfg.Embedding.BaseURL, cfg.Embedding.Model, cfg.Embedding.APIKeyEnv,
			cfg.Embedding.Dimension, cfg.Embedding.BatchSize)
		if err != nil {
			return nil, fmt.Errorf("failed to build embedder: %w", err)
		}
	}

	if !cfg.Embedding.CacheDB {
		return inner, nil
	}
	cached, err := embedding.NewCachedEmbedder(inner, cfg.EmbedCachePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open embedding cache: %w", err)
	}
	a.closers = append(a.closers, cached.Close)
	return cached, nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}
