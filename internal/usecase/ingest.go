package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"docqa/config"
	"docqa/internal/adapter/cache"
	"docqa/internal/adapter/embedding"
	"docqa/internal/adapter/extractor"
	"docqa/internal/domain"
	"docqa/internal/port"
	"docqa/pkg/logger"
)

// IngestOptions tune a single ingestion call.
type IngestOptions struct {
	// Replace re-ingests even when the filename already has chunks,
	// discarding the previous document.
	Replace bool
}

// IngestResult summarizes one ingestion call.
type IngestResult struct {
	DocumentID    string
	ChunksCreated int

	// TotalChunks is the chunk count stored for the document after the
	// call, whether or not this call created them.
	TotalChunks int

	Status domain.DocumentStatus

	// Duplicate is true when the filename was already ingested and the call
	// short-circuited without touching the store.
	Duplicate bool
}

// Ingestor runs the ingestion pipeline: type resolution, text extraction,
// chunking, batch embedding, persistence. Concurrent calls for distinct
// filenames proceed in parallel; calls for the same filename serialize.
type Ingestor struct {
	store      port.ChunkStore
	extractors *extractor.Registry
	chunker    port.Chunker
	provider   *embedding.Provider
	cache      cache.ResultCache
	cfg        config.MultimodalConfig
	log        logger.Logger

	mu    sync.Mutex
	locks map[string]*filenameLock
}

// filenameLock serializes ingestion per filename. Holders are counted so
// the map entry can be dropped once the last one releases.
type filenameLock struct {
	mu      sync.Mutex
	holders int
}

// NewIngestor wires the pipeline. cache may be nil.
func NewIngestor(
	store port.ChunkStore,
	extractors *extractor.Registry,
	chunker port.Chunker,
	provider *embedding.Provider,
	resultCache cache.ResultCache,
	cfg config.MultimodalConfig,
	log logger.Logger,
) *Ingestor {
	return &Ingestor{
		store:      store,
		extractors: extractors,
		chunker:    chunker,
		provider:   provider,
		cache:      resultCache,
		cfg:        cfg,
		log:        log,
		locks:      make(map[string]*filenameLock),
	}
}

// Ingest processes one artifact end to end. On extraction or primary
// embedding failure the document is recorded with StatusFailed and the
// error returned; secondary embedding failure only degrades the chunks to
// single-space.
func (in *Ingestor) Ingest(ctx context.Context, filename string, r io.Reader, opts IngestOptions) (IngestResult, error) {
	in.lockFilename(filename)
	defer in.unlockFilename(filename)

	fileType, err := extractor.TypeOf(filename)
	if err != nil {
		return IngestResult{}, err
	}

	if !opts.Replace {
		exists, err := in.store.ExistsWithChunks(ctx, filename)
		if err != nil {
			return IngestResult{}, fmt.Errorf("failed to check for existing document: %w", err)
		}
		if exists {
			doc, err := in.store.GetDocumentByFilename(ctx, filename)
			if err != nil {
				return IngestResult{}, fmt.Errorf("failed to load existing document: %w", err)
			}
			total, err := in.store.CountChunks(ctx, doc.ID)
			if err != nil {
				return IngestResult{}, fmt.Errorf("failed to count existing chunks: %w", err)
			}
			in.log.Info("document already ingested, skipping",
				logger.String("filename", filename),
				logger.String("document_id", doc.ID))
			return IngestResult{
				DocumentID:  doc.ID,
				TotalChunks: total,
				Status:      doc.Status,
				Duplicate:   true,
			}, nil
		}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return IngestResult{}, fmt.Errorf("failed to read %s: %w", filename, err)
	}

	doc := domain.Document{
		ID:        uuid.NewString(),
		Filename:  filename,
		FileType:  fileType,
		SizeBytes: int64(len(data)),
		Status:    domain.StatusPending,
		CreatedAt: time.Now(),
	}
	if err := in.store.CreateDocument(ctx, doc); err != nil {
		return IngestResult{}, fmt.Errorf("failed to create document: %w", err)
	}

	chunks, err := in.process(ctx, doc, data)
	if err != nil {
		if serr := in.store.SetDocumentStatus(ctx, doc.ID, domain.StatusFailed); serr != nil {
			in.log.Error("failed to mark document as failed",
				logger.String("document_id", doc.ID), logger.Err(serr))
		}
		return IngestResult{DocumentID: doc.ID, Status: domain.StatusFailed}, err
	}

	if err := in.store.CreateChunks(ctx, chunks); err != nil {
		if serr := in.store.SetDocumentStatus(ctx, doc.ID, domain.StatusFailed); serr != nil {
			in.log.Error("failed to mark document as failed",
				logger.String("document_id", doc.ID), logger.Err(serr))
		}
		return IngestResult{DocumentID: doc.ID, Status: domain.StatusFailed},
			fmt.Errorf("failed to persist chunks: %w", err)
	}
	if err := in.store.SetDocumentStatus(ctx, doc.ID, domain.StatusProcessed); err != nil {
		return IngestResult{DocumentID: doc.ID, Status: domain.StatusPending},
			fmt.Errorf("failed to mark document as processed: %w", err)
	}

	if in.cache != nil {
		in.cache.Invalidate(ctx)
	}

	in.log.Info("document ingested",
		logger.String("filename", filename),
		logger.String("document_id", doc.ID),
		logger.Int("chunks", len(chunks)))
	return IngestResult{
		DocumentID:    doc.ID,
		ChunksCreated: len(chunks),
		TotalChunks:   len(chunks),
		Status:        domain.StatusProcessed,
	}, nil
}

// process extracts, chunks, and embeds. Returned chunks are complete and
// ready to persist.
func (in *Ingestor) process(ctx context.Context, doc domain.Document, data []byte) ([]domain.Chunk, error) {
	ext, err := in.extractors.For(doc.FileType)
	if err != nil {
		return nil, err
	}
	text, err := ext.Extract(ctx, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to extract text from %s: %w", doc.Filename, err)
	}

	pieces := in.chunker.Split(text)
	if len(pieces) == 0 {
		return nil, fmt.Errorf("no extractable content in %s", doc.Filename)
	}

	primary, err := in.provider.Text().EmbedTexts(ctx, pieces)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(primary) != len(pieces) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(primary), len(pieces))
	}

	now := time.Now()
	chunks := make([]domain.Chunk, len(pieces))
	for i, content := range pieces {
		chunks[i] = domain.Chunk{
			ID:             uuid.NewString(),
			DocumentID:     doc.ID,
			ChunkIndex:     i,
			Content:        content,
			Embedding:      primary[i],
			EmbeddingModel: in.provider.Text().ModelName(),
			Metadata:       map[string]string{"filename": doc.Filename},
			CreatedAt:      now,
		}
	}

	in.embedSecondary(ctx, doc, data, pieces, chunks)
	return chunks, nil
}

// embedSecondary fills the multimodal vectors in place. Images are embedded
// once as raw bytes and the vector shared across all chunks of the
// document; text chunks are embedded individually when configured. Any
// failure here is logged and the chunks stay single-space.
func (in *Ingestor) embedSecondary(ctx context.Context, doc domain.Document, data []byte, pieces []string, chunks []domain.Chunk) {
	if !in.provider.MultimodalEnabled() {
		return
	}
	mm := in.provider.Multimodal()

	switch {
	case doc.FileType == domain.FileTypeImage:
		vecs, err := mm.EmbedImages(ctx, [][]byte{data})
		if err != nil || len(vecs) != 1 {
			in.log.Warn("multimodal image embedding failed, storing text vectors only",
				logger.String("filename", doc.Filename), logger.Err(err))
			return
		}
		for i := range chunks {
			chunks[i].SecondaryEmbedding = vecs[0]
			chunks[i].SecondaryEmbeddingModel = mm.ModelName()
		}
	case in.cfg.EmbedText:
		vecs, err := mm.EmbedTexts(ctx, pieces)
		if err != nil || len(vecs) != len(pieces) {
			in.log.Warn("multimodal text embedding failed, storing text vectors only",
				logger.String("filename", doc.Filename), logger.Err(err))
			return
		}
		for i := range chunks {
			chunks[i].SecondaryEmbedding = vecs[i]
			chunks[i].SecondaryEmbeddingModel = mm.ModelName()
		}
	}
}

func (in *Ingestor) lockFilename(filename string) {
	in.mu.Lock()
	lock, ok := in.locks[filename]
	if !ok {
		lock = &filenameLock{}
		in.locks[filename] = lock
	}
	lock.holders++
	in.mu.Unlock()

	lock.mu.Lock()
}

func (in *Ingestor) unlockFilename(filename string) {
	in.mu.Lock()
	lock := in.locks[filename]
	lock.holders--
	if lock.holders == 0 {
		delete(in.locks, filename)
	}
	in.mu.Unlock()

	lock.mu.Unlock()
}
