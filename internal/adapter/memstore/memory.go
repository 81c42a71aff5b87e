package memstore

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"docqa/internal/domain"
	"docqa/internal/port"
)

// MemoryStore is an in-process ChunkStore. Similarity is computed by brute
// force, which is fine for the small corpora it is meant for: tests and
// ephemeral runs without a data directory.
type MemoryStore struct {
	mu        sync.RWMutex
	docs      map[string]domain.Document
	byName    map[string]string
	chunks    map[string]domain.Chunk
	docChunks map[string][]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:      make(map[string]domain.Document),
		byName:    make(map[string]string),
		chunks:    make(map[string]domain.Chunk),
		docChunks: make(map[string][]string),
	}
}

func (s *MemoryStore) CreateDocument(_ context.Context, doc domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prevID, ok := s.byName[doc.Filename]; ok {
		s.removeDocumentLocked(prevID)
	}
	s.docs[doc.ID] = doc
	s.byName[doc.Filename] = doc.ID
	return nil
}

func (s *MemoryStore) SetDocumentStatus(_ context.Context, id string, status domain.DocumentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return domain.ErrNotFound
	}
	doc.Status = status
	s.docs[id] = doc
	return nil
}

func (s *MemoryStore) GetDocument(_ context.Context, id string) (domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return domain.Document{}, domain.ErrNotFound
	}
	return doc, nil
}

func (s *MemoryStore) GetDocumentByFilename(_ context.Context, filename string) (domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byName[filename]
	if !ok {
		return domain.Document{}, domain.ErrNotFound
	}
	return s.docs[id], nil
}

func (s *MemoryStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]domain.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
	return docs, nil
}

func (s *MemoryStore) ExistsWithChunks(_ context.Context, filename string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byName[filename]
	if !ok {
		return false, nil
	}
	return len(s.docChunks[id]) > 0, nil
}

func (s *MemoryStore) CreateChunks(_ context.Context, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range chunks {
		s.chunks[c.ID] = c
		s.docChunks[c.DocumentID] = append(s.docChunks[c.DocumentID], c.ID)
	}
	return nil
}

func (s *MemoryStore) DeleteChunksByDocument(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.docChunks[documentID] {
		delete(s.chunks, id)
	}
	delete(s.docChunks, documentID)
	return nil
}

func (s *MemoryStore) CountChunks(_ context.Context, documentID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docChunks[documentID]), nil
}

func (s *MemoryStore) Nearest(_ context.Context, q port.NearestQuery) ([]port.ChunkMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []port.ChunkMatch
	for _, c := range s.chunks {
		vec := c.Embedding
		if q.Space == domain.SpaceMultimodal {
			vec = c.SecondaryEmbedding
		}
		if vec == nil {
			continue
		}
		if !q.DateFrom.IsZero() && c.CreatedAt.Before(q.DateFrom) {
			continue
		}
		if !q.DateTo.IsZero() && c.CreatedAt.After(q.DateTo) {
			continue
		}
		doc := s.docs[c.DocumentID]
		matches = append(matches, port.ChunkMatch{
			Chunk:      c,
			Similarity: cosine(vec, q.Vector),
			Filename:   doc.Filename,
			FileType:   doc.FileType,
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].Chunk.CreatedAt.After(matches[j].Chunk.CreatedAt)
	})
	if q.K > 0 && len(matches) > q.K {
		matches = matches[:q.K]
	}
	return matches, nil
}

func (s *MemoryStore) SearchContent(_ context.Context, terms []string, k int) ([]port.ChunkMatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []port.ChunkMatch
	for _, c := range s.chunks {
		content := strings.ToLower(c.Content)
		for _, term := range terms {
			if term == "" {
				continue
			}
			if strings.Contains(content, strings.ToLower(term)) {
				doc := s.docs[c.DocumentID]
				matches = append(matches, port.ChunkMatch{
					Chunk:    c,
					Filename: doc.Filename,
					FileType: doc.FileType,
				})
				break
			}
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Chunk.CreatedAt.After(matches[j].Chunk.CreatedAt)
	})
	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func (s *MemoryStore) Close() error { return nil }

// SetChunkCreatedAt rewrites a stored chunk's timestamp. Test helper for
// recency behavior.
func (s *MemoryStore) SetChunkCreatedAt(id string, t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.chunks[id]; ok {
		c.CreatedAt = t
		s.chunks[id] = c
	}
}

func (s *MemoryStore) removeDocumentLocked(id string) {
	for _, cid := range s.docChunks[id] {
		delete(s.chunks, cid)
	}
	delete(s.docChunks, id)
	if doc, ok := s.docs[id]; ok {
		delete(s.byName, doc.Filename)
	}
	delete(s.docs, id)
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
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
