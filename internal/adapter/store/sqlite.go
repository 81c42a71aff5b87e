package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // sqlite driver

	"docqa/internal/domain"
	"docqa/internal/port"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id          TEXT PRIMARY KEY,
	filename    TEXT NOT NULL UNIQUE,
	file_type   TEXT NOT NULL,
	size_bytes  INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL,
	created_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS document_chunks (
	id                        TEXT PRIMARY KEY,
	document_id               TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	chunk_index               INTEGER NOT NULL,
	heading                   TEXT,
	content                   TEXT NOT NULL,
	embedding                 BLOB,
	secondary_embedding       BLOB,
	embedding_model           TEXT,
	secondary_embedding_model TEXT,
	metadata                  TEXT,
	created_at                INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_chunks_document ON document_chunks(document_id);
CREATE INDEX IF NOT EXISTS idx_chunks_created ON document_chunks(created_at);
`

// SQLiteStore implements port.ChunkStore over a sqlite database. Nearest-
// neighbor ranking runs inside SQL via the registered vec_cosine function,
// so embeddings are never bulk-loaded into process memory.
type SQLiteStore struct {
	db           *sql.DB
	path         string
	primaryDim   int
	secondaryDim int
}

// Open creates or opens the chunk store at path. primaryDim and
// secondaryDim fix the accepted embedding dimensions per space; a zero
// secondaryDim disables the multimodal column check.
func Open(path string, primaryDim, secondaryDim int) (*SQLiteStore, error) {
	registerVectorFunctions()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	// Pragmas go in the DSN so every pooled connection gets them.
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:           db,
		path:         path,
		primaryDim:   primaryDim,
		secondaryDim: secondaryDim,
	}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

// CreateDocument inserts a document row. An existing document with the same
// filename is replaced; the foreign key cascade removes its chunks.
func (s *SQLiteStore) CreateDocument(ctx context.Context, doc domain.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("document ID must be set")
	}
	if doc.Filename == "" {
		return fmt.Errorf("document filename must be set")
	}
	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM documents WHERE filename = ?`, doc.Filename); err != nil {
		return fmt.Errorf("failed to replace document %q: %w", doc.Filename, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents(id, filename, file_type, size_bytes, status, created_at)
		 VALUES(?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Filename, string(doc.FileType), doc.SizeBytes, string(doc.Status), createdAt.Unix()); err != nil {
		return fmt.Errorf("failed to insert document %q: %w", doc.Filename, err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) SetDocumentStatus(ctx context.Context, id string, status domain.DocumentStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) GetDocument(ctx context.Context, id string) (domain.Document, error) {
	return s.getDocument(ctx, `SELECT id, filename, file_type, size_bytes, status, created_at
		FROM documents WHERE id = ?`, id)
}

func (s *SQLiteStore) GetDocumentByFilename(ctx context.Context, filename string) (domain.Document, error) {
	return s.getDocument(ctx, `SELECT id, filename, file_type, size_bytes, status, created_at
		FROM documents WHERE filename = ?`, filename)
}

func (s *SQLiteStore) getDocument(ctx context.Context, query string, arg any) (domain.Document, error) {
	var (
		doc       domain.Document
		fileType  string
		status    string
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&doc.ID, &doc.Filename, &fileType, &doc.SizeBytes, &status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Document{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Document{}, fmt.Errorf("failed to query document: %w", err)
	}
	doc.FileType = domain.FileType(fileType)
	doc.Status = domain.DocumentStatus(status)
	doc.CreatedAt = time.Unix(createdAt, 0)
	return doc, nil
}

func (s *SQLiteStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, filename, file_type, size_bytes, status, created_at
		FROM documents ORDER BY created_at DESC, filename`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		var (
			doc       domain.Document
			fileType  string
			status    string
			createdAt int64
		)
		if err := rows.Scan(&doc.ID, &doc.Filename, &fileType, &doc.SizeBytes, &status, &createdAt); err != nil {
			return nil, err
		}
		doc.FileType = domain.FileType(fileType)
		doc.Status = domain.DocumentStatus(status)
		doc.CreatedAt = time.Unix(createdAt, 0)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *SQLiteStore) ExistsWithChunks(ctx context.Context, filename string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(c.id) FROM document_chunks c
		 JOIN documents d ON d.id = c.document_id
		 WHERE d.filename = ?`, filename).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check existing chunks: %w", err)
	}
	return n > 0, nil
}

// CreateChunks inserts all chunks of one document in a single transaction.
// Embedding invariants are enforced here: a vector requires its model tag
// (and vice versa) and must match the configured dimension for its space.
func (s *SQLiteStore) CreateChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	for i := range chunks {
		if err := s.validateChunk(&chunks[i]); err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO document_chunks(id, document_id, chunk_index, heading, content,
			embedding, secondary_embedding, embedding_model, secondary_embedding_model,
			metadata, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		var meta any
		if len(c.Metadata) > 0 {
			data, err := json.Marshal(c.Metadata)
			if err != nil {
				return fmt.Errorf("failed to marshal chunk metadata: %w", err)
			}
			meta = string(data)
		}
		if _, err := stmt.ExecContext(ctx,
			c.ID, c.DocumentID, c.ChunkIndex, nullIfEmpty(c.Heading), c.Content,
			EncodeVector(c.Embedding), EncodeVector(c.SecondaryEmbedding),
			nullIfEmpty(c.EmbeddingModel), nullIfEmpty(c.SecondaryEmbeddingModel),
			meta, createdAt.Unix()); err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) validateChunk(c *domain.Chunk) error {
	if c.ID == "" || c.DocumentID == "" {
		return fmt.Errorf("chunk ID and document ID must be set")
	}
	if strings.TrimSpace(c.Content) == "" {
		return fmt.Errorf("chunk content must not be empty")
	}
	if (c.Embedding != nil) != (c.EmbeddingModel != "") {
		return fmt.Errorf("primary embedding and its model tag must be set together")
	}
	if (c.SecondaryEmbedding != nil) != (c.SecondaryEmbeddingModel != "") {
		return fmt.Errorf("secondary embedding and its model tag must be set together")
	}
	if c.Embedding != nil && s.primaryDim > 0 && len(c.Embedding) != s.primaryDim {
		return fmt.Errorf("primary embedding dimension mismatch: expected %d, got %d", s.primaryDim, len(c.Embedding))
	}
	if c.SecondaryEmbedding != nil && s.secondaryDim > 0 && len(c.SecondaryEmbedding) != s.secondaryDim {
		return fmt.Errorf("secondary embedding dimension mismatch: expected %d, got %d", s.secondaryDim, len(c.SecondaryEmbedding))
	}
	return nil
}

func (s *SQLiteStore) DeleteChunksByDocument(ctx context.Context, documentID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM document_chunks WHERE document_id = ?`, documentID)
	if err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CountChunks(ctx context.Context, documentID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM document_chunks WHERE document_id = ?`, documentID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

// Nearest runs a cosine KNN query against one embedding space. Chunks
// without a vector in that space are excluded by the NOT NULL filter.
func (s *SQLiteStore) Nearest(ctx context.Context, q port.NearestQuery) ([]port.ChunkMatch, error) {
	if q.K <= 0 {
		return nil, nil
	}
	column, wantDim := "embedding", s.primaryDim
	if q.Space == domain.SpaceMultimodal {
		column, wantDim = "secondary_embedding", s.secondaryDim
	}
	if wantDim > 0 && len(q.Vector) != wantDim {
		return nil, fmt.Errorf("query dimension mismatch for %s space: expected %d, got %d", q.Space, wantDim, len(q.Vector))
	}

	var sb strings.Builder
	sb.WriteString(`SELECT c.id, c.document_id, c.chunk_index, c.heading, c.content,
		c.embedding_model, c.secondary_embedding_model, c.metadata, c.created_at,
		d.filename, d.file_type, vec_cosine(c.` + column + `, ?) AS sim
		FROM document_chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE c.` + column + ` IS NOT NULL`)
	args := []any{EncodeVector(q.Vector)}

	if !q.DateFrom.IsZero() {
		sb.WriteString(` AND c.created_at >= ?`)
		args = append(args, q.DateFrom.Unix())
	}
	if !q.DateTo.IsZero() {
		sb.WriteString(` AND c.created_at <= ?`)
		args = append(args, q.DateTo.Unix())
	}
	sb.WriteString(` ORDER BY sim DESC, c.created_at DESC LIMIT ?`)
	args = append(args, q.K)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	defer rows.Close()

	var matches []port.ChunkMatch
	for rows.Next() {
		m, sim, err := scanChunkRow(rows)
		if err != nil {
			return nil, err
		}
		m.Similarity = sim
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// SearchContent is the keyword-fallback query: a case-insensitive substring
// match of any term against chunk content.
func (s *SQLiteStore) SearchContent(ctx context.Context, terms []string, k int) ([]port.ChunkMatch, error) {
	if len(terms) == 0 || k <= 0 {
		return nil, nil
	}

	var sb strings.Builder
	sb.WriteString(`SELECT c.id, c.document_id, c.chunk_index, c.heading, c.content,
		c.embedding_model, c.secondary_embedding_model, c.metadata, c.created_at,
		d.filename, d.file_type, 0.0 AS sim
		FROM document_chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE `)
	args := make([]any, 0, len(terms)+1)
	for i, term := range terms {
		if i > 0 {
			sb.WriteString(` OR `)
		}
		sb.WriteString(`instr(lower(c.content), ?) > 0`)
		args = append(args, strings.ToLower(term))
	}
	sb.WriteString(` ORDER BY c.created_at DESC LIMIT ?`)
	args = append(args, k)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("content search failed: %w", err)
	}
	defer rows.Close()

	var matches []port.ChunkMatch
	for rows.Next() {
		m, _, err := scanChunkRow(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func scanChunkRow(rows *sql.Rows) (port.ChunkMatch, float64, error) {
	var (
		m              port.ChunkMatch
		heading        sql.NullString
		primaryModel   sql.NullString
		secondaryModel sql.NullString
		meta           sql.NullString
		createdAt      int64
		fileType       string
		sim            float64
	)
	if err := rows.Scan(&m.Chunk.ID, &m.Chunk.DocumentID, &m.Chunk.ChunkIndex,
		&heading, &m.Chunk.Content, &primaryModel, &secondaryModel, &meta,
		&createdAt, &m.Filename, &fileType, &sim); err != nil {
		return port.ChunkMatch{}, 0, fmt.Errorf("failed to scan chunk row: %w", err)
	}
	m.Chunk.Heading = heading.String
	m.Chunk.EmbeddingModel = primaryModel.String
	m.Chunk.SecondaryEmbeddingModel = secondaryModel.String
	m.Chunk.CreatedAt = time.Unix(createdAt, 0)
	m.FileType = domain.FileType(fileType)
	if meta.Valid && meta.String != "" {
		if err := json.Unmarshal([]byte(meta.String), &m.Chunk.Metadata); err != nil {
			return port.ChunkMatch{}, 0, fmt.Errorf("failed to unmarshal chunk metadata: %w", err)
		}
	}
	return m, sim, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
