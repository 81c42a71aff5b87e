package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"docqa/internal/domain"
	"docqa/internal/usecase"
	"docqa/pkg/logger"
)

type uploadResponse struct {
	DocumentID    string `json:"document_id"`
	Filename      string `json:"filename"`
	Status        string `json:"status"`
	ChunksCreated int    `json:"chunks_created"`
	TotalChunks   int    `json:"total_chunks"`
	Duplicate     bool   `json:"duplicate"`
}

type documentResponse struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	FileType  string    `json:"file_type"`
	SizeBytes int64     `json:"size_bytes"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type searchRequest struct {
	Query string `json:"query" binding:"required"`
	TopK  int    `json:"top_k"`
}

type searchHit struct {
	Content  string  `json:"content"`
	Score    float64 `json:"score"`
	Source   string  `json:"source"`
	Filename string  `json:"filename"`
}

type chatRequest struct {
	Message string            `json:"message" binding:"required"`
	History []domain.ChatTurn `json:"history"`
}

type chatResponse struct {
	Answer          string   `json:"answer"`
	Confidence      float64  `json:"confidence"`
	ConfidenceLabel string   `json:"confidence_label"`
	SourceFiles     []string `json:"source_files"`
	Found           bool     `json:"found"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":             "ok",
		"multimodal_enabled": s.provider.MultimodalEnabled(),
	})
}

func (s *Server) handleUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}
	if s.cfg.MaxUploadBytes > 0 && fileHeader.Size > s.cfg.MaxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read uploaded file"})
		return
	}
	defer f.Close()

	replace := c.Query("replace") == "true"
	result, err := s.ingestor.Ingest(c.Request.Context(), fileHeader.Filename, f, usecase.IngestOptions{Replace: replace})
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedFileType) {
			c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error()})
			return
		}
		s.log.Error("ingestion failed",
			logger.String("filename", fileHeader.Filename), logger.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "ingestion failed"})
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, uploadResponse{
		DocumentID:    result.DocumentID,
		Filename:      fileHeader.Filename,
		Status:        string(result.Status),
		ChunksCreated: result.ChunksCreated,
		TotalChunks:   result.TotalChunks,
		Duplicate:     result.Duplicate,
	})
}

func (s *Server) handleListDocuments(c *gin.Context) {
	docs, err := s.store.ListDocuments(c.Request.Context())
	if err != nil {
		s.log.Error("failed to list documents", logger.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list documents"})
		return
	}
	out := make([]documentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, documentResponse{
			ID:        d.ID,
			Filename:  d.Filename,
			FileType:  string(d.FileType),
			SizeBytes: d.SizeBytes,
			Status:    string(d.Status),
			CreatedAt: d.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"documents": out})
}

func (s *Server) handleSearch(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	results, err := s.engine.Retrieve(c.Request.Context(), req.Query, usecase.RetrieveOptions{TopK: req.TopK})
	if err != nil {
		s.log.Error("retrieval failed", logger.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "retrieval failed"})
		return
	}

	hits := make([]searchHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, searchHit{
			Content:  r.Chunk.Content,
			Score:    r.Score,
			Source:   string(r.Source),
			Filename: r.Filename,
		})
	}
	c.JSON(http.StatusOK, gin.H{"results": hits})
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	answer, err := s.assembler.Answer(c.Request.Context(), req.Message, req.History)
	if err != nil {
		s.log.Error("chat failed", logger.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to answer"})
		return
	}

	c.JSON(http.StatusOK, chatResponse{
		Answer:          answer.Text,
		Confidence:      answer.Confidence,
		ConfidenceLabel: answer.ConfidenceLabel,
		SourceFiles:     answer.SourceFiles,
		Found:           answer.Found,
	})
}
