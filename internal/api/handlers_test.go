package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"docqa/config"
	"docqa/internal/adapter/chunker"
	"docqa/internal/adapter/embedding"
	"docqa/internal/adapter/extractor"
	"docqa/internal/adapter/llm"
	"docqa/internal/adapter/memstore"
	"docqa/internal/usecase"
	"docqa/pkg/logger"
)

func newTestServer(t *testing.T, generator *llm.MockLLM) (*Server, *memstore.MemoryStore) {
	t.Helper()

	store := memstore.NewMemoryStore()
	mock := embedding.NewMockEmbedder(64)
	provider := embedding.NewProvider(mock, nil)
	registry := extractor.NewRegistry(extractor.NewPlaintextExtractor())
	split := chunker.NewRecursiveChunker(200, 40)
	log := logger.NewNop()

	retrieveCfg := config.RetrieveConfig{
		TopK:                 5,
		SimilarityThreshold:  0.1,
		RecencyWeight:        0.15,
		RecencyHalfLife:      30 * 24 * time.Hour,
		KeywordFallbackScore: 0.15,
	}

	ingestor := usecase.NewIngestor(store, registry, split, provider, nil, config.MultimodalConfig{}, log)
	engine := usecase.NewEngine(store, provider, nil, nil, retrieveCfg, log)
	assembler := usecase.NewAssembler(engine, generator, time.Minute, log)

	srv := NewServer(config.ServerConfig{Addr: ":0", MaxUploadBytes: 1 << 20},
		ingestor, assembler, engine, store, provider, log)
	return srv, store
}

func multipartUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &body, w.FormDataContentType()
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, &llm.MockLLM{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	srv.router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "ok" {
		t.Errorf("unexpected status: %v", resp["status"])
	}
	if resp["multimodal_enabled"] != false {
		t.Errorf("expected multimodal_enabled=false, got %v", resp["multimodal_enabled"])
	}
}

func TestUploadAndList(t *testing.T) {
	srv, _ := newTestServer(t, &llm.MockLLM{})
	router := srv.router()

	body, contentType := multipartUpload(t, "report.txt", "The quarterly revenue was 5 million dollars.")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var upload uploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &upload); err != nil {
		t.Fatal(err)
	}
	if upload.Status != "PROCESSED" || upload.ChunksCreated == 0 {
		t.Errorf("unexpected upload response: %+v", upload)
	}
	if upload.TotalChunks != upload.ChunksCreated {
		t.Errorf("expected total %d to match created, got %d", upload.ChunksCreated, upload.TotalChunks)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var list struct {
		Documents []documentResponse `json:"documents"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Documents) != 1 || list.Documents[0].Filename != "report.txt" {
		t.Errorf("unexpected documents: %+v", list.Documents)
	}
}

func TestUpload_RejectsUnsupportedType(t *testing.T) {
	srv, _ := newTestServer(t, &llm.MockLLM{})

	body, contentType := multipartUpload(t, "binary.exe", "MZ")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	srv.router().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("expected 415, got %d", rec.Code)
	}
}

func TestUpload_DuplicateReturnsOK(t *testing.T) {
	srv, _ := newTestServer(t, &llm.MockLLM{})
	router := srv.router()

	var uploads []uploadResponse
	for i, wantCode := range []int{http.StatusCreated, http.StatusOK} {
		body, contentType := multipartUpload(t, "report.txt", "same content")
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
		req.Header.Set("Content-Type", contentType)
		router.ServeHTTP(rec, req)
		if rec.Code != wantCode {
			t.Errorf("upload %d: expected %d, got %d", i, wantCode, rec.Code)
		}
		var upload uploadResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &upload); err != nil {
			t.Fatal(err)
		}
		uploads = append(uploads, upload)
	}

	dup := uploads[1]
	if !dup.Duplicate {
		t.Error("expected duplicate flag on the second upload")
	}
	if dup.ChunksCreated != 0 {
		t.Errorf("duplicate must not create chunks, got %d", dup.ChunksCreated)
	}
	if dup.TotalChunks != uploads[0].ChunksCreated {
		t.Errorf("expected total %d from the first upload, got %d",
			uploads[0].ChunksCreated, dup.TotalChunks)
	}
}

func TestSearch(t *testing.T) {
	srv, _ := newTestServer(t, &llm.MockLLM{})
	router := srv.router()

	body, contentType := multipartUpload(t, "finance.txt", "The quarterly revenue was 5 million dollars.")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(rec, req)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/search",
		strings.NewReader(`{"query":"What was the quarterly revenue?"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Results []searchHit `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) == 0 {
		t.Fatal("expected search hits")
	}
	if resp.Results[0].Filename != "finance.txt" {
		t.Errorf("unexpected top hit: %+v", resp.Results[0])
	}
}

func TestSearch_RequiresQuery(t *testing.T) {
	srv, _ := newTestServer(t, &llm.MockLLM{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	srv.router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestChat(t *testing.T) {
	generator := &llm.MockLLM{Response: "Revenue was 5 million dollars. [finance.txt]"}
	srv, _ := newTestServer(t, generator)
	router := srv.router()

	body, contentType := multipartUpload(t, "finance.txt", "The quarterly revenue was 5 million dollars.")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(rec, req)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/chat",
		strings.NewReader(`{"message":"What was the quarterly revenue?"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Found {
		t.Error("expected Found=true")
	}
	if len(resp.SourceFiles) == 0 || resp.SourceFiles[0] != "finance.txt" {
		t.Errorf("unexpected sources: %v", resp.SourceFiles)
	}
	if resp.Confidence <= 0 {
		t.Errorf("expected a positive confidence score, got %f", resp.Confidence)
	}
	if resp.ConfidenceLabel == "" {
		t.Error("expected a confidence label")
	}
}

func TestChat_EmptyCorpus(t *testing.T) {
	srv, _ := newTestServer(t, &llm.MockLLM{Response: "never called"})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat",
		strings.NewReader(`{"message":"anything"}`))
	req.Header.Set("Content-Type", "application/json")
	srv.router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Found {
		t.Error("expected Found=false for empty corpus")
	}
}
