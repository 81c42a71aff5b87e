package embedding

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"docqa/pkg/logger"
)

// ClipEmbedder talks to a CLIP-style embedding server that encodes text and
// images into one shared space. The server exposes /embed/text and
// /embed/image, each taking a batch and returning one vector per input.
type ClipEmbedder struct {
	baseURL   string
	model     string
	dimension int
	client    *http.Client
}

type clipTextRequest struct {
	Texts []string `json:"texts"`
	Model string   `json:"model,omitempty"`
}

type clipImageRequest struct {
	// Images are base64-encoded raw bytes.
	Images []string `json:"images"`
	Model  string   `json:"model,omitempty"`
}

type clipResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

// NewClipEmbedder builds the client and probes the server once. A probe
// failure returns an error; the caller records the capability as absent for
// the process lifetime rather than retrying per request.
func NewClipEmbedder(ctx context.Context, baseURL, model string, dimension int, log logger.Logger) (*ClipEmbedder, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("multimodal base URL must be set")
	}
	e := &ClipEmbedder{
		baseURL:   baseURL,
		model:     model,
		dimension: dimension,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}

	probeCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if _, err := e.EmbedTexts(probeCtx, []string{"ping"}); err != nil {
		return nil, fmt.Errorf("multimodal embedder probe failed: %w", err)
	}
	log.Info("multimodal embedder ready",
		logger.String("model", model),
		logger.Int("dimension", dimension))
	return e, nil
}

func (e *ClipEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return e.post(ctx, "/embed/text", clipTextRequest{Texts: texts, Model: e.model}, len(texts))
}

func (e *ClipEmbedder) EmbedImages(ctx context.Context, images [][]byte) ([][]float32, error) {
	if len(images) == 0 {
		return nil, nil
	}
	encoded := make([]string, len(images))
	for i, img := range images {
		encoded[i] = base64.StdEncoding.EncodeToString(img)
	}
	return e.post(ctx, "/embed/image", clipImageRequest{Images: encoded, Model: e.model}, len(images))
}

func (e *ClipEmbedder) post(ctx context.Context, path string, payload any, want int) ([][]float32, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("multimodal request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("multimodal API returned status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var cr clipResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if cr.Error != "" {
		return nil, fmt.Errorf("multimodal API error: %s", cr.Error)
	}
	if len(cr.Embeddings) != want {
		return nil, fmt.Errorf("multimodal API returned %d vectors for %d inputs", len(cr.Embeddings), want)
	}
	for _, v := range cr.Embeddings {
		if e.dimension > 0 && len(v) != e.dimension {
			return nil, fmt.Errorf("multimodal dimension mismatch: expected %d, got %d", e.dimension, len(v))
		}
	}
	return cr.Embeddings, nil
}

func (e *ClipEmbedder) Dimension() int { return e.dimension }

func (e *ClipEmbedder) ModelName() string { return e.model }
