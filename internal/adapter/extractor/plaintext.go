package extractor

import (
	"context"
	"fmt"
	"io"
	"strings"

	"docqa/internal/domain"
)

// PlaintextExtractor passes through .txt and .md uploads.
type PlaintextExtractor struct{}

func NewPlaintextExtractor() *PlaintextExtractor { return &PlaintextExtractor{} }

func (e *PlaintextExtractor) FileType() domain.FileType { return domain.FileTypeText }

func (e *PlaintextExtractor) Extract(_ context.Context, r io.Reader) (string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read text file: %w", err)
	}
	text := strings.TrimSpace(string(content))
	if text == "" {
		return "", fmt.Errorf("file contains no text")
	}
	return text, nil
}
