package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"golang.org/x/sync/errgroup"

	"docqa/internal/domain"
	"docqa/pkg/logger"
)

// PDFExtractor extracts plain text from PDF files, pages in parallel.
type PDFExtractor struct {
	log        logger.Logger
	maxWorkers int
}

func NewPDFExtractor(log logger.Logger) *PDFExtractor {
	return &PDFExtractor{log: log, maxWorkers: 4}
}

func (e *PDFExtractor) FileType() domain.FileType { return domain.FileTypePDF }

func (e *PDFExtractor) Extract(ctx context.Context, r io.Reader) (string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read pdf: %w", err)
	}

	reader := bytes.NewReader(content)
	pdfReader, err := pdf.NewReader(reader, reader.Size())
	if err != nil {
		return "", fmt.Errorf("failed to parse pdf: %w", err)
	}

	numPages := pdfReader.NumPage()
	pages := make([]string, numPages)

	g, ctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, e.maxWorkers)
	var mu sync.Mutex

	for i := 1; i <= numPages; i++ {
		pageNum := i
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return ctx.Err()
			}

			page := pdfReader.Page(pageNum)
			if page.V.IsNull() {
				return nil
			}
			text, err := page.GetPlainText(nil)
			if err != nil {
				// A single unreadable page does not fail the document.
				e.log.Warn("failed to extract pdf page",
					logger.Int("page", pageNum), logger.Err(err))
				return nil
			}
			mu.Lock()
			pages[pageNum-1] = text
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", fmt.Errorf("pdf extraction failed: %w", err)
	}

	var sb strings.Builder
	for _, p := range pages {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(p)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("pdf contains no extractable text")
	}
	return sb.String(), nil
}
