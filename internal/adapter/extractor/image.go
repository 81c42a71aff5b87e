package extractor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"docqa/internal/domain"
	"docqa/pkg/logger"
)

// ImageExtractor runs OCR over uploaded images. The image is grayscaled and
// contrast-stretched before recognition, which measurably helps tesseract on
// photographed documents.
type ImageExtractor struct {
	log       logger.Logger
	languages string
}

func NewImageExtractor(languages string, log logger.Logger) *ImageExtractor {
	if languages == "" {
		languages = "eng"
	}
	return &ImageExtractor{log: log, languages: languages}
}

func (e *ImageExtractor) FileType() domain.FileType { return domain.FileTypeImage }

func (e *ImageExtractor) Extract(ctx context.Context, r io.Reader) (string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	prepared, err := e.preprocess(content)
	if err != nil {
		e.log.Warn("image preprocessing failed, using original bytes", logger.Err(err))
		prepared = content
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(strings.Split(e.languages, "+")...); err != nil {
		return "", fmt.Errorf("failed to set OCR languages: %w", err)
	}
	if err := client.SetImageFromBytes(prepared); err != nil {
		return "", fmt.Errorf("failed to load image for OCR: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("OCR failed: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("OCR produced no text")
	}
	return text, nil
}

func (e *ImageExtractor) preprocess(content []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	processed := imaging.Grayscale(img)
	processed = imaging.AdjustContrast(processed, 20)

	var buf bytes.Buffer
	if err := png.Encode(&buf, processed); err != nil {
		return nil, fmt.Errorf("failed to encode preprocessed image: %w", err)
	}
	return buf.Bytes(), nil
}
