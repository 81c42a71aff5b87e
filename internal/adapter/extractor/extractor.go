package extractor

import (
	"path/filepath"
	"strings"

	"docqa/internal/domain"
	"docqa/internal/port"
)

// Registry maps artifact types to extractors and resolves the type from a
// filename.
type Registry struct {
	extractors map[domain.FileType]port.Extractor
}

func NewRegistry(extractors ...port.Extractor) *Registry {
	m := make(map[domain.FileType]port.Extractor, len(extractors))
	for _, e := range extractors {
		m[e.FileType()] = e
	}
	return &Registry{extractors: m}
}

// TypeOf resolves the artifact type from the filename extension.
func TypeOf(filename string) (domain.FileType, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return domain.FileTypePDF, nil
	case ".png", ".jpg", ".jpeg", ".tiff", ".bmp", ".webp":
		return domain.FileTypeImage, nil
	case ".txt", ".md":
		return domain.FileTypeText, nil
	default:
		return "", domain.ErrUnsupportedFileType
	}
}

// For returns the extractor for a file type, or ErrUnsupportedFileType.
func (r *Registry) For(ft domain.FileType) (port.Extractor, error) {
	e, ok := r.extractors[ft]
	if !ok {
		return nil, domain.ErrUnsupportedFileType
	}
	return e, nil
}
