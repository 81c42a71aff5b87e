package extractor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"docqa/internal/domain"
)

func TestTypeOf(t *testing.T) {
	cases := []struct {
		filename string
		want     domain.FileType
		wantErr  bool
	}{
		{"report.pdf", domain.FileTypePDF, false},
		{"REPORT.PDF", domain.FileTypePDF, false},
		{"scan.png", domain.FileTypeImage, false},
		{"photo.JPEG", domain.FileTypeImage, false},
		{"diagram.webp", domain.FileTypeImage, false},
		{"notes.txt", domain.FileTypeText, false},
		{"readme.md", domain.FileTypeText, false},
		{"archive.zip", "", true},
		{"noextension", "", true},
	}
	for _, tc := range cases {
		got, err := TypeOf(tc.filename)
		if tc.wantErr {
			if !errors.Is(err, domain.ErrUnsupportedFileType) {
				t.Errorf("TypeOf(%q): expected ErrUnsupportedFileType, got %v", tc.filename, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("TypeOf(%q): unexpected error %v", tc.filename, err)
			continue
		}
		if got != tc.want {
			t.Errorf("TypeOf(%q) = %s, want %s", tc.filename, got, tc.want)
		}
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(NewPlaintextExtractor())

	e, err := r.For(domain.FileTypeText)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.FileType() != domain.FileTypeText {
		t.Errorf("unexpected extractor type %s", e.FileType())
	}

	if _, err := r.For(domain.FileTypePDF); !errors.Is(err, domain.ErrUnsupportedFileType) {
		t.Errorf("expected ErrUnsupportedFileType for unregistered type, got %v", err)
	}
}

func TestPlaintextExtractor(t *testing.T) {
	e := NewPlaintextExtractor()
	text, err := e.Extract(context.Background(), strings.NewReader("  hello world\n"))
	if err != nil {
		t.Fatal(err)
	}
	if text != "hello world" {
		t.Errorf("expected trimmed passthrough, got %q", text)
	}
}
