package fs

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("content"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func names(files []FileInfo) map[string]bool {
	m := make(map[string]bool, len(files))
	for _, f := range files {
		m[f.Name] = true
	}
	return m
}

func TestWalk_OnlyIngestableTypes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "report.pdf")
	writeFile(t, dir, "notes.txt")
	writeFile(t, dir, "scan.png")
	writeFile(t, dir, "binary.exe")
	writeFile(t, dir, "archive.zip")

	files, err := NewWalker(nil, nil).Walk(dir)
	if err != nil {
		t.Fatal(err)
	}
	got := names(files)
	for _, want := range []string{"report.pdf", "notes.txt", "scan.png"} {
		if !got[want] {
			t.Errorf("expected %s in results", want)
		}
	}
	if got["binary.exe"] || got["archive.zip"] {
		t.Errorf("unsupported types must be skipped, got %v", got)
	}
}

func TestWalk_IncludeExcludePatterns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "keep.txt")
	writeFile(t, dir, "drafts/skip.txt")
	writeFile(t, dir, "nested/deep.pdf")

	files, err := NewWalker([]string{"**/*"}, []string{"drafts/**"}).Walk(dir)
	if err != nil {
		t.Fatal(err)
	}
	got := names(files)
	if !got["keep.txt"] || !got["deep.pdf"] {
		t.Errorf("expected included files, got %v", got)
	}
	if got["skip.txt"] {
		t.Error("excluded directory must be skipped")
	}
}

func TestWalk_IncludeOnlyPDFs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.pdf")
	writeFile(t, dir, "b.txt")

	files, err := NewWalker([]string{"**/*.pdf"}, nil).Walk(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].Name != "a.pdf" {
		t.Errorf("expected only a.pdf, got %v", names(files))
	}
}
