package chunker

import (
	"strings"
	"testing"
)

func TestSplit_ShortTextIsOneChunk(t *testing.T) {
	c := NewRecursiveChunker(100, 20)
	chunks := c.Split("short text")
	if len(chunks) != 1 || chunks[0] != "short text" {
		t.Errorf("expected single chunk, got %v", chunks)
	}
}

func TestSplit_EmptyAndWhitespace(t *testing.T) {
	c := NewRecursiveChunker(100, 20)
	if chunks := c.Split(""); len(chunks) != 0 {
		t.Errorf("expected no chunks for empty text, got %v", chunks)
	}
	if chunks := c.Split("   \n\n  "); len(chunks) != 0 {
		t.Errorf("expected no chunks for whitespace, got %v", chunks)
	}
}

func TestSplit_RespectsChunkSize(t *testing.T) {
	c := NewRecursiveChunker(50, 10)
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("A sentence here. ")
	}
	chunks := c.Split(b.String())
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) > 50 {
			t.Errorf("chunk %d exceeds size: %d chars", i, len(chunk))
		}
	}
}

func TestSplit_PrefersParagraphBreaks(t *testing.T) {
	c := NewRecursiveChunker(60, 0)
	text := "First paragraph with some words here.\n\nSecond paragraph with other words."
	chunks := c.Split(text)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %v", len(chunks), chunks)
	}
	if !strings.HasPrefix(chunks[0], "First paragraph") {
		t.Errorf("unexpected first chunk: %q", chunks[0])
	}
	if !strings.HasPrefix(chunks[1], "Second paragraph") {
		t.Errorf("unexpected second chunk: %q", chunks[1])
	}
}

func TestSplit_OverlapCarriesContext(t *testing.T) {
	c := NewRecursiveChunker(40, 25)
	text := "Alpha beta gamma. Delta epsilon zeta. Eta theta iota. Kappa lambda mu."
	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %v", chunks)
	}
	// Consecutive chunks share trailing context.
	overlapFound := false
	for i := 1; i < len(chunks); i++ {
		words := strings.Fields(chunks[i])
		if len(words) > 0 && strings.Contains(chunks[i-1], words[0]) {
			overlapFound = true
		}
	}
	if !overlapFound {
		t.Errorf("expected overlapping context between chunks: %v", chunks)
	}
}

func TestSplit_HardCutWithoutSeparators(t *testing.T) {
	c := NewRecursiveChunker(10, 2)
	text := strings.Repeat("x", 35)
	chunks := c.Split(text)
	if len(chunks) < 4 {
		t.Fatalf("expected hard-cut windows, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if len(chunk) > 10 {
			t.Errorf("chunk %d exceeds size: %d", i, len(chunk))
		}
	}
	// All input characters survive the cut.
	total := 0
	for _, chunk := range chunks {
		total += len(chunk)
	}
	if total < len(text) {
		t.Errorf("hard cut lost content: %d of %d chars", total, len(text))
	}
}

func TestNewRecursiveChunker_SanitizesArguments(t *testing.T) {
	c := NewRecursiveChunker(0, -1)
	if c.chunkSize != 1500 {
		t.Errorf("expected default chunk size, got %d", c.chunkSize)
	}
	if c.overlap != 150 {
		t.Errorf("expected default overlap, got %d", c.overlap)
	}
}
