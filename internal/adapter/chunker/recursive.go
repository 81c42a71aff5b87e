package chunker

import "strings"

// defaultSeparators is the split preference order: paragraph breaks first,
// then line breaks, sentence ends, clause ends, spaces, and finally a hard
// character cut.
var defaultSeparators = []string{"\n\n", "\n", ". ", "! ", "? ", "; ", ", ", " ", ""}

// RecursiveChunker splits text into overlapping windows of at most
// chunkSize characters, preferring the most semantic boundary available at
// each level before cutting mid-word.
type RecursiveChunker struct {
	chunkSize  int
	overlap    int
	separators []string
}

func NewRecursiveChunker(chunkSize, overlap int) *RecursiveChunker {
	if chunkSize <= 0 {
		chunkSize = 1500
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = chunkSize / 10
	}
	return &RecursiveChunker{
		chunkSize:  chunkSize,
		overlap:    overlap,
		separators: defaultSeparators,
	}
}

// Split returns trimmed, non-empty chunks of text.
func (c *RecursiveChunker) Split(text string) []string {
	raw := c.split(text, c.separators)
	chunks := make([]string, 0, len(raw))
	for _, chunk := range raw {
		if trimmed := strings.TrimSpace(chunk); trimmed != "" {
			chunks = append(chunks, trimmed)
		}
	}
	return chunks
}

func (c *RecursiveChunker) split(text string, separators []string) []string {
	if len(text) <= c.chunkSize {
		return []string{text}
	}

	// Pick the first separator that actually occurs; the empty separator
	// always matches and hard-cuts.
	sep := ""
	rest := []string{""}
	for i, s := range separators {
		if s == "" || strings.Contains(text, s) {
			sep = s
			rest = separators[i+1:]
			break
		}
	}
	if sep == "" {
		return c.hardCut(text)
	}

	parts := strings.SplitAfter(text, sep)
	pieces := make([]string, 0, len(parts))
	for _, p := range parts {
		if len(p) > c.chunkSize {
			pieces = append(pieces, c.split(p, rest)...)
		} else {
			pieces = append(pieces, p)
		}
	}
	return c.merge(pieces)
}

// merge packs pieces into chunks of at most chunkSize characters, carrying
// roughly overlap characters of trailing context into the next chunk.
func (c *RecursiveChunker) merge(pieces []string) []string {
	var chunks []string
	var window []string
	total := 0

	for _, p := range pieces {
		if total+len(p) > c.chunkSize && total > 0 {
			chunks = append(chunks, strings.Join(window, ""))
			for total > c.overlap && len(window) > 0 {
				total -= len(window[0])
				window = window[1:]
			}
		}
		window = append(window, p)
		total += len(p)
	}
	if total > 0 {
		chunks = append(chunks, strings.Join(window, ""))
	}
	return chunks
}

// hardCut slices fixed windows when no separator is available.
func (c *RecursiveChunker) hardCut(text string) []string {
	step := c.chunkSize - c.overlap
	if step <= 0 {
		step = c.chunkSize
	}
	var chunks []string
	for start := 0; start < len(text); start += step {
		end := start + c.chunkSize
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[start:end])
		if end == len(text) {
			break
		}
	}
	return chunks
}
