package retriever

import (
	"context"
	"fmt"
	"strings"
	"time"

	"docqa/internal/port"
	"docqa/pkg/logger"
)

const expandSystemPrompt = `You are a search query expansion assistant for a document question-answering system.
Given a user's question, generate alternative phrasings that ask for the same information using different words.
Each variation must keep the original intent and be clear and specific.

Output ONLY the alternative questions, one per line. Do not include explanations or numbering.`

// Expander widens retrieval recall by asking the LLM for paraphrased
// variants of the user's question. Any failure degrades to the original
// query alone; expansion never blocks retrieval.
type Expander struct {
	llm        port.LLM
	variations int
	timeout    time.Duration
	log        logger.Logger
}

func NewExpander(llm port.LLM, variations int, timeout time.Duration, log logger.Logger) *Expander {
	if variations <= 0 {
		variations = 3
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Expander{llm: llm, variations: variations, timeout: timeout, log: log}
}

// Expand returns the original query followed by up to `variations`
// paraphrases. The original is always first.
func (e *Expander) Expand(ctx context.Context, query string) []string {
	if e.llm == nil {
		return []string{query}
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	userPrompt := fmt.Sprintf("Generate %d alternative versions of this question:\n\n%s", e.variations, query)
	response, err := e.llm.GenerateWithSystem(ctx, expandSystemPrompt, userPrompt)
	if err != nil {
		e.log.Warn("query expansion failed, using original query only", logger.Err(err))
		return []string{query}
	}

	queries := []string{query}
	for _, line := range strings.Split(response, "\n") {
		line = stripNumbering(strings.TrimSpace(line))
		if line == "" || line == query {
			continue
		}
		queries = append(queries, line)
		if len(queries) > e.variations {
			break
		}
	}
	return queries
}

// stripNumbering removes leading list markers like "1. ", "2) " or "- ".
func stripNumbering(line string) string {
	line = strings.TrimLeft(line, "-*• ")
	trimmed := strings.TrimLeft(line, "0123456789")
	if trimmed != line {
		trimmed = strings.TrimLeft(trimmed, ".) ")
		return trimmed
	}
	return line
}
