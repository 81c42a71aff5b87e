package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"docqa/internal/domain"
	"docqa/internal/port"
	"docqa/pkg/logger"
)

const noAnswerText = "I could not find relevant information in the uploaded documents to answer this question."

const answerSystemPrompt = `You are a document question-answering assistant.
Answer strictly from the provided document excerpts. If the excerpts do not
contain the answer, say so. Cite the source filename after each claim, like
[report.pdf]. Keep answers concise.`

// maxHistoryTurns bounds how much prior conversation is replayed into the
// prompt.
const maxHistoryTurns = 5

// Assembler turns retrieval output into a grounded, cited answer.
type Assembler struct {
	engine  *Engine
	llm     port.LLM
	timeout time.Duration
	log     logger.Logger
}

func NewAssembler(engine *Engine, llm port.LLM, timeout time.Duration, log logger.Logger) *Assembler {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Assembler{engine: engine, llm: llm, timeout: timeout, log: log}
}

// Answer runs one chat turn: retrieve, then generate from the retrieved
// excerpts. An empty retrieval set produces a non-error "not found" answer.
func (a *Assembler) Answer(ctx context.Context, question string, history []domain.ChatTurn) (domain.Answer, error) {
	results, err := a.engine.Retrieve(ctx, question, RetrieveOptions{})
	if err != nil {
		return domain.Answer{}, err
	}
	if len(results) == 0 {
		return domain.Answer{
			Text:            noAnswerText,
			ConfidenceLabel: "low",
			Found:           false,
		}, nil
	}

	prompt := a.buildPrompt(question, history, results)

	genCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	text, err := a.llm.GenerateWithSystem(genCtx, answerSystemPrompt, prompt)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("answer generation failed: %w", err)
	}

	confidence := results[0].Score
	return domain.Answer{
		Text:            strings.TrimSpace(text),
		Confidence:      confidence,
		ConfidenceLabel: confidenceLabel(confidence),
		SourceFiles:     sourceFiles(results),
		Found:           true,
	}, nil
}

func (a *Assembler) buildPrompt(question string, history []domain.ChatTurn, results []domain.RetrievalResult) string {
	var b strings.Builder

	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}
	if len(history) > 0 {
		b.WriteString("Previous conversation:\n")
		for _, turn := range history {
			fmt.Fprintf(&b, "User: %s\nAssistant: %s\n", turn.User, turn.Assistant)
		}
		b.WriteString("\n")
	}

	b.WriteString("Document excerpts:\n")
	for i, r := range results {
		fmt.Fprintf(&b, "[%d] (source: %s)\n%s\n\n", i+1, r.Filename, r.Chunk.Content)
	}

	fmt.Fprintf(&b, "Question: %s\n", question)
	return b.String()
}

// confidenceLabel buckets the top retrieval score into the labels shown to
// users: low below 0.4, medium up to 0.65, high above.
func confidenceLabel(score float64) string {
	switch {
	case score < 0.4:
		return "low"
	case score <= 0.65:
		return "medium"
	default:
		return "high"
	}
}

// sourceFiles returns the distinct source filenames in rank order.
func sourceFiles(results []domain.RetrievalResult) []string {
	seen := make(map[string]struct{}, len(results))
	files := make([]string, 0, len(results))
	for _, r := range results {
		if _, ok := seen[r.Filename]; ok {
			continue
		}
		seen[r.Filename] = struct{}{}
		files = append(files, r.Filename)
	}
	return files
}
