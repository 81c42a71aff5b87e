package port

import "context"

// LLM is a black-box text-completion service used for query expansion and
// answer generation.
type LLM interface {
	// Generate generates text for the prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// GenerateWithSystem generates text with a system prompt.
	GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}
