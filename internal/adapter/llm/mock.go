package llm

import "context"

// MockLLM returns canned responses for tests.
type MockLLM struct {
	// Response is returned from every call when Err is nil.
	Response string
	Err      error

	// Calls records the user prompts seen, in order.
	Calls []string
}

func (m *MockLLM) Generate(_ context.Context, prompt string) (string, error) {
	m.Calls = append(m.Calls, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

func (m *MockLLM) GenerateWithSystem(_ context.Context, _, userPrompt string) (string, error) {
	m.Calls = append(m.Calls, userPrompt)
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

func (m *MockLLM) ModelName() string { return "mock" }
