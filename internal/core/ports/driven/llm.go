package driven

import "context"

// LLMService completes single-turn prompts for the LLM reasoner and for
// follow-up rewriting. It is optional: without one, reasoning uses the
// heuristic reasoner and follow-ups are rewritten by keyword carry-over.
type LLMService interface {
	// Complete returns the model's reply to one prompt.
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping checks the provider is reachable without running inference.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// CompletionRequest is a single prompt with its generation limits.
type CompletionRequest struct {
	// System sets the assistant's role. Optional.
	System string

	// Prompt is the user message.
	Prompt string

	// MaxTokens caps the reply length. Zero leaves it to the provider.
	MaxTokens int

	// Temperature is passed through when positive.
	Temperature float64

	// Stop lists sequences that end generation.
	Stop []string
}
