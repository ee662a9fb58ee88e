package driven

import "context"

// LLMService completes a prompt with a hosted or local language model.
// Failures are reported to callers, which wrap them with domain.ErrGeneration.
//
// Implementations:
//   - Ollama (local models)
//   - OpenAI (gpt-4o-mini and compatible APIs)
//   - Anthropic (Claude)
type LLMService interface {
	// Complete sends one system instruction and one user message and
	// returns the model's reply.
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable with a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// CompletionRequest is a single-turn completion.
type CompletionRequest struct {
	// System is the instruction that binds the model's behaviour.
	System string

	// User is the user message.
	User string

	// Temperature controls randomness in [0,1].
	Temperature float64

	// MaxTokens is the maximum number of tokens to generate; 0 uses the adapter default.
	MaxTokens int
}
