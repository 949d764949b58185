package driven

import "context"

// LLMService is the completion capability used to contextualize chunks and
// generate recommendations.
//
// Implementations may include:
//   - OpenAI (gpt-4o-mini)
//   - Anthropic (Claude)
//   - Ollama (local models)
//
// Generate may fail transiently (network, timeout, rate limit) or
// permanently (auth). Adapters report this via *domain.CapabilityError.
type LLMService interface {
	// Generate produces a completion for the prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// System is an optional system prompt.
	System string

	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64

	// JSON requests a JSON object response where the provider supports it.
	JSON bool
}
