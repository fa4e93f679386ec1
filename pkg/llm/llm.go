// Package llm provides the gateway's language-model layer.
//
// The package abstracts chat completion behind a single Provider
// interface so the query endpoint can switch between Gemini's native
// REST API, any OpenAI-compatible service, and a deterministic mock
// for keyless development.
//
// Example usage:
//
//	gemini, _ := llm.NewGemini(llm.WithAPIKey(os.Getenv("GEMINI_API_KEY")))
//	defer gemini.Close()
//
//	resp, _ := gemini.Complete(ctx, &llm.Request{
//	    System: llm.Persona,
//	    Prompt: llm.BuildPrompt("how far to the airport?", nil),
//	})
package llm

import "context"

// Provider generates completions. All implementations must satisfy
// this interface.
type Provider interface {
	// Complete generates a response for the request.
	Complete(ctx context.Context, req *Request) (*Response, error)

	// Name identifies the provider for logging and health reports.
	Name() string

	// Health checks provider connectivity and API key validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// Request for a completion.
type Request struct {
	// System is the persona / system instruction.
	System string

	// Prompt is the user-facing prompt: the flattened context block
	// followed by the query.
	Prompt string

	// Model overrides the provider's default model.
	Model string

	// MaxTokens limits the response length.
	MaxTokens int

	// Temperature controls randomness (0.0-2.0).
	Temperature float64
}

// Response from a completion.
type Response struct {
	// Text is the reply with surrounding whitespace trimmed.
	Text string

	// Model used for generation.
	Model string

	// TokensUsed is the reported token count, or a word-count
	// approximation when the API does not report usage.
	TokensUsed int

	// LatencyMs is the response time in milliseconds.
	LatencyMs int64
}

// Spoken fallbacks for degraded generations.
const (
	// RephraseText is returned when the model produced no usable text.
	RephraseText = "Could you please rephrase that?"

	// FallbackText is the gateway's answer when every provider failed.
	FallbackText = "I'm having trouble generating a response. Please try again later."
)
