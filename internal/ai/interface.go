package ai

import (
	"context"
)

// LLMProvider defines the contract for interacting with AI models.
// Gemini and OpenAI-compatible chat completion services both implement it.
type LLMProvider interface {
	// Complete sends one prompt and returns the model's text reply.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
