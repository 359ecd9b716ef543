package ai

import "errors"

// ErrEmptyReply is returned when the provider answered without any text.
var ErrEmptyReply = errors.New("ai: empty reply")

// CompletionRequest is one single-turn prompt.
type CompletionRequest struct {
	// System carries the instructions. Providers without a system role
	// prepend it to Prompt.
	System string

	// Prompt is the user turn. It may be empty when System says everything.
	Prompt string

	// MaxTokens caps the reply length; 0 keeps the provider default.
	MaxTokens int32

	Temperature float32

	// JSON asks for a JSON-only reply where the provider supports it.
	JSON bool
}
