// Package llm is the seam between the review stage and language-model
// backends. A [Provider] answers a single-shot completion over a short
// conversation, optionally constrained to a JSON object.
//
// Implementations must be safe for concurrent use.
package llm

import "context"

// Usage is the token accounting of one completion, in the backend's own
// token unit.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionRequest is one review prompt. Messages must not be empty.
type CompletionRequest struct {
	// Messages is the conversation; the last one is usually the user's.
	Messages []Message

	// Temperature in [0, 2]. Zero keeps the backend default.
	Temperature float64

	// MaxTokens caps the answer. Zero keeps the backend default.
	MaxTokens int

	// SystemPrompt goes before Messages as a system message.
	SystemPrompt string

	// JSONObject asks for a single JSON object as the answer. Backends
	// without a native switch fall back to [JSONInstruction]; callers must
	// still parse defensively.
	JSONObject bool
}

// CompletionResponse is the answer of [Provider.Complete].
type CompletionResponse struct {
	Content string

	// FinishReason is why generation stopped, e.g. "stop" or "length".
	// "length" means Content was cut off.
	FinishReason string

	Usage Usage
}

// Provider is a language-model backend.
type Provider interface {
	// Complete sends req and waits for the whole answer. It returns early
	// with an error when ctx is done.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// CountTokens estimates the prompt size of messages. It may overcount,
	// never undercount.
	CountTokens(messages []Message) (int, error)

	// Capabilities describes the configured model. It does not change over
	// the lifetime of the Provider.
	Capabilities() ModelCapabilities
}

// EstimateTokens assumes about four bytes per token plus four tokens of
// framing per message, which overcounts for most tokenizers.
func EstimateTokens(messages []Message) int {
	n := 0
	for _, m := range messages {
		n += (len(m.Content)+3)/4 + 4
	}
	return n
}
