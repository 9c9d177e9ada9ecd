package llm

// Message is one turn of a conversation.
type Message struct {
	// Role is "system", "user" or "assistant".
	Role    string
	Content string
}

// ModelCapabilities are the static limits of a model.
type ModelCapabilities struct {
	// ContextWindow is the token budget shared by prompt and answer.
	ContextWindow int

	// MaxOutputTokens is the longest answer the model produces.
	MaxOutputTokens int

	// SupportsJSONMode means the backend can force a JSON object answer.
	SupportsJSONMode bool
}
