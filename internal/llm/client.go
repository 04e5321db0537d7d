package llm

import "context"

// Client is the interface the conversation engine talks to. Implemented
// by OpenAIClient in production and by scripted fakes in tests.
type Client interface {
	// Chat sends a chat completion request and returns the response.
	// Failures are not retried; callers decide how to surface them.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}
