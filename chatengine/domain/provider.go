package domain

import "context"

//go:generate mockgen -source=provider.go -destination=../mocks/provider_mock.go -package=mocks

// Message is one entry of the sequence sent to a completion provider.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is a provider agnostic chat completion call.
type CompletionRequest struct {
	Messages    []Message
	Model       string
	Temperature float64
}

// CompletionResponse carries the assistant reply.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
}

// CompletionProvider is the thin contract a chat model adapter implements.
type CompletionProvider interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

// EmbeddingProvider turns texts into vectors, one per input, in input order.
type EmbeddingProvider interface {
	Embed(ctx context.Context, inputs []string, model string) ([][]float64, error)
}
