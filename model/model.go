package model

import "context"

// Message is one entry of the conversational context handed to a
// Generator. Role follows the usual chat convention (user, assistant).
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request captures the normalized generation input produced by the graph:
// a system instruction plus the ordered conversational context.
type Request struct {
	Instructions string    `json:"instructions"`
	Messages     []Message `json:"messages"`
}

// Info carries metadata about a provider implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", ...
}

// Generator is the minimal interface required to drive text generation.
// Implementations must return or fail within the caller's context deadline;
// partial output is never returned.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
	Info() Info
}

// Embedder turns text into a fixed-length vector for similarity search.
// Implementations must be deterministic for identical input and must
// respect the caller's context deadline.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
