// Package llm abstracts text generation and embeddings behind small
// interfaces so the engine never depends on a particular provider API.
package llm

import "context"

type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Tool declaratively exposes a callable function to the model. Parameters
// is a minimal JSON Schema object.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type ToolCall struct {
	Id        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type Request struct {
	Model       string
	System      string
	Messages    []Message
	Tools       []Tool
	MaxTokens   int64
	Temperature float64
}

type Response struct {
	Text      string
	ToolCalls []ToolCall
}

// Generator is the opaque generate(prompt, tools) capability consumed by
// agent nodes and the memory consolidation pipeline.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// Embedder turns text into a vector for similarity retrieval.
type Embedder interface {
	Embed(ctx context.Context, model string, text string) ([]float32, error)
}
