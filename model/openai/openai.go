// Package openai implements model.Generator and model.Embedder on top of
// the OpenAI Chat Completions and Embeddings APIs.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/hupe1980/cinegraph/model"
)

// Options configure the OpenAI adapter. Fields mirror a deliberately small
// subset of the API surface; extend via functional options without breaking
// callers.
type Options struct {
	ChatModel           string
	EmbedModel          string
	Temperature         float64
	MaxCompletionTokens int64
}

// Client wraps the OpenAI API behind the generic Generator and Embedder
// interfaces.
type Client struct {
	client *openai.Client
	opts   Options
}

// New creates a new adapter using the official client with ambient
// credentials (OPENAI_API_KEY).
func New(optFns ...func(o *Options)) *Client {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates a new adapter from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Client {
	opts := Options{
		ChatModel:           openai.ChatModelGPT4oMini,
		EmbedModel:          openai.EmbeddingModelTextEmbedding3Small,
		Temperature:         0.7,
		MaxCompletionTokens: 1024,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{client: client, opts: opts}
}

// Generate implements model.Generator via a non-streaming chat completion.
func (c *Client) Generate(ctx context.Context, req model.Request) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.Instructions != "" {
		messages = append(messages, openai.SystemMessage(req.Instructions))
	}
	for _, msg := range req.Messages {
		switch msg.Role {
		case "assistant":
			messages = append(messages, openai.AssistantMessage(msg.Content))
		default:
			messages = append(messages, openai.UserMessage(msg.Content))
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               c.opts.ChatModel,
		Temperature:         openai.Float(c.opts.Temperature),
		MaxCompletionTokens: openai.Int(c.opts.MaxCompletionTokens),
	})
	if err != nil {
		return "", fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// Embed implements model.Embedder via the Embeddings API.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: c.opts.EmbedModel,
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: []string{text}},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings error: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embeddings: empty response")
	}
	raw := resp.Data[0].Embedding
	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}
	return vec, nil
}

// Info implements model.Generator.
func (c *Client) Info() model.Info {
	return model.Info{Name: c.opts.ChatModel, Provider: "openai"}
}
