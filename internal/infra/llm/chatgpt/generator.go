package chatgpt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yanqian/meteo-burkina/internal/domain/advice"
)

// ErrEmptyCompletion is returned when the API answers without usable content.
var ErrEmptyCompletion = errors.New("chatgpt completion has no content")

// Generator adapts the chat completions API to advice generation.
type Generator struct {
	client *Client
	model  string
}

// NewGenerator wraps a client for the given model.
func NewGenerator(client *Client, model string) (*Generator, error) {
	if client == nil {
		return nil, errors.New("chatgpt client is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("chatgpt model is required")
	}
	return &Generator{client: client, model: model}, nil
}

// Generate sends the prompt as a single user message.
func (g *Generator) Generate(ctx context.Context, req advice.GenerationRequest) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, ChatCompletionRequest{
		Model:       g.model,
		Messages:    []Message{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxOutputTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chatgpt generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

var _ advice.Generator = (*Generator)(nil)
