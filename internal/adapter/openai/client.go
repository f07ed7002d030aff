package openai

import (
	"context"
	"errors"

	openaiapi "github.com/sashabaranov/go-openai"

	"modelchat/internal/reply"
)

type Client struct {
	api       *openaiapi.Client
	maxTokens int
}

// NewClient talks to api.openai.com, or to any OpenAI-compatible server when baseURL is set.
func NewClient(token, baseURL string, maxTokens int) *Client {
	cfg := openaiapi.DefaultConfig(token)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{
		api:       openaiapi.NewClientWithConfig(cfg),
		maxTokens: maxTokens,
	}
}

// Chat returns the first choice as {"message": <chat message>}. Multi-part
// messages keep their content array.
func (c *Client) Chat(ctx context.Context, model, prompt string) (reply.Value, error) {
	apiReq := openaiapi.ChatCompletionRequest{
		Model:               model,
		MaxCompletionTokens: c.maxTokens,
		Stream:              false,
		Messages: []openaiapi.ChatCompletionMessage{{
			Role:    openaiapi.ChatMessageRoleUser,
			Content: prompt,
		}},
	}

	resp, err := c.api.CreateChatCompletion(ctx, apiReq)
	if err != nil {
		return reply.Value{}, err
	}

	if len(resp.Choices) == 0 {
		return reply.Value{}, errors.New("openai returned empty response")
	}

	return reply.FromAny(map[string]any{"message": resp.Choices[0].Message})
}
