package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"modelchat/internal/reply"
)

type Client struct {
	client      *genai.Client
	temperature float32
}

func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Client{client: client, temperature: 0.7}, nil
}

func (c *Client) Chat(ctx context.Context, model, prompt string) (reply.Value, error) {
	m := c.client.GenerativeModel(model)
	m.SetTemperature(c.temperature)

	resp, err := m.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return reply.Value{}, fmt.Errorf("Gemini API error: %w", err)
	}
	return partsReply(resp), nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// partsReply turns the first candidate into [{"text": ...}, ...]. Non-text
// parts become empty objects so their position is kept but nothing is shown.
func partsReply(resp *genai.GenerateContentResponse) reply.Value {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return reply.Null()
	}

	parts := resp.Candidates[0].Content.Parts
	items := make([]reply.Value, 0, len(parts))
	for _, part := range parts {
		fields := map[string]reply.Value{}
		if t, ok := part.(genai.Text); ok {
			fields["text"] = reply.String(string(t))
		}
		items = append(items, reply.Object(fields))
	}
	return reply.Array(items...)
}
