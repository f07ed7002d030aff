// Package httpgw talks to a generic JSON chat gateway over HTTP. The gateway
// may answer with any shape; the body is handed back untouched as a string reply.
package httpgw

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"modelchat/internal/reply"
)

const maxBody = 1 << 20

type chatRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Ping checks the gateway health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway health: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway health: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) Chat(ctx context.Context, model, prompt string) (reply.Value, error) {
	body, err := json.Marshal(chatRequest{Prompt: prompt, Model: model})
	if err != nil {
		return reply.Value{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return reply.Value{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return reply.Value{}, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return reply.Value{}, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return reply.Value{}, fmt.Errorf("gateway error: status %d: %s", resp.StatusCode, snippet(respBody))
	}

	if len(bytes.TrimSpace(respBody)) == 0 {
		return reply.Null(), nil
	}
	return reply.String(string(respBody)), nil
}

func snippet(b []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(b))
	runes := []rune(s)
	if len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return s
}
