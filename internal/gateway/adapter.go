// Package gateway wraps the remote AI capability behind a shape-checked adapter.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"modelchat/internal/reply"
)

const (
	AdvisoryNoAI   = "AI service is not available on the gateway. Please try again later."
	AdvisoryNoChat = "AI chat is not available on the gateway. Please try again later."
)

var ErrNotLoaded = errors.New("gateway capability not loaded")

type Options struct {
	Model string
}

type ChatFunc func(ctx context.Context, prompt string, opts Options) (reply.Value, error)

// Handle is the loaded capability. Either level may be missing when the
// gateway comes up partially.
type Handle struct {
	AI *AI
}

type AI struct {
	Chat ChatFunc
}

type Adapter struct {
	avail *Availability
}

func NewAdapter(avail *Availability) *Adapter {
	return &Adapter{avail: avail}
}

// Send calls the chat capability and returns the normalized reply. A missing
// handle is ErrNotLoaded; a malformed handle yields an advisory text instead of an error.
func (a *Adapter) Send(ctx context.Context, prompt, model string) (string, error) {
	h, ok := a.avail.Handle()
	if !ok {
		return "", ErrNotLoaded
	}
	if h.AI == nil {
		return AdvisoryNoAI, nil
	}
	if h.AI.Chat == nil {
		return AdvisoryNoChat, nil
	}

	raw, err := h.AI.Chat(ctx, prompt, Options{Model: model})
	if err != nil {
		return "", fmt.Errorf("chat with %s: %w", model, err)
	}
	return reply.Normalize(raw), nil
}
