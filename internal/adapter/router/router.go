// Package router turns the model catalog and the configured backends into the
// gateway chat capability.
package router

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"modelchat/internal/config"
	"modelchat/internal/gateway"
	"modelchat/internal/reply"
)

var (
	ErrUnknownModel = errors.New("unknown model")
	ErrNoBackend    = errors.New("no backend for provider")
)

type Backend interface {
	Chat(ctx context.Context, model, prompt string) (reply.Value, error)
}

type Router struct {
	mu       sync.RWMutex
	models   map[string]config.Model
	backends map[string]Backend
}

func New(models []config.Model) *Router {
	byID := make(map[string]config.Model, len(models))
	for _, m := range models {
		byID[m.ID] = m
	}
	return &Router{
		models:   byID,
		backends: make(map[string]Backend),
	}
}

func (r *Router) Register(provider string, b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[provider] = b
}

// Providers lists registered providers in name order.
func (r *Router) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Router) Chat(ctx context.Context, prompt string, opts gateway.Options) (reply.Value, error) {
	m, ok := r.models[opts.Model]
	if !ok {
		return reply.Value{}, fmt.Errorf("%w: %s", ErrUnknownModel, opts.Model)
	}

	r.mu.RLock()
	b, ok := r.backends[m.Provider]
	r.mu.RUnlock()
	if !ok {
		return reply.Value{}, fmt.Errorf("%w %q (model %s)", ErrNoBackend, m.Provider, m.ID)
	}

	return b.Chat(ctx, m.ProviderModel, prompt)
}

func (r *Router) Handle() *gateway.Handle {
	return &gateway.Handle{AI: &gateway.AI{Chat: r.Chat}}
}

func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for _, b := range r.backends {
		if c, ok := b.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
