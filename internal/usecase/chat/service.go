package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"modelchat/internal/config"
	"modelchat/internal/domain"
	"modelchat/internal/reply"
	"modelchat/internal/usecase/mock"
)

var (
	ErrEmptyMessage = errors.New("empty message")
	ErrUnknownModel = errors.New("unknown model")
	ErrBusy         = errors.New("previous message is still being answered")
)

// Gateway sends one prompt to the selected model and returns display text.
type Gateway interface {
	Send(ctx context.Context, prompt, model string) (string, error)
}

type Availability interface {
	Status() domain.GatewayStatus
}

type State string

const (
	StateIdle    State = "idle"
	StateSending State = "sending"
)

type Outcome string

const (
	OutcomeDelivered  Outcome = "delivered"
	OutcomeFallenBack Outcome = "fallen_back"
)

type Result struct {
	User      domain.Message `json:"user"`
	Assistant domain.Message `json:"assistant"`
	Outcome   Outcome        `json:"outcome"`
}

func (r Result) FallenBack() bool {
	return r.Outcome == OutcomeFallenBack
}

type Status struct {
	Gateway      domain.GatewayStatus `json:"gateway"`
	State        State                `json:"state"`
	LastError    string               `json:"last_error,omitempty"`
	DefaultModel string               `json:"default_model"`
}

type Service struct {
	store    domain.ConversationStore
	gateway  Gateway
	avail    Availability
	cfg      config.Config
	fallback func(prompt string) string
	now      func() time.Time

	sending   atomic.Bool
	greetOnce sync.Once

	mu        sync.RWMutex
	lastError string
	listeners []func(domain.Message)
}

func NewService(store domain.ConversationStore, gateway Gateway, avail Availability, cfg config.Config) *Service {
	return &Service{
		store:    store,
		gateway:  gateway,
		avail:    avail,
		cfg:      cfg,
		fallback: mock.Respond,
		now:      time.Now,
	}
}

// Greet appends the system greeting. Only the first call has an effect.
func (s *Service) Greet() {
	s.greetOnce.Do(func() {
		s.append(domain.RoleSystem, s.cfg.Greeting)
	})
}

// OnMessage registers fn to run after every appended message.
func (s *Service) OnMessage(fn func(domain.Message)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Submit records the prompt and answers it with the gateway, or with a mock
// reply when the gateway is not ready or the call fails. Empty prompts, unknown
// models and submissions while another one is in flight change nothing.
func (s *Service) Submit(ctx context.Context, prompt, model string) (Result, error) {
	text := strings.TrimSpace(prompt)
	if text == "" {
		return Result{}, ErrEmptyMessage
	}
	if model == "" {
		model = s.cfg.DefaultModel
	}
	if _, ok := s.cfg.Model(model); !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownModel, model)
	}

	if !s.sending.CompareAndSwap(false, true) {
		return Result{}, ErrBusy
	}
	defer s.sending.Store(false)

	userMsg := s.append(domain.RoleUser, text)
	content, outcome := s.answer(ctx, text, model)
	assistantMsg := s.append(domain.RoleAssistant, content)

	return Result{
		User:      userMsg,
		Assistant: assistantMsg,
		Outcome:   outcome,
	}, nil
}

func (s *Service) answer(ctx context.Context, prompt, model string) (string, Outcome) {
	status := s.avail.Status()
	if !status.Ready() {
		if status.State == domain.GatewayFailed {
			s.setLastError("gateway unavailable: " + status.Reason)
		}
		slog.Warn("gateway not ready, using mock reply", "state", status.State, "model", model)
		return s.fallback(prompt), OutcomeFallenBack
	}

	resp, err := s.gateway.Send(ctx, prompt, model)
	if err != nil {
		slog.Error("gateway call failed, using mock reply", "model", model, "error", err)
		s.setLastError(err.Error())
		return s.fallback(prompt), OutcomeFallenBack
	}

	s.setLastError("")
	if strings.TrimSpace(resp) == "" {
		resp = reply.NoResponse
	}
	return resp, OutcomeDelivered
}

func (s *Service) append(role, content string) domain.Message {
	msg := domain.NewMessage(role, content, s.now())
	s.store.Add(msg)

	s.mu.RLock()
	listeners := make([]func(domain.Message), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(msg)
	}
	return msg
}

func (s *Service) setLastError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = msg
}

func (s *Service) Messages() []domain.Message {
	return s.store.Messages()
}

func (s *Service) Recent(limit int) []domain.Message {
	return s.store.Recent(limit)
}

func (s *Service) State() State {
	if s.sending.Load() {
		return StateSending
	}
	return StateIdle
}

func (s *Service) Status() Status {
	s.mu.RLock()
	lastError := s.lastError
	s.mu.RUnlock()

	return Status{
		Gateway:      s.avail.Status(),
		State:        s.State(),
		LastError:    lastError,
		DefaultModel: s.cfg.DefaultModel,
	}
}

func (s *Service) Models() []config.Model {
	return append([]config.Model(nil), s.cfg.Models...)
}

func (s *Service) DefaultModel() string {
	return s.cfg.DefaultModel
}

// HasModel reports whether id is in the model catalog.
func (s *Service) HasModel(id string) bool {
	_, ok := s.cfg.Model(id)
	return ok
}
