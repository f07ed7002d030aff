package memory

import (
	"sync"

	"modelchat/internal/domain"
)

type Store struct {
	mu       sync.RWMutex
	messages []domain.Message
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Add(msg domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

func (s *Store) Messages() []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Message(nil), s.messages...)
}

// Recent returns up to limit of the newest messages in conversation order.
// A non-positive limit returns everything.
func (s *Store) Recent(limit int) []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.messages
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	return append([]domain.Message(nil), history...)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}
