package domain

// ConversationStore holds the single ordered conversation. It never removes messages.
type ConversationStore interface {
	Add(msg Message)
	Messages() []Message
	Recent(limit int) []Message
	Len() int
}
