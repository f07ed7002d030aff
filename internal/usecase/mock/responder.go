// Package mock produces canned replies when no gateway can answer.
package mock

import "strings"

const (
	Greeting = "Hello! The AI gateway is offline right now, so you are talking to a local stand-in. Ask me anything and I will do my best."
	Help     = "I can relay your questions to the selected model once the gateway is reachable. Until then I can only give canned answers like this one."
	Fallback = "I could not reach the AI gateway, so this is a placeholder reply. Please try again in a moment."
)

// Respond picks a canned reply by case-insensitive substring match. First rule wins.
func Respond(prompt string) string {
	p := strings.ToLower(prompt)
	switch {
	case strings.Contains(p, "hello"), strings.Contains(p, "hi"):
		return Greeting
	case strings.Contains(p, "help"):
		return Help
	default:
		return Fallback
	}
}
