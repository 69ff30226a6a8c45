package llm

import (
	"context"
	"errors"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrEmptyResponse is returned when the provider answers without any text.
var ErrEmptyResponse = errors.New("llm returned an empty response")

// Message is a minimal chat message. Role must be one of "system", "user" or "assistant".
type Message struct {
	Role    string
	Content string
}

// Client sends a chat exchange to a hosted text-generation service.
type Client interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

func normalizeRole(role string) string {
	switch role {
	case RoleSystem, RoleUser, RoleAssistant:
		return role
	default:
		// coerce anything unknown to user
		return RoleUser
	}
}
