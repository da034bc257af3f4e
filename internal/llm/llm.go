// Package llm wraps the hosted chat-completion providers the site talks to.
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

// ErrEmptyCompletion is returned when the provider answers without any text.
var ErrEmptyCompletion = errors.New("llm: empty completion")

// Message is the provider-agnostic chat message shape.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single completion call. The model id belongs to the client.
type Request struct {
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

// Completer turns a message sequence into generated text.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ValidRole reports whether role is one of the roles a conversation may carry.
func ValidRole(role string) bool {
	switch role {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}
