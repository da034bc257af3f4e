// Package assistant implements the chatbot and idle-tip behaviour on top of
// an opaque completion provider.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Ehtisham33/portfolio/internal/llm"
)

// User-facing strings. Provider errors are never shown verbatim.
const (
	ConfigApology     = "I apologize, but the chatbot service is not properly configured. Please contact the site administrator."
	ConnectionApology = "I apologize, but I'm having trouble connecting right now. Please try again later."
)

// DefaultHistoryLimit is how many prior turns are forwarded to the model.
const DefaultHistoryLimit = 5

// ErrNotConfigured means no provider credential was configured.
var ErrNotConfigured = errors.New("assistant: completion provider not configured")

// ErrEmptyMessage is returned for a blank visitor message.
var ErrEmptyMessage = errors.New("assistant: message is required")

type ChatOptions struct {
	Temperature  float32
	MaxTokens    int
	HistoryLimit int
}

// ChatService prepends the persona prompt and relays a single completion.
type ChatService struct {
	completer    llm.Completer
	systemPrompt string
	opts         ChatOptions
}

// NewChatService builds the chat service. A nil completer leaves the service
// unconfigured: every Reply fails with ErrNotConfigured without any call.
func NewChatService(completer llm.Completer, systemPrompt string, opts ChatOptions) *ChatService {
	if opts.Temperature == 0 {
		opts.Temperature = 0.7
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 500
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	return &ChatService{completer: completer, systemPrompt: systemPrompt, opts: opts}
}

func (s *ChatService) Configured() bool {
	return s.completer != nil
}

// BuildMessages returns system prompt, the last HistoryLimit history entries
// (minus malformed ones) and the new user message, in that order.
func (s *ChatService) BuildMessages(message string, history []llm.Message) []llm.Message {
	recent := TrimHistory(history, s.opts.HistoryLimit)

	messages := make([]llm.Message, 0, len(recent)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: s.systemPrompt})
	for _, m := range recent {
		if !llm.ValidRole(m.Role) || strings.TrimSpace(m.Content) == "" {
			continue
		}
		messages = append(messages, m)
	}
	return append(messages, llm.Message{Role: llm.RoleUser, Content: message})
}

// Reply makes exactly one completion call and returns its text.
func (s *ChatService) Reply(ctx context.Context, message string, history []llm.Message) (string, error) {
	if !s.Configured() {
		return "", ErrNotConfigured
	}
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyMessage
	}

	text, err := s.completer.Complete(ctx, llm.Request{
		Messages:    s.BuildMessages(message, history),
		Temperature: s.opts.Temperature,
		MaxTokens:   s.opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat reply: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("chat reply: %w", llm.ErrEmptyCompletion)
	}
	return text, nil
}

// TrimHistory keeps the most recent limit entries.
func TrimHistory(history []llm.Message, limit int) []llm.Message {
	if limit <= 0 || len(history) <= limit {
		return history
	}
	return history[len(history)-limit:]
}
