// Package widget is the client side of the chatbot: conversation state with
// a busy guard, link detection, the idle tip poller and its opt-out
// preference.
package widget

import (
	"context"
	"errors"
	"strings"
	"sync"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// HistoryLimit caps how many prior messages are sent with a submit.
const HistoryLimit = 5

// Greeting seeds every new conversation.
const Greeting = "Hi! I'm Ehtisham's AI assistant.\n\nI can help you learn about his AI chatbots, backend systems, full-stack projects, and how to work with him.\n\nWhat would you like to know?"

// LocalApology is shown when the chat endpoint cannot be reached.
const LocalApology = "I apologize, but I'm having trouble connecting right now. Please try again later."

var (
	ErrBusy       = errors.New("widget: a message is already being sent")
	ErrEmptyInput = errors.New("widget: empty input")
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatAPI sends a message and prior history to the chat endpoint.
type ChatAPI interface {
	Chat(ctx context.Context, message string, history []Message) (string, error)
}

// Session is one visitor conversation. The message list only grows.
type Session struct {
	api ChatAPI

	mu       sync.Mutex
	messages []Message
	busy     bool
	onChange func([]Message)
}

func NewSession(api ChatAPI, greeting string) *Session {
	s := &Session{api: api}
	if greeting != "" {
		s.messages = append(s.messages, Message{Role: RoleAssistant, Content: greeting})
	}
	return s
}

// OnChange registers a callback run after every list mutation, outside the
// session lock.
func (s *Session) OnChange(fn func([]Message)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.messages...)
}

func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Submit appends input optimistically, asks the chat endpoint and appends
// the reply (or LocalApology). Blank input and submits while another is in
// flight are dropped with ErrEmptyInput / ErrBusy and leave the list
// unchanged. The returned error is the transport failure, if any; the
// returned message is always the appended assistant turn.
func (s *Session) Submit(ctx context.Context, input string) (Message, error) {
	s.mu.Lock()
	if strings.TrimSpace(input) == "" {
		s.mu.Unlock()
		return Message{}, ErrEmptyInput
	}
	if s.busy {
		s.mu.Unlock()
		return Message{}, ErrBusy
	}
	prior := append([]Message(nil), s.messages...)
	if len(prior) > HistoryLimit {
		prior = prior[len(prior)-HistoryLimit:]
	}
	s.messages = append(s.messages, Message{Role: RoleUser, Content: input})
	s.busy = true
	s.notifyLocked()

	reply, err := s.api.Chat(ctx, input, prior)
	if err == nil && reply == "" {
		err = errors.New("widget: no response from API")
	}

	answer := Message{Role: RoleAssistant, Content: reply}
	if err != nil {
		answer.Content = LocalApology
	}

	s.mu.Lock()
	s.messages = append(s.messages, answer)
	s.busy = false
	s.notifyLocked()
	return answer, err
}

// notifyLocked snapshots the list, releases the lock and runs the callback.
func (s *Session) notifyLocked() {
	fn := s.onChange
	snapshot := append([]Message(nil), s.messages...)
	s.mu.Unlock()
	if fn != nil {
		fn(snapshot)
	}
}
