package assistant

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Ehtisham33/portfolio/internal/llm"
)

// stubCompleter records every request and answers with a canned reply.
type stubCompleter struct {
	mu       sync.Mutex
	reply    string
	err      error
	requests []llm.Request
}

func (s *stubCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return s.reply, s.err
}

func (s *stubCompleter) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *stubCompleter) last() llm.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

func history(n int) []llm.Message {
	out := make([]llm.Message, 0, n)
	for i := 0; i < n; i++ {
		role := llm.RoleUser
		if i%2 == 1 {
			role = llm.RoleAssistant
		}
		out = append(out, llm.Message{Role: role, Content: fmt.Sprintf("turn %d", i)})
	}
	return out
}

var errProvider = errors.New("connection reset by peer")
