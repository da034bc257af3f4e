package widget

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeChat struct {
	mu      sync.Mutex
	reply   string
	err     error
	block   chan struct{}
	started chan struct{}
	calls   int
	history [][]Message
}

func (f *fakeChat) Chat(ctx context.Context, message string, history []Message) (string, error) {
	f.mu.Lock()
	f.calls++
	f.history = append(f.history, append([]Message(nil), history...))
	block, started := f.block, f.started
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		<-block
	}
	return f.reply, f.err
}

func TestSession_SubmitAppendsReply(t *testing.T) {
	api := &fakeChat{reply: "He builds backends."}
	s := NewSession(api, Greeting)

	answer, err := s.Submit(context.Background(), "What does he do?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer.Content != api.reply {
		t.Errorf("expected %q, got %q", api.reply, answer.Content)
	}

	msgs := s.Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected greeting, user and assistant, got %d", len(msgs))
	}
	if msgs[1].Role != RoleUser || msgs[1].Content != "What does he do?" {
		t.Errorf("unexpected user turn %+v", msgs[1])
	}
	if msgs[2].Role != RoleAssistant {
		t.Errorf("unexpected assistant turn %+v", msgs[2])
	}
	if len(api.history[0]) != 1 || api.history[0][0].Content != Greeting {
		t.Errorf("expected prior history to be the greeting only, got %+v", api.history[0])
	}
}

func TestSession_EmptyInputIsNoop(t *testing.T) {
	api := &fakeChat{reply: "x"}
	s := NewSession(api, Greeting)

	for _, in := range []string{"", "   ", "\n\t"} {
		if _, err := s.Submit(context.Background(), in); !errors.Is(err, ErrEmptyInput) {
			t.Errorf("input %q: expected ErrEmptyInput, got %v", in, err)
		}
	}
	if api.calls != 0 {
		t.Errorf("expected no API call, got %d", api.calls)
	}
	if len(s.Messages()) != 1 {
		t.Errorf("expected only the greeting, got %d messages", len(s.Messages()))
	}
}

func TestSession_BusyGuard(t *testing.T) {
	api := &fakeChat{
		reply:   "first answer",
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	s := NewSession(api, Greeting)

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background(), "first")
		done <- err
	}()

	select {
	case <-api.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first submit never reached the API")
	}
	if !s.Busy() {
		t.Fatal("session should be busy while a submit is in flight")
	}

	before := s.Messages()
	if _, err := s.Submit(context.Background(), "second"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if len(s.Messages()) != len(before) {
		t.Errorf("busy submit changed the list: %d -> %d", len(before), len(s.Messages()))
	}

	close(api.block)
	if err := <-done; err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	if s.Busy() {
		t.Error("session should be idle after the reply")
	}
	if api.calls != 1 {
		t.Errorf("expected one API call, got %d", api.calls)
	}
}

func TestSession_TransportErrorShowsApology(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
	}{
		{"network error", "", errors.New("dial tcp: connection refused")},
		{"empty reply", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(&fakeChat{reply: tt.reply, err: tt.err}, "")

			answer, err := s.Submit(context.Background(), "hello")
			if err == nil {
				t.Fatal("expected an error")
			}
			if answer.Content != LocalApology {
				t.Errorf("expected local apology, got %q", answer.Content)
			}
			msgs := s.Messages()
			if len(msgs) != 2 || msgs[1].Content != LocalApology {
				t.Errorf("unexpected list %+v", msgs)
			}
			if s.Busy() {
				t.Error("busy flag must be cleared after a failure")
			}
		})
	}
}

func TestSession_HistoryCappedAtFive(t *testing.T) {
	api := &fakeChat{reply: "ok"}
	s := NewSession(api, Greeting)

	for i := 0; i < 4; i++ {
		if _, err := s.Submit(context.Background(), fmt.Sprintf("q%d", i)); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	last := api.history[len(api.history)-1]
	if len(last) != HistoryLimit {
		t.Fatalf("expected %d prior messages, got %d", HistoryLimit, len(last))
	}
	// 1 greeting + 3 rounds = 7 prior; the window drops the greeting and q0.
	if last[0].Role != RoleAssistant || last[1].Content != "q1" {
		t.Errorf("unexpected window %+v", last)
	}
}

func TestSession_OnChange(t *testing.T) {
	s := NewSession(&fakeChat{reply: "ok"}, "")
	var sizes []int
	s.OnChange(func(msgs []Message) { sizes = append(sizes, len(msgs)) })

	if _, err := s.Submit(context.Background(), "hi"); err != nil {
		t.Fatal(err)
	}
	if len(sizes) != 2 || sizes[0] != 1 || sizes[1] != 2 {
		t.Errorf("expected notifications for 1 then 2 messages, got %v", sizes)
	}
}
