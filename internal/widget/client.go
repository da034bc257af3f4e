package widget

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

type chatRequest struct {
	Message             string    `json:"message"`
	ConversationHistory []Message `json:"conversation_history"`
}

type chatResponse struct {
	Response string `json:"response"`
	Status   string `json:"status"`
	Error    string `json:"error"`
}

type tipResponse struct {
	Title string `json:"title"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

// APIClient talks to the portfolio server's /chat and /tip endpoints.
type APIClient struct {
	client *resty.Client
}

func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &APIClient{client: client}
}

// Chat posts the message with prior history. The server returns a usable
// apology in "response" even on errors, so any non-empty response counts.
func (a *APIClient) Chat(ctx context.Context, message string, history []Message) (string, error) {
	if history == nil {
		history = []Message{}
	}
	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(chatRequest{Message: message, ConversationHistory: history}).
		Post("/chat")
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}

	var result chatResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", fmt.Errorf("chat response status %d: %w", resp.StatusCode(), err)
	}
	if result.Response == "" {
		return "", fmt.Errorf("chat response status %d: no response (%s)", resp.StatusCode(), result.Error)
	}
	return result.Response, nil
}

// Tip fetches one tip. A fallback tip delivered with an error status is
// still a tip.
func (a *APIClient) Tip(ctx context.Context) (Tip, error) {
	resp, err := a.client.R().
		SetContext(ctx).
		Get("/tip")
	if err != nil {
		return Tip{}, fmt.Errorf("tip request: %w", err)
	}

	var result tipResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return Tip{}, fmt.Errorf("tip response status %d: %w", resp.StatusCode(), err)
	}
	if result.Title == "" || result.Code == "" {
		if resp.StatusCode() != http.StatusOK {
			return Tip{}, fmt.Errorf("tip response status %d: %s", resp.StatusCode(), result.Error)
		}
		return Tip{}, fmt.Errorf("tip response missing title or code")
	}
	return Tip{Title: result.Title, Code: result.Code}, nil
}
