package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/Ehtisham33/portfolio/internal/metrics"
)

// GeminiClient sends the same message sequence to Google's Gemini models.
// System messages become the system instruction, earlier turns the chat
// history and the final message is sent as the new turn.
type GeminiClient struct {
	client *genai.Client
	model  string
	logger zerolog.Logger
}

func NewGeminiClient(ctx context.Context, apiKey, model string, logger zerolog.Logger) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiClient{
		client: client,
		model:  model,
		logger: logger.With().Str("module", "llm").Str("provider", "gemini").Logger(),
	}, nil
}

func (c *GeminiClient) Close() error {
	return c.client.Close()
}

func (c *GeminiClient) Complete(ctx context.Context, req Request) (string, error) {
	if len(req.Messages) == 0 {
		return "", fmt.Errorf("gemini: no messages to send")
	}

	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(req.Temperature)
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}

	system, history, last := splitForGemini(req.Messages)
	if len(system) > 0 {
		model.SystemInstruction = &genai.Content{Parts: system}
	}
	cs := model.StartChat()
	cs.History = history

	start := time.Now()
	resp, err := cs.SendMessage(ctx, genai.Text(last))
	metrics.ProviderLatency.WithLabelValues("gemini").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ProviderErrors.WithLabelValues("gemini").Inc()
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	text := extractText(resp)
	if strings.TrimSpace(text) == "" {
		c.logger.Warn().Str("model", c.model).Msg("empty candidate text")
		return "", ErrEmptyCompletion
	}
	return text, nil
}

// splitForGemini maps the OpenAI-style sequence onto Gemini's chat shape.
func splitForGemini(messages []Message) (system []genai.Part, history []*genai.Content, last string) {
	n := len(messages) - 1
	for _, m := range messages[:n] {
		switch m.Role {
		case RoleSystem:
			system = append(system, genai.Text(m.Content))
		case RoleAssistant:
			history = append(history, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(m.Content)}})
		default:
			history = append(history, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(m.Content)}})
		}
	}
	return system, history, messages[n].Content
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
