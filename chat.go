package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Ehtisham33/portfolio/internal/assistant"
	"github.com/Ehtisham33/portfolio/internal/llm"
	"github.com/Ehtisham33/portfolio/internal/metrics"
	"github.com/Ehtisham33/portfolio/internal/middleware"
	"github.com/Ehtisham33/portfolio/internal/widget"
)

// Chat outcomes, used for metrics and the usage table.
const (
	outcomeSuccess       = "success"
	outcomeProviderError = "provider_error"
	outcomeNotConfigured = "not_configured"
	outcomeInvalid       = "invalid"
)

type chatRequest struct {
	Message             string        `json:"message"`
	ConversationHistory []llm.Message `json:"conversation_history"`
}

type chatResponse struct {
	Response string `json:"response"`
	Status   string `json:"status,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (s *server) handleChat(c *gin.Context) {
	start := time.Now()

	if !s.chat.Configured() {
		s.log.Error().
			Str("request_id", middleware.GetRequestID(c)).
			Msg("chat request rejected: completion API key not configured")
		s.recordChat(c.Request.Context(), outcomeNotConfigured, 0, start)
		c.JSON(http.StatusInternalServerError, chatResponse{
			Error:    "Server configuration error",
			Response: assistant.ConfigApology,
		})
		return
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		s.recordChat(c.Request.Context(), outcomeInvalid, 0, start)
		c.JSON(http.StatusBadRequest, chatResponse{
			Error:    "Message is required",
			Response: assistant.ConnectionApology,
		})
		return
	}

	reply, err := s.chat.Reply(c.Request.Context(), req.Message, req.ConversationHistory)
	if err != nil {
		s.log.Error().Err(err).
			Str("request_id", middleware.GetRequestID(c)).
			Int("history", len(req.ConversationHistory)).
			Msg("chat completion failed")
		s.recordChat(c.Request.Context(), outcomeProviderError, len(req.ConversationHistory), start)
		c.JSON(http.StatusInternalServerError, chatResponse{
			Error:    "Failed to process chat message",
			Response: assistant.ConnectionApology,
		})
		return
	}

	s.recordChat(c.Request.Context(), outcomeSuccess, len(req.ConversationHistory), start)
	c.JSON(http.StatusOK, chatResponse{Response: reply, Status: "success"})
}

// handleChatFragment is the HTMX variant: the form carries the message and
// the prior history as JSON, the response is the two new bubbles plus an
// out-of-band replacement of the history field.
func (s *server) handleChatFragment(c *gin.Context) {
	start := time.Now()
	message := strings.TrimSpace(c.PostForm("message"))
	if message == "" {
		c.Status(http.StatusNoContent)
		return
	}

	var prior []widget.Message
	if raw := c.PostForm("history"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &prior); err != nil {
			s.log.Debug().Err(err).Msg("discarding malformed chat history field")
			prior = nil
		}
	}
	if len(prior) > widget.HistoryLimit {
		prior = prior[len(prior)-widget.HistoryLimit:]
	}

	history := make([]llm.Message, 0, len(prior))
	for _, m := range prior {
		history = append(history, llm.Message{Role: m.Role, Content: m.Content})
	}

	reply, err := s.chat.Reply(c.Request.Context(), message, history)
	switch {
	case errors.Is(err, assistant.ErrNotConfigured):
		s.log.Error().Msg("chat fragment rejected: completion API key not configured")
		s.recordChat(c.Request.Context(), outcomeNotConfigured, 0, start)
		reply = assistant.ConfigApology
	case err != nil:
		s.log.Error().Err(err).
			Str("request_id", middleware.GetRequestID(c)).
			Msg("chat completion failed")
		s.recordChat(c.Request.Context(), outcomeProviderError, len(history), start)
		reply = widget.LocalApology
	default:
		s.recordChat(c.Request.Context(), outcomeSuccess, len(history), start)
	}

	exchange := []widget.Message{
		{Role: widget.RoleUser, Content: message},
		{Role: widget.RoleAssistant, Content: reply},
	}
	next := append(prior, exchange...)
	if len(next) > widget.HistoryLimit {
		next = next[len(next)-widget.HistoryLimit:]
	}

	c.HTML(http.StatusOK, "chat-messages.html", gin.H{
		"messages": exchange,
		"history":  next,
		"oob":      true,
	})
}

func rejectChatJSON(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, chatResponse{
		Error:    "rate limit exceeded",
		Response: "You're sending messages too quickly. Please wait a moment and try again.",
	})
}

// rejectChatFragment answers 200 so htmx swaps the notice into the log.
func (s *server) rejectChatFragment(c *gin.Context) {
	c.HTML(http.StatusOK, "chat-messages.html", gin.H{
		"messages": []widget.Message{{
			Role:    widget.RoleAssistant,
			Content: "You're sending messages too quickly. Please wait a moment and try again.",
		}},
	})
	c.Abort()
}

func (s *server) recordChat(ctx context.Context, outcome string, historyLen int, start time.Time) {
	metrics.ChatReplies.WithLabelValues(outcome).Inc()
	if err := s.store.RecordChat(ctx, outcome, historyLen, time.Since(start)); err != nil {
		s.log.Warn().Err(err).Str("outcome", outcome).Msg("failed to record chat event")
	}
}
