package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Ehtisham33/portfolio/internal/assistant"
	"github.com/Ehtisham33/portfolio/internal/metrics"
	"github.com/Ehtisham33/portfolio/internal/widget"
)

// Opt-out cookie lifetime: one year.
const tipsCookieMaxAge = 365 * 24 * 3600

type tipResponse struct {
	Title string `json:"title"`
	Code  string `json:"code"`
	Error string `json:"error,omitempty"`
}

func (s *server) handleTip(c *gin.Context) {
	tip, notConfigured := s.nextTip(c.Request.Context())
	if notConfigured {
		c.JSON(http.StatusInternalServerError, tipResponse{
			Title: tip.Title,
			Code:  tip.Code,
			Error: "Server configuration error",
		})
		return
	}
	c.JSON(http.StatusOK, tipResponse{Title: tip.Title, Code: tip.Code})
}

// handleTipFragment renders the popup. Once the visitor has opted out the
// returned fragment has no polling trigger, which stops htmx from asking
// again.
func (s *server) handleTipFragment(c *gin.Context) {
	if tipsDisabled(c) {
		c.HTML(http.StatusOK, "tip-disabled.html", nil)
		return
	}
	tip, _ := s.nextTip(c.Request.Context())
	c.HTML(http.StatusOK, "tip.html", gin.H{"tip": tip})
}

func (s *server) handleTipsDisable(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(widget.TipsDisabledKey, "true", tipsCookieMaxAge, "/", "", false, false)
	c.HTML(http.StatusOK, "tip-disabled.html", nil)
}

func (s *server) handleTipsEnable(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(widget.TipsDisabledKey, "", -1, "/", "", false, false)
	c.HTML(http.StatusOK, "tip.html", gin.H{"loading": true})
}

// nextTip always yields a tip. notConfigured reports the missing-credential
// case, which callers surface as a configuration error.
func (s *server) nextTip(ctx context.Context) (tip assistant.Tip, notConfigured bool) {
	tip, source, err := s.tips.Next(ctx)
	switch {
	case errors.Is(err, assistant.ErrNotConfigured):
		s.log.Error().Msg("tip request served config fallback: completion API key not configured")
		notConfigured = true
	case err != nil:
		s.log.Warn().Err(err).Msg("tip completion failed, serving fallback tip")
	}

	metrics.TipsServed.WithLabelValues(string(source)).Inc()
	if err := s.store.RecordTip(ctx, string(source), tip.Title); err != nil {
		s.log.Warn().Err(err).Msg("failed to record tip event")
	}
	return tip, notConfigured
}

func tipsDisabled(c *gin.Context) bool {
	v, err := c.Cookie(widget.TipsDisabledKey)
	return err == nil && v == "true"
}
