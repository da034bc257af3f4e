package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestMemoryLimiter_Window(t *testing.T) {
	rl := NewMemoryLimiter(2, time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	ctx := context.Background()

	for i, want := range []bool{true, true, false} {
		allowed, _, _, err := rl.Allow(ctx, "ip:1.2.3.4")
		if err != nil {
			t.Fatalf("Allow: %v", err)
		}
		if allowed != want {
			t.Errorf("request %d: expected allowed=%v", i+1, want)
		}
	}

	// Other keys are independent.
	if allowed, _, _, _ := rl.Allow(ctx, "ip:5.6.7.8"); !allowed {
		t.Error("a different client must not be limited")
	}

	// A new window resets the count.
	now = now.Add(61 * time.Second)
	allowed, remaining, _, _ := rl.Allow(ctx, "ip:1.2.3.4")
	if !allowed || remaining != 1 {
		t.Errorf("expected a fresh window, got allowed=%v remaining=%d", allowed, remaining)
	}
}

func TestRateLimit_RejectsWithCustomBody(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(NewMemoryLimiter(1, time.Minute), zerolog.Nop(), func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded", "response": "slow down"})
	}))
	r.POST("/chat", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "success"}) })

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/chat", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr
	}

	if rr := send(); rr.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", rr.Code)
	}
	rr := send()
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["response"] != "slow down" {
		t.Errorf("expected custom reject body, got %v", body)
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Body.String() == "" || rr.Header().Get("X-Request-ID") != rr.Body.String() {
		t.Errorf("expected generated id in header and context, got %q / %q", rr.Header().Get("X-Request-ID"), rr.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Body.String() != "abc-123" {
		t.Errorf("expected caller id to be reused, got %q", rr.Body.String())
	}
}

func TestCORS_Preflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS())
	r.POST("/chat", func(c *gin.Context) { c.Status(http.StatusOK) })

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/chat", nil))
	if rr.Code != http.StatusNoContent {
		t.Errorf("expected 204 for preflight, got %d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS origin header")
	}
}

func TestMaxBodySize(t *testing.T) {
	r := gin.New()
	r.Use(MaxBodySize(8))
	r.POST("/chat", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/chat", nil)
	req.ContentLength = 1024
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rr.Code)
	}
}
