package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Ehtisham33/portfolio/internal/metrics"
)

// Limiter decides whether another request under key fits the window.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, remaining int, resetAt time.Time, err error)
	Limit() int
}

// RedisLimiter is a fixed-window limiter shared by every server instance.
type RedisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, window: window}
}

func (rl *RedisLimiter) Limit() int { return rl.limit }

func (rl *RedisLimiter) Allow(ctx context.Context, key string) (bool, int, time.Time, error) {
	now := time.Now()
	bucket := now.Unix() / int64(rl.window.Seconds())
	windowKey := fmt.Sprintf("ratelimit:%s:%d", key, bucket)
	resetAt := time.Unix((bucket+1)*int64(rl.window.Seconds()), 0)

	pipe := rl.client.Pipeline()
	incr := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, rl.window*2)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, rl.limit, resetAt, fmt.Errorf("rate limit pipeline: %w", err)
	}

	count := int(incr.Val())
	remaining := rl.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= rl.limit, remaining, resetAt, nil
}

type visitor struct {
	count       int
	windowStart time.Time
}

// MemoryLimiter is the single-instance fallback when no Redis is configured.
type MemoryLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    int
	window   time.Duration
	now      func() time.Time
	lastGC   time.Time
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

func (rl *MemoryLimiter) Limit() int { return rl.limit }

func (rl *MemoryLimiter) Allow(_ context.Context, key string) (bool, int, time.Time, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastGC) > rl.window {
		for k, v := range rl.visitors {
			if now.Sub(v.windowStart) > rl.window {
				delete(rl.visitors, k)
			}
		}
		rl.lastGC = now
	}

	v, ok := rl.visitors[key]
	if !ok || now.Sub(v.windowStart) > rl.window {
		v = &visitor{windowStart: now}
		rl.visitors[key] = v
	}
	v.count++

	remaining := rl.limit - v.count
	if remaining < 0 {
		remaining = 0
	}
	return v.count <= rl.limit, remaining, v.windowStart.Add(rl.window), nil
}

// RateLimit limits requests per client IP. reject writes the 429 response so
// each endpoint keeps its own body shape.
func RateLimit(l Limiter, logger zerolog.Logger, reject func(c *gin.Context)) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		allowed, remaining, resetAt, err := l.Allow(c.Request.Context(), "ip:"+ip)
		if err != nil {
			// Fail open: the limiter protects the provider budget, not correctness.
			logger.Warn().Err(err).Str("ip", ip).Msg("rate limiter unavailable")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(l.Limit()))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(time.Until(resetAt).Seconds())+1))
			metrics.RateLimitHits.WithLabelValues(c.FullPath()).Inc()
			logger.Warn().
				Str("type", "security").
				Str("event", "rate_limit_exceeded").
				Str("ip", ip).
				Str("endpoint", c.Request.URL.Path).
				Msg("rate limit exceeded")
			if reject != nil {
				reject(c)
			}
			if !c.IsAborted() {
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			}
			return
		}
		c.Next()
	}
}
