package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portfolio_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// Chatbot metrics
	ChatReplies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_chat_replies_total",
			Help: "Chat requests by outcome",
		},
		[]string{"outcome"}, // success, provider_error, not_configured, invalid
	)

	TipsServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_tips_served_total",
			Help: "Tips served by source",
		},
		[]string{"source"}, // "model" or "fallback"
	)

	ContactMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_contact_messages_total",
			Help: "Contact form submissions",
		},
		[]string{"result"},
	)

	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_rate_limit_hits_total",
			Help: "Total rate limit hits",
		},
		[]string{"endpoint"},
	)

	// Provider metrics
	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portfolio_llm_latency_seconds",
			Help:    "Completion API latency",
			Buckets: []float64{.1, .25, .5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"provider"},
	)

	ProviderErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_llm_errors_total",
			Help: "Completion API call failures",
		},
		[]string{"provider"},
	)
)
