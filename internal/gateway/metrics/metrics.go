package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "gateway"

var (
	TokenVerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_verifications_total",
			Help:      "Total number of token verifications, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	JWKSRefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jwks_refreshes_total",
			Help:      "Total number of JWKS refresh attempts, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	RateLimitRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_rejections_total",
			Help:      "Total number of requests rejected by rate limiting, labeled by endpoint class.",
		},
		[]string{"class"},
	)

	MCPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mcp_requests_total",
			Help:      "Total number of MCP JSON-RPC requests, labeled by method and outcome.",
		},
		[]string{"method", "outcome"},
	)

	ToolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Total number of tool invocations, labeled by tool and outcome.",
		},
		[]string{"tool", "outcome"},
	)

	RequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency (seconds), labeled by route.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"route"},
	)
)

func init() {
	prometheus.MustRegister(
		TokenVerificationsTotal,
		JWKSRefreshesTotal,
		RateLimitRejectionsTotal,
		MCPRequestsTotal,
		ToolCallsTotal,
		RequestDurationSeconds,
	)
}
