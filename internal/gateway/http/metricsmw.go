package http

import (
	"net/http"
	"time"

	"github.com/datakwip/mcp-gateway/internal/gateway/metrics"
	"github.com/datakwip/mcp-gateway/pkg/httpx"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// observe records request latency per endpoint class and counts rate-limit
// rejections. It wraps outside the rate limiter so it sees the 429 writes.
func observe(class string) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()

			next.ServeHTTP(rec, r)

			metrics.RequestDurationSeconds.WithLabelValues(class).Observe(time.Since(start).Seconds())
			if rec.status == http.StatusTooManyRequests {
				metrics.RateLimitRejectionsTotal.WithLabelValues(class).Inc()
			}
		})
	}
}
