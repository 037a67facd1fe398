package middleware

import (
	"net/http"
	"sync/atomic"
	"time"
)

// MetricsCollector counts requests by outcome and accumulates latency.
type MetricsCollector struct {
	requests     atomic.Int64
	clientErrors atomic.Int64
	serverErrors atomic.Int64
	rateLimited  atomic.Int64
	totalNanos   atomic.Int64
}

type MetricsSnapshot struct {
	RequestCount     int64   `json:"request_count"`
	ErrorCount       int64   `json:"error_count"`
	ClientErrorCount int64   `json:"client_error_count"`
	ServerErrorCount int64   `json:"server_error_count"`
	RateLimitedCount int64   `json:"rate_limited_count"`
	AvgLatencyMillis float64 `json:"avg_latency_ms"`
}

func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

// Middleware returns middleware that counts requests and errors.
func (mc *MetricsCollector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)
		mc.observe(rw.statusCode, time.Since(start))
	})
}

func (mc *MetricsCollector) observe(status int, elapsed time.Duration) {
	mc.requests.Add(1)
	mc.totalNanos.Add(elapsed.Nanoseconds())
	switch {
	case status == http.StatusTooManyRequests:
		mc.rateLimited.Add(1)
		mc.clientErrors.Add(1)
	case status >= 500:
		mc.serverErrors.Add(1)
	case status >= 400:
		mc.clientErrors.Add(1)
	}
}

func (mc *MetricsCollector) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		RequestCount:     mc.requests.Load(),
		ClientErrorCount: mc.clientErrors.Load(),
		ServerErrorCount: mc.serverErrors.Load(),
		RateLimitedCount: mc.rateLimited.Load(),
	}
	s.ErrorCount = s.ClientErrorCount + s.ServerErrorCount
	if s.RequestCount > 0 {
		s.AvgLatencyMillis = float64(mc.totalNanos.Load()) / float64(s.RequestCount) / float64(time.Millisecond)
	}
	return s
}
