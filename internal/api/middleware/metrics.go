package middleware

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/Harshitk-cp/clawguild/internal/telemetry"
)

// MetricsCollector counts requests for the JSON /metrics view and records
// them on the OpenTelemetry instruments.
type MetricsCollector struct {
	requestCount *atomic.Int64
	errorCount   *atomic.Int64
	metrics      *telemetry.Metrics
}

// NewMetricsCollector creates a new metrics collector. metrics may be nil.
func NewMetricsCollector(requestCount, errorCount *atomic.Int64, metrics *telemetry.Metrics) *MetricsCollector {
	return &MetricsCollector{
		requestCount: requestCount,
		errorCount:   errorCount,
		metrics:      metrics,
	}
}

// Middleware returns middleware that counts requests and errors.
func (mc *MetricsCollector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		mc.requestCount.Add(1)

		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		// 4xx and 5xx
		if rw.statusCode >= 400 {
			mc.errorCount.Add(1)
		}
		mc.metrics.Request(r.Context(), r.Method, routePattern(r), rw.statusCode, time.Since(start))
	})
}
