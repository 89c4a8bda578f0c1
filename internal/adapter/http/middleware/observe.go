package middleware

import (
	"net/http"
	"time"

	"github.com/Temutjin2k/taxi-dispatch/pkg/metrics"
)

// Logging logs every request with its route, status and duration. Server
// errors are logged at WARN, the rest at DEBUG.
func (m *Middleware) Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := recordStatus(w)

		m.log.Debug(r.Context(), "request started",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		next.ServeHTTP(rec, r)

		args := []any{
			"method", r.Method,
			"route", m.routeOf(r),
			"status", rec.Status(),
			"duration", time.Since(start).String(),
		}
		if rec.Status() >= http.StatusInternalServerError {
			m.log.Warn(r.Context(), "request failed", args...)
			return
		}
		m.log.Debug(r.Context(), "request completed", args...)
	})
}

// Metrics records request count, latency and in-flight requests per route.
// The /metrics scrape itself is not recorded.
func (m *Middleware) Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		inFlight := metrics.HttpRequestsInFlight.WithLabelValues(m.service)
		inFlight.Inc()
		defer inFlight.Dec()

		start := time.Now()
		rec := recordStatus(w)

		next.ServeHTTP(rec, r)

		metrics.RecordHTTPMetrics(m.service, r.Method, m.routeOf(r), rec.Status(), time.Since(start))
	})
}
