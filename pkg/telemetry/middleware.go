package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// statusWriter captures the response status code at write time
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Middleware records latency, traffic and error-rate metrics for every
// response. Health checks are skipped to reduce noise. Recording happens after
// the handler returns and never blocks or fails the response.
func (t *Tracker) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		route := routePattern(r)
		code := strconv.Itoa(sw.status)
		duration := time.Since(start).Seconds()

		t.requestDuration.WithLabelValues(r.Method, route, code).Observe(duration)
		t.requestsTotal.WithLabelValues(r.Method, route, code).Inc()

		if sw.status >= 400 {
			errType := "client_error"
			if sw.status >= 500 {
				errType = "server_error"
			}
			t.requestErrors.WithLabelValues(r.Method, route, errType).Inc()
		}
	})
}

// routePattern returns the chi route pattern so path parameters don't explode
// label cardinality; falls back to the raw path outside a chi context.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
