package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Event names emitted by the auth flows
const (
	EventUserRegistration = "UserRegistration"
	EventUserLogin        = "UserLogin"
	EventOpenIDLogin      = "OpenIDLogin"
)

// Event statuses
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// requestDurationBuckets covers interactive API latencies; bcrypt hashing sits
// around the 100ms mark, the OpenID exchange can take seconds.
var requestDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// Tracker registers and exposes the service's metrics: request latency and
// error rate per route (golden signals) plus auth event counters.
type Tracker struct {
	registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	requestsTotal   *prometheus.CounterVec
	requestErrors   *prometheus.CounterVec
	authEvents      *prometheus.CounterVec
}

// NewTracker creates a Tracker with its own registry
func NewTracker() *Tracker {
	t := &Tracker{
		registry: prometheus.NewRegistry(),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route and status code.",
			Buckets: requestDurationBuckets,
		}, []string{"method", "route", "code"}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		requestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_request_errors_total",
			Help: "Total HTTP responses with status >= 400.",
		}, []string{"method", "route", "type"}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_events_total",
			Help: "Authentication events by method and outcome.",
		}, []string{"event", "method", "status"}),
	}

	t.registry.MustRegister(t.requestDuration, t.requestsTotal, t.requestErrors, t.authEvents)
	return t
}

// TrackEvent records an auth event such as a registration or login attempt
func (t *Tracker) TrackEvent(event, method, status string) {
	t.authEvents.WithLabelValues(event, method, status).Inc()
}

// Handler returns the /metrics endpoint handler for this tracker's registry
func (t *Tracker) Handler() http.Handler {
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}
