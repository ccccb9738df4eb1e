package health

import (
	"net/http"
	"time"

	"github.com/go-chi/render"
)

// Status is the health endpoint response body
type Status struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Uptime      string    `json:"uptime"`
	Environment string    `json:"environment"`
	Monitoring  string    `json:"monitoring"`
}

// Handle reports process health and uptime
type Handle struct {
	startedAt   time.Time
	environment string
	monitoring  string
}

// NewHandle creates a health handler. monitoringEnabled reports whether
// metrics collection is active.
func NewHandle(environment string, monitoringEnabled bool) *Handle {
	monitoring := "disabled"
	if monitoringEnabled {
		monitoring = "enabled"
	}
	return &Handle{
		startedAt:   time.Now(),
		environment: environment,
		monitoring:  monitoring,
	}
}

// Health handles GET /health
func (h *Handle) Health(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, Status{
		Status:      "OK",
		Timestamp:   time.Now().UTC(),
		Uptime:      time.Since(h.startedAt).Round(time.Second).String(),
		Environment: h.environment,
		Monitoring:  h.monitoring,
	})
}
