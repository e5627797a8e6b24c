package handler

import (
	"net/http"
	"time"
)

var startTime = time.Now()

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	version string
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(version string) *HealthHandler {
	return &HealthHandler{version: version}
}

// HealthResponse is the JSON response for health checks.
type HealthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version,omitempty"`
	Uptime    string `json:"uptime"`
	Timestamp string `json:"timestamp"`
}

// Live handles GET /health - liveness probe.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Version:   h.version,
		Uptime:    time.Since(startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
