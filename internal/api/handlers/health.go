package handlers

import (
	"context"
	"net/http"
	"route-weather-service/internal/api/dto"
	"time"
)

// Health provides a minimal liveness check endpoint.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, dto.HealthResponse{Status: "ok"})
}

// Check is one readiness probe. It returns nil when the dependency is usable.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

type ReadinessHandler struct {
	Checks []Check
}

// Ready runs every check and reports 503 if any fails.
func (h *ReadinessHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	res := dto.ReadinessResponse{Status: "ok", Checks: make([]dto.ReadinessCheck, 0, len(h.Checks))}
	status := http.StatusOK

	for _, c := range h.Checks {
		rc := dto.ReadinessCheck{Name: c.Name, Status: "ok"}
		if err := c.Probe(ctx); err != nil {
			rc.Status = "error"
			rc.Error = err.Error()
			res.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
		res.Checks = append(res.Checks, rc)
	}

	writeJSON(w, r, status, res)
}
