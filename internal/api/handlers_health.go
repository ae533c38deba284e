// QuakeMap - Real-Time Seismic Event Ingestion and Spatial Queries
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"
	"time"

	"github.com/quakemap/quakemap/internal/models"
)

// HealthLive reports process liveness. It answers as long as the process
// can serve HTTP.
// GET /api/v1/health/live
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     map[string]any{"alive": true},
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	})
}

// HealthReady reports readiness: the store must answer a ping.
// GET /api/v1/health/ready
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "NOT_READY", "database is not reachable", err)
		return
	}
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     map[string]any{"ready": true},
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	})
}

// Health reports overall status including the event count and spatial
// capability.
// GET /api/v1/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "success"
	code := http.StatusOK
	dbOK := true
	if err := h.svc.Ping(r.Context()); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
		dbOK = false
	}

	data := map[string]any{
		"database":          dbOK,
		"spatial_available": h.svc.SpatialAvailable(),
	}
	if dbOK {
		data["events_stored"] = h.svc.Count(r.Context())
	}

	respondJSON(w, code, &models.APIResponse{
		Status:   status,
		Data:     data,
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
	})
}
