// QuakeMap - Real-Time Seismic Event Ingestion and Spatial Queries
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api exposes the HTTP query surface over Chi.
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/quakemap/quakemap/internal/logging"
	"github.com/quakemap/quakemap/internal/models"
	"github.com/quakemap/quakemap/internal/service"
)

var (
	errRadiusIncomplete = fmt.Errorf("radius filtering requires lon, lat, and radius_km together")
	errBboxIncomplete   = fmt.Errorf("bounding box filtering requires min_lon, min_lat, max_lon, and max_lat together")
	errBboxInverted     = fmt.Errorf("bounding box min corner must be south-west of the max corner")
	errPointRequired    = fmt.Errorf("lon and lat are required")
)

// Handler holds the dependencies of all HTTP handlers.
type Handler struct {
	svc *service.Service
}

// NewHandler creates the handler set over the given service.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// sanitizeLogValue replaces control characters so attacker-supplied strings
// cannot forge log lines.
func sanitizeLogValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			b.WriteString(fmt.Sprintf("\\x%02x", r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// respondJSON sends a standard envelope response.
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("failed to write JSON response")
	}
}

// respondGeoJSON sends a bare feature collection with the GeoJSON media
// type. GeoJSON endpoints skip the envelope so the body is directly
// consumable by mapping clients.
func respondGeoJSON(w http.ResponseWriter, fc *models.FeatureCollection) {
	w.Header().Set("Content-Type", "application/geo+json")

	data, err := json.Marshal(fc)
	if err != nil {
		logging.Error().Err(err).Msg("failed to marshal GeoJSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("failed to write GeoJSON response")
	}
}

// respondError sends an error envelope.
func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		logging.Error().
			Str("code", code).
			Str("error", sanitizeLogValue(err.Error())).
			Msg("API error")
	}

	respondJSON(w, status, &models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error:    &models.APIError{Code: code, Message: message},
	})
}

// respondData sends a success envelope with count and query duration.
func respondData(w http.ResponseWriter, data any, count int, start time.Time) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp: time.Now().UTC(),
			Count:     count,
			QueryMs:   time.Since(start).Milliseconds(),
		},
	})
}

// queryFloat parses a float query parameter. The second return reports
// whether the parameter was present.
func queryFloat(r *http.Request, name string) (float64, bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, true, fmt.Errorf("%s must be a number", name)
	}
	return v, true, nil
}

// queryInt parses an integer query parameter with a default.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return v, nil
}
