// QuakeMap - Real-Time Seismic Event Ingestion and Spatial Queries
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"
	"time"

	"github.com/quakemap/quakemap/internal/models"
	"github.com/quakemap/quakemap/internal/service"
	"github.com/quakemap/quakemap/internal/validation"
)

const (
	defaultWindowHours = 24
	defaultLimit       = 100
)

type windowParams struct {
	Hours int `validate:"min=1,max=8760"`
}

// Earthquakes returns recent events as flat records, newest first.
// GET /api/v1/earthquakes?hours=24
func (h *Handler) Earthquakes(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	hours, err := queryInt(r, "hours", defaultWindowHours)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	if err := validation.ValidateStruct(&windowParams{Hours: hours}); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	records := h.svc.Recent(r.Context(), hours)
	respondData(w, records, len(records), start)
}

// EarthquakesGeoJSON returns recent events as a GeoJSON feature
// collection, optionally narrowed by a radius (lon, lat, radius_km) or a
// bounding box (min_lon, min_lat, max_lon, max_lat).
// GET /api/v1/earthquakes/geojson?hours=24&lon=25&lat=36&radius_km=100
func (h *Handler) EarthquakesGeoJSON(w http.ResponseWriter, r *http.Request) {
	hours, err := queryInt(r, "hours", defaultWindowHours)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	if err := validation.ValidateStruct(&windowParams{Hours: hours}); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	radius, err := radiusFromQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	bbox, err := bboxFromQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	if (radius != nil || bbox != nil) && !h.svc.SpatialAvailable() {
		respondError(w, http.StatusServiceUnavailable, "SPATIAL_UNAVAILABLE",
			"spatial filtering is not available", nil)
		return
	}

	respondGeoJSON(w, h.svc.Events(r.Context(), hours, radius, bbox))
}

// Timeline returns events between two canonical timestamps, oldest first.
// GET /api/v1/earthquakes/timeline?start=...&end=...&limit=100
func (h *Handler) Timeline(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	startTS := r.URL.Query().Get("start")
	endTS := r.URL.Query().Get("end")
	if startTS == "" && endTS == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR",
			"at least one of start or end is required", nil)
		return
	}
	for _, ts := range []string{startTS, endTS} {
		if ts == "" {
			continue
		}
		if _, err := time.Parse(models.TimeLayout, ts); err != nil {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR",
				"timestamps must use the layout "+models.TimeLayout, nil)
			return
		}
	}

	limit, err := queryInt(r, "limit", defaultLimit)
	if err != nil || limit < 1 || limit > 10000 {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR",
			"limit must be between 1 and 10000", nil)
		return
	}

	records := h.svc.TimeWindow(r.Context(), startTS, endTS, limit)
	respondData(w, records, len(records), started)
}

func radiusFromQuery(r *http.Request) (*service.RadiusFilter, error) {
	lon, hasLon, err := queryFloat(r, "lon")
	if err != nil {
		return nil, err
	}
	lat, hasLat, err := queryFloat(r, "lat")
	if err != nil {
		return nil, err
	}
	km, hasKm, err := queryFloat(r, "radius_km")
	if err != nil {
		return nil, err
	}
	if !hasLon && !hasLat && !hasKm {
		return nil, nil
	}

	p := struct {
		Lon float64 `validate:"gte=-180,lte=180"`
		Lat float64 `validate:"gte=-90,lte=90"`
		Km  float64 `validate:"gt=0,lte=20000"`
	}{lon, lat, km}
	if !hasLon || !hasLat || !hasKm {
		return nil, errRadiusIncomplete
	}
	if err := validation.ValidateStruct(&p); err != nil {
		return nil, err
	}
	return &service.RadiusFilter{Lon: lon, Lat: lat, Km: km}, nil
}

func bboxFromQuery(r *http.Request) (*service.BboxFilter, error) {
	names := []string{"min_lon", "min_lat", "max_lon", "max_lat"}
	vals := make([]float64, len(names))
	present := 0
	for i, name := range names {
		v, has, err := queryFloat(r, name)
		if err != nil {
			return nil, err
		}
		if has {
			present++
		}
		vals[i] = v
	}
	if present == 0 {
		return nil, nil
	}
	if present != len(names) {
		return nil, errBboxIncomplete
	}

	p := struct {
		MinLon float64 `validate:"gte=-180,lte=180"`
		MinLat float64 `validate:"gte=-90,lte=90"`
		MaxLon float64 `validate:"gte=-180,lte=180"`
		MaxLat float64 `validate:"gte=-90,lte=90"`
	}{vals[0], vals[1], vals[2], vals[3]}
	if err := validation.ValidateStruct(&p); err != nil {
		return nil, err
	}
	if vals[0] >= vals[2] || vals[1] >= vals[3] {
		return nil, errBboxInverted
	}
	return &service.BboxFilter{MinLon: vals[0], MinLat: vals[1], MaxLon: vals[2], MaxLat: vals[3]}, nil
}
