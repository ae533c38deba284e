// QuakeMap - Real-Time Seismic Event Ingestion and Spatial Queries
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"
	"time"

	"github.com/quakemap/quakemap/internal/validation"
)

// nearestWindowHours is the default window for nearest-neighbor lookups.
// It is much wider than the general default because "closest events to
// here" over a quiet region finds nothing in a single day.
const nearestWindowHours = 24 * 30

type nearbyParams struct {
	Lon   float64 `validate:"gte=-180,lte=180"`
	Lat   float64 `validate:"gte=-90,lte=90"`
	Km    float64 `validate:"gt=0,lte=20000"`
	Hours int     `validate:"min=1,max=8760"`
}

type nearestParams struct {
	Lon   float64 `validate:"gte=-180,lte=180"`
	Lat   float64 `validate:"gte=-90,lte=90"`
	Limit int     `validate:"min=1,max=1000"`
	Hours int     `validate:"min=1,max=8760"`
}

type bufferedParams struct {
	Km    float64 `validate:"gt=0,lte=1000"`
	Hours int     `validate:"min=1,max=8760"`
}

type clustersParams struct {
	CellKm float64 `validate:"gt=0,lte=5000"`
	Hours  int     `validate:"min=1,max=8760"`
}

// requireSpatial rejects the request when the spatial extension is not
// loaded. Spatial endpoints cannot degrade silently the way flat queries
// do: an empty result would be indistinguishable from a quiet region.
func (h *Handler) requireSpatial(w http.ResponseWriter) bool {
	if h.svc.SpatialAvailable() {
		return true
	}
	respondError(w, http.StatusServiceUnavailable, "SPATIAL_UNAVAILABLE",
		"spatial queries are not available", nil)
	return false
}

// Nearby returns events within a radius of a point as GeoJSON.
// GET /api/v1/earthquakes/nearby?lon=25&lat=36&radius_km=100&hours=24
func (h *Handler) Nearby(w http.ResponseWriter, r *http.Request) {
	if !h.requireSpatial(w) {
		return
	}

	p := nearbyParams{}
	var err error
	if p.Lon, p.Lat, err = requiredPoint(r); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	km, hasKm, err := queryFloat(r, "radius_km")
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	if !hasKm {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "radius_km is required", nil)
		return
	}
	p.Km = km
	if p.Hours, err = queryInt(r, "hours", defaultWindowHours); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	if err := validation.ValidateStruct(&p); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	respondGeoJSON(w, h.svc.Nearby(r.Context(), p.Lon, p.Lat, p.Km, p.Hours))
}

// Overlay returns events intersecting a caller-supplied geometry. The
// geometry is passed in the "geom" parameter as WKT or GeoJSON text.
// GET /api/v1/earthquakes/overlay?geom=POLYGON((...))&hours=24
func (h *Handler) Overlay(w http.ResponseWriter, r *http.Request) {
	if !h.requireSpatial(w) {
		return
	}

	geom := r.URL.Query().Get("geom")
	if geom == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "geom is required", nil)
		return
	}
	if len(geom) > 64*1024 {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "geom is too large", nil)
		return
	}
	hours, err := queryInt(r, "hours", defaultWindowHours)
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	if err := validation.ValidateStruct(&windowParams{Hours: hours}); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	respondGeoJSON(w, h.svc.Overlay(r.Context(), geom, hours))
}

// Nearest returns the events closest to a point as flat records with a
// distance_m column, ascending by distance.
// GET /api/v1/earthquakes/nearest?lon=25&lat=36&limit=10&hours=24
func (h *Handler) Nearest(w http.ResponseWriter, r *http.Request) {
	if !h.requireSpatial(w) {
		return
	}
	start := time.Now()

	p := nearestParams{}
	var err error
	if p.Lon, p.Lat, err = requiredPoint(r); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	if p.Limit, err = queryInt(r, "limit", 10); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	if p.Hours, err = queryInt(r, "hours", nearestWindowHours); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	if err := validation.ValidateStruct(&p); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	records := h.svc.Nearest(r.Context(), p.Lon, p.Lat, p.Limit, p.Hours)
	respondData(w, records, len(records), start)
}

// Buffered returns each recent event's buffer polygon as GeoJSON.
// GET /api/v1/earthquakes/buffered?radius_km=50&hours=24
func (h *Handler) Buffered(w http.ResponseWriter, r *http.Request) {
	if !h.requireSpatial(w) {
		return
	}

	p := bufferedParams{}
	km, hasKm, err := queryFloat(r, "radius_km")
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	if !hasKm {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "radius_km is required", nil)
		return
	}
	p.Km = km
	if p.Hours, err = queryInt(r, "hours", defaultWindowHours); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	if err := validation.ValidateStruct(&p); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	respondGeoJSON(w, h.svc.Buffered(r.Context(), p.Km, p.Hours))
}

// Clusters returns grid-bucketed event aggregates.
// GET /api/v1/earthquakes/clusters?cell_km=100&hours=24
func (h *Handler) Clusters(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	p := clustersParams{}
	km, hasKm, err := queryFloat(r, "cell_km")
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	if !hasKm {
		km = 100
	}
	p.CellKm = km
	if p.Hours, err = queryInt(r, "hours", defaultWindowHours); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	if err := validation.ValidateStruct(&p); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	cells := h.svc.Clusters(r.Context(), p.CellKm, p.Hours)
	respondData(w, cells, len(cells), start)
}

// requiredPoint parses the mandatory lon/lat pair.
func requiredPoint(r *http.Request) (lon, lat float64, err error) {
	lon, hasLon, err := queryFloat(r, "lon")
	if err != nil {
		return 0, 0, err
	}
	lat, hasLat, err := queryFloat(r, "lat")
	if err != nil {
		return 0, 0, err
	}
	if !hasLon || !hasLat {
		return 0, 0, errPointRequired
	}
	return lon, lat, nil
}
