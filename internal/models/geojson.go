// QuakeMap - Real-Time Seismic Event Ingestion and Spatial Queries
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

import "github.com/goccy/go-json"

// PointGeometry is a GeoJSON Point. Coordinates are [longitude, latitude].
type PointGeometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// NewPoint builds a GeoJSON Point geometry from a lon/lat pair.
func NewPoint(lon, lat float64) PointGeometry {
	return PointGeometry{Type: "Point", Coordinates: []float64{lon, lat}}
}

// Feature is a GeoJSON Feature. Geometry is either a PointGeometry built
// from an event's coordinates or a json.RawMessage carrying a geometry the
// store already rendered as GeoJSON text (buffer polygons).
type Feature struct {
	Type       string         `json:"type"`
	Geometry   any            `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// FeatureCollection is the standard GeoJSON container returned by every
// spatial query endpoint.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// NewFeatureCollection returns an empty feature collection. Features is
// always non-nil so the collection marshals as [] rather than null.
func NewFeatureCollection() *FeatureCollection {
	return &FeatureCollection{Type: "FeatureCollection", Features: []Feature{}}
}

// RawGeometry validates that s is parseable JSON and returns it as a raw
// geometry value for embedding in a Feature. Returns false when s is not
// valid JSON.
func RawGeometry(s string) (json.RawMessage, bool) {
	raw := json.RawMessage(s)
	if !json.Valid(raw) {
		return nil, false
	}
	return raw, true
}
