// QuakeMap - Real-Time Seismic Event Ingestion and Spatial Queries
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package models defines the data structures shared across QuakeMap:
// the persisted seismic event record, GeoJSON interchange types, cluster
// aggregation results, and the HTTP API response envelope.
package models

import "time"

// TimeLayout is the canonical event timestamp format: fixed-width UTC
// ISO-8601 with microsecond precision and a Z suffix. Because the format is
// zero-padded, stored timestamp strings compare correctly under ordinary
// lexical ordering; range filters and sort order rely on this.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// Event is one seismic occurrence as delivered by the upstream feed and
// persisted in the earthquakes table. ID is the upstream unique identity
// (unid); a record is written exactly once and never updated.
type Event struct {
	ID        string   `json:"unid"`
	Time      string   `json:"time"`
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Depth     *float64 `json:"depth,omitempty"`
	Magnitude float64  `json:"magnitude"`
	Region    string   `json:"region"`
}

// FormatTime renders t in the canonical event timestamp format.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// CutoffTime returns the canonical timestamp string for now minus the given
// number of hours. Events with time strictly after the cutoff are "recent".
func CutoffTime(now time.Time, hours int) string {
	return FormatTime(now.Add(-time.Duration(hours) * time.Hour))
}
