// QuakeMap - Real-Time Seismic Event Ingestion and Spatial Queries
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package query builds parameterized SQL queries over the earthquakes table.
//
// The Builder accumulates tagged predicate clauses, each owning its own
// parameters. Projection expressions (nearest-neighbor distance, buffer
// polygons) keep their parameters separate from filter parameters, so the
// final compiled argument list is always projection args, then filter args
// in insertion order, then the limit. This keeps placeholder positions
// correct regardless of the order in which predicates were added relative
// to the projection.
package query

import (
	"strings"
	"time"
)

// Table is the event table name.
const Table = "earthquakes"

// DefaultOrder sorts newest events first.
const DefaultOrder = "time DESC"

// clause is one WHERE predicate with the parameters it owns.
type clause struct {
	sql  string
	args []any
}

// Builder accumulates a filtered, ordered, limited query over event records.
// The zero value is not usable; call New. Builders are not safe for
// concurrent use; build one per query.
type Builder struct {
	columns   []string
	projArgs  []any
	where     []clause
	order     string
	limit     int
	geomGuard bool
}

// New returns a Builder selecting all columns, ordered by time descending.
func New() *Builder {
	return &Builder{}
}

// Since filters to events newer than now minus the given number of hours.
func (b *Builder) Since(hours int) *Builder {
	return b.After(formatCutoff(time.Now(), hours))
}

// After filters to events with time strictly greater than the cutoff string.
// The cutoff must be in the canonical fixed-width timestamp format so the
// lexical comparison the store performs matches chronological order.
func (b *Builder) After(cutoff string) *Builder {
	b.where = append(b.where, clause{sql: "time > ?", args: []any{cutoff}})
	return b
}

// TimeRange filters to an explicit inclusive window. Empty bounds are
// skipped, allowing open-ended windows.
func (b *Builder) TimeRange(start, end string) *Builder {
	if start != "" {
		b.where = append(b.where, clause{sql: "time >= ?", args: []any{start}})
	}
	if end != "" {
		b.where = append(b.where, clause{sql: "time <= ?", args: []any{end}})
	}
	return b
}

// WithinRadius filters to events within radiusKm of the reference point,
// by geodesic distance.
func (b *Builder) WithinRadius(lon, lat, radiusKm float64) *Builder {
	b.ensureGeom()
	b.where = append(b.where, clause{
		sql:  "ST_DWithin(CAST(geom AS GEOGRAPHY), CAST(ST_Point(?, ?) AS GEOGRAPHY), ?)",
		args: []any{lon, lat, radiusKm * 1000},
	})
	return b
}

// InBbox filters to events intersecting the lon/lat bounding box.
func (b *Builder) InBbox(minLon, minLat, maxLon, maxLat float64) *Builder {
	b.ensureGeom()
	b.where = append(b.where, clause{
		sql:  "ST_Intersects(geom, ST_MakeEnvelope(?, ?, ?, ?))",
		args: []any{minLon, minLat, maxLon, maxLat},
	})
	return b
}

// Intersects filters to events intersecting an arbitrary geometry given as
// WKT or GeoJSON text. GeoJSON is detected by a leading "{".
func (b *Builder) Intersects(geomText string) *Builder {
	b.ensureGeom()
	geomExpr := "ST_GeomFromText(?)"
	if strings.HasPrefix(strings.TrimSpace(geomText), "{") {
		geomExpr = "ST_GeomFromGeoJSON(?)"
	}
	b.where = append(b.where, clause{
		sql:  "ST_Intersects(geom, " + geomExpr + ")",
		args: []any{geomText},
	})
	return b
}

// NearestTo projects the geodesic distance in meters to the reference point
// as distance_m and orders ascending by it. The two reference-point
// parameters belong to the projection and always compile ahead of any
// filter parameters.
func (b *Builder) NearestTo(lon, lat float64) *Builder {
	b.ensureGeom()
	b.columns = append(b.columns,
		"*",
		"ST_Distance_Sphere(geom, ST_Point(?, ?)) AS distance_m",
	)
	b.projArgs = append(b.projArgs, lon, lat)
	b.order = "distance_m ASC"
	return b
}

// Buffered projects a per-event buffer polygon of radiusKm around the
// geometry, rendered as GeoJSON text in the buffer_geojson column.
func (b *Builder) Buffered(radiusKm float64) *Builder {
	b.ensureGeom()
	b.columns = append(b.columns,
		"unid", "time", "latitude", "longitude", "depth", "magnitude", "region",
		"ST_AsGeoJSON(ST_Buffer(CAST(geom AS GEOGRAPHY), ?)::GEOMETRY) AS buffer_geojson",
	)
	b.projArgs = append(b.projArgs, radiusKm*1000)
	return b
}

// OrderBy overrides the ordering clause.
func (b *Builder) OrderBy(order string) *Builder {
	b.order = order
	return b
}

// Limit caps the number of rows. Zero or negative means no limit.
func (b *Builder) Limit(n int) *Builder {
	b.limit = n
	return b
}

// ensureGeom adds the geometry-presence guard exactly once. Every spatial
// predicate requires it so rows without derivable geometry are excluded
// rather than returned with null geometry.
func (b *Builder) ensureGeom() {
	if b.geomGuard {
		return
	}
	b.geomGuard = true
	b.where = append(b.where, clause{sql: "geom IS NOT NULL"})
}

// Build compiles the accumulated clauses into one parameterized SQL string
// and its ordered argument list.
func (b *Builder) Build() (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if len(b.columns) == 0 {
		sb.WriteString("*")
	} else {
		sb.WriteString(strings.Join(b.columns, ", "))
	}
	sb.WriteString(" FROM ")
	sb.WriteString(Table)

	args := make([]any, 0, len(b.projArgs)+len(b.where)+1)
	args = append(args, b.projArgs...)

	if len(b.where) > 0 {
		sb.WriteString(" WHERE ")
		parts := make([]string, len(b.where))
		for i, c := range b.where {
			parts[i] = c.sql
			args = append(args, c.args...)
		}
		sb.WriteString(strings.Join(parts, " AND "))
	}

	order := b.order
	if order == "" {
		order = DefaultOrder
	}
	sb.WriteString(" ORDER BY ")
	sb.WriteString(order)

	if b.limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, b.limit)
	}

	return sb.String(), args
}

// formatCutoff renders now minus hours in the canonical fixed-width
// timestamp format (UTC, microseconds, Z suffix).
func formatCutoff(now time.Time, hours int) string {
	return now.UTC().Add(-time.Duration(hours) * time.Hour).Format("2006-01-02T15:04:05.000000Z")
}
