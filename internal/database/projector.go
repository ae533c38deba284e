// QuakeMap - Real-Time Seismic Event Ingestion and Spatial Queries
// SPDX-License-Identifier: AGPL-3.0-or-later

package database

import (
	"context"
	"fmt"

	"github.com/quakemap/quakemap/internal/logging"
	"github.com/quakemap/quakemap/internal/models"
)

// queryRows executes a parameterized query under the connection lock and
// scans every row into a generic column map. Binary values (the raw geometry
// column) are dropped because they are not transmissible as JSON; callers
// that need geometry project it explicitly (point coordinates or a GeoJSON
// text column).
func (db *DB) queryRows(ctx context.Context, stmt string, args ...any) ([]map[string]any, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rows, err := db.conn.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			logging.Warn().Err(cerr).Msg("failed to close rows")
		}
	}()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var out []map[string]any
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		record := make(map[string]any, len(cols))
		for i, col := range cols {
			if _, isBinary := values[i].([]byte); isBinary {
				continue
			}
			record[col] = values[i]
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

// ToFeatureCollection projects flat records into a GeoJSON feature
// collection. When geomColumn is empty, each feature's geometry is a Point
// rebuilt from the longitude/latitude columns; rows without both coordinates
// are skipped. When geomColumn names a column holding geometry already
// rendered as GeoJSON text (buffer polygons), the geometry is parsed from it
// and the column is removed from the properties.
func ToFeatureCollection(records []map[string]any, geomColumn string) *models.FeatureCollection {
	fc := models.NewFeatureCollection()
	for _, rec := range records {
		var geometry any

		if geomColumn != "" {
			text, ok := rec[geomColumn].(string)
			if !ok || text == "" {
				continue
			}
			raw, ok := models.RawGeometry(text)
			if !ok {
				logging.Warn().Str("column", geomColumn).Msg("skipping row with unparseable geometry text")
				continue
			}
			geometry = raw
		} else {
			lon, lonOK := asFloat(rec["longitude"])
			lat, latOK := asFloat(rec["latitude"])
			if !lonOK || !latOK {
				continue
			}
			geometry = models.NewPoint(lon, lat)
		}

		props := make(map[string]any, len(rec))
		for k, v := range rec {
			if k == geomColumn {
				continue
			}
			props[k] = v
		}

		fc.Features = append(fc.Features, models.Feature{
			Type:       "Feature",
			Geometry:   geometry,
			Properties: props,
		})
	}
	return fc
}

// asFloat coerces the numeric types the driver may hand back.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
