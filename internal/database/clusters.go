// QuakeMap - Real-Time Seismic Event Ingestion and Spatial Queries
// SPDX-License-Identifier: AGPL-3.0-or-later

package database

import (
	"context"
	"fmt"

	"github.com/quakemap/quakemap/internal/logging"
	"github.com/quakemap/quakemap/internal/models"
)

// degreesPerKm approximates one kilometer as 1/111 of a degree. The grid
// deliberately ignores latitude-dependent longitude contraction; the
// approximation is fine at city-to-regional scale and degrades near the
// poles or with very large cells.
const degreesPerKm = 1.0 / 111.0

// ClusterCells buckets every event newer than the cutoff into a lon/lat
// grid of cellKm-sized cells. Cell assignment is a pure function of
// floor(lon/step), floor(lat/step), so a fixed input set always produces
// identical buckets. Each cell reports count, average magnitude, time span,
// and the centroid of its member coordinates.
func (db *DB) ClusterCells(ctx context.Context, cellKm float64, cutoff string) ([]models.ClusterCell, error) {
	if cellKm <= 0 {
		return nil, fmt.Errorf("cell size must be positive, got %v", cellKm)
	}
	step := cellKm * degreesPerKm

	stmt := `
		WITH bucketed AS (
			SELECT
				FLOOR(longitude / ?) AS lon_bin,
				FLOOR(latitude / ?) AS lat_bin,
				longitude,
				latitude,
				magnitude,
				time
			FROM earthquakes
			WHERE time > ? AND longitude IS NOT NULL AND latitude IS NOT NULL
		)
		SELECT
			CAST(lon_bin AS BIGINT) AS lon_bin,
			CAST(lat_bin AS BIGINT) AS lat_bin,
			COUNT(*) AS count,
			AVG(magnitude) AS avg_magnitude,
			MIN(time) AS min_time,
			MAX(time) AS max_time,
			AVG(longitude) AS center_lon,
			AVG(latitude) AS center_lat
		FROM bucketed
		GROUP BY lon_bin, lat_bin
		ORDER BY count DESC, lon_bin, lat_bin`

	db.mu.Lock()
	defer db.mu.Unlock()

	rows, err := db.conn.QueryContext(ctx, stmt, step, step, cutoff)
	if err != nil {
		return nil, fmt.Errorf("cluster query failed: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			logging.Warn().Err(cerr).Msg("failed to close rows")
		}
	}()

	var cells []models.ClusterCell
	for rows.Next() {
		var c models.ClusterCell
		if err := rows.Scan(&c.LonBin, &c.LatBin, &c.Count, &c.AvgMagnitude,
			&c.MinTime, &c.MaxTime, &c.CenterLon, &c.CenterLat); err != nil {
			return nil, fmt.Errorf("failed to scan cluster cell: %w", err)
		}
		cells = append(cells, c)
	}
	return cells, rows.Err()
}
