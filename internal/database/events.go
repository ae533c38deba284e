// QuakeMap - Real-Time Seismic Event Ingestion and Spatial Queries
// SPDX-License-Identifier: AGPL-3.0-or-later

package database

import (
	"context"
	"fmt"

	"github.com/quakemap/quakemap/internal/database/query"
	"github.com/quakemap/quakemap/internal/logging"
	"github.com/quakemap/quakemap/internal/models"
)

// InsertEvent persists one event. Inserts are idempotent: a conflict on the
// unid primary key is a silent no-op and still reports success. Any other
// failure is logged and reported as false; the caller does not retry, the
// upstream feed redelivery is the retry path.
func (db *DB) InsertEvent(ctx context.Context, ev *models.Event) bool {
	var stmt string
	var args []any

	if db.spatialAvailable {
		stmt = `
			INSERT INTO earthquakes (unid, time, latitude, longitude, depth, magnitude, region, geom)
			VALUES (?, ?, ?, ?, ?, ?, ?, ST_Point(?, ?))
			ON CONFLICT (unid) DO NOTHING`
		args = []any{ev.ID, ev.Time, ev.Latitude, ev.Longitude, ev.Depth, ev.Magnitude, ev.Region, ev.Longitude, ev.Latitude}
	} else {
		stmt = `
			INSERT INTO earthquakes (unid, time, latitude, longitude, depth, magnitude, region)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (unid) DO NOTHING`
		args = []any{ev.ID, ev.Time, ev.Latitude, ev.Longitude, ev.Depth, ev.Magnitude, ev.Region}
	}

	db.mu.Lock()
	_, err := db.conn.ExecContext(ctx, stmt, args...)
	db.mu.Unlock()

	if err != nil {
		logging.Error().Err(err).Str("unid", ev.ID).Msg("failed to insert event")
		return false
	}
	return true
}

// EventIDs returns every persisted event identity. The deduplication guard
// is seeded from this set before the ingestion session starts.
func (db *DB) EventIDs(ctx context.Context) ([]string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	rows, err := db.conn.QueryContext(ctx, "SELECT unid FROM earthquakes")
	if err != nil {
		return nil, fmt.Errorf("failed to query event identities: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			logging.Warn().Err(cerr).Msg("failed to close rows")
		}
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan event identity: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountEvents returns the number of persisted events.
func (db *DB) CountEvents(ctx context.Context) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var n int64
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM earthquakes").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return n, nil
}

// Select executes a compiled query builder and returns flat records with
// opaque geometry columns dropped.
func (db *DB) Select(ctx context.Context, b *query.Builder) ([]map[string]any, error) {
	stmt, args := b.Build()
	return db.queryRows(ctx, stmt, args...)
}
