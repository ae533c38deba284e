// QuakeMap - Real-Time Seismic Event Ingestion and Spatial Queries
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package service composes database queries into the read operations the
// API exposes. Query failures degrade to empty results: the surface stays
// up and responsive even when an individual query cannot be served.
package service

import (
	"context"
	"time"

	"github.com/quakemap/quakemap/internal/database"
	"github.com/quakemap/quakemap/internal/database/query"
	"github.com/quakemap/quakemap/internal/logging"
	"github.com/quakemap/quakemap/internal/metrics"
	"github.com/quakemap/quakemap/internal/models"
)

// RadiusFilter narrows results to a great-circle distance around a point.
type RadiusFilter struct {
	Lon, Lat, Km float64
}

// BboxFilter narrows results to a lon/lat bounding box.
type BboxFilter struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

// Service is the read-side facade over the event store.
type Service struct {
	db *database.DB
}

// New creates a service over the given store.
func New(db *database.DB) *Service {
	return &Service{db: db}
}

// SpatialAvailable reports whether spatial operations can be served.
func (s *Service) SpatialAvailable() bool {
	return s.db.IsSpatialAvailable()
}

// Recent returns events from the last N hours as flat records, newest
// first.
func (s *Service) Recent(ctx context.Context, hours int) []map[string]any {
	return s.selectRecords(ctx, "recent", query.New().Since(hours))
}

// Events returns events from the last N hours as a GeoJSON feature
// collection, optionally narrowed by a radius or bounding box filter.
func (s *Service) Events(ctx context.Context, hours int, radius *RadiusFilter, bbox *BboxFilter) *models.FeatureCollection {
	b := query.New().Since(hours)
	if radius != nil {
		b = b.WithinRadius(radius.Lon, radius.Lat, radius.Km)
	}
	if bbox != nil {
		b = b.InBbox(bbox.MinLon, bbox.MinLat, bbox.MaxLon, bbox.MaxLat)
	}
	records := s.selectRecords(ctx, "events", b)
	return database.ToFeatureCollection(records, "")
}

// Nearby returns events within the given radius of a point.
func (s *Service) Nearby(ctx context.Context, lon, lat, km float64, hours int) *models.FeatureCollection {
	records := s.selectRecords(ctx, "nearby", query.New().Since(hours).WithinRadius(lon, lat, km))
	return database.ToFeatureCollection(records, "")
}

// Overlay returns events intersecting an arbitrary geometry, given as WKT
// or GeoJSON text.
func (s *Service) Overlay(ctx context.Context, geomText string, hours int) *models.FeatureCollection {
	records := s.selectRecords(ctx, "overlay", query.New().Since(hours).Intersects(geomText))
	return database.ToFeatureCollection(records, "")
}

// Nearest returns the events closest to a point as flat records ordered by
// ascending distance, each carrying a distance_m column.
func (s *Service) Nearest(ctx context.Context, lon, lat float64, limit, hours int) []map[string]any {
	return s.selectRecords(ctx, "nearest", query.New().Since(hours).NearestTo(lon, lat).Limit(limit))
}

// Buffered returns each event's surroundings as a polygon: the event point
// buffered by the given radius. The feature geometry is the buffer; the
// event's scalar columns ride along as properties.
func (s *Service) Buffered(ctx context.Context, radiusKm float64, hours int) *models.FeatureCollection {
	records := s.selectRecords(ctx, "buffered", query.New().Since(hours).Buffered(radiusKm))
	return database.ToFeatureCollection(records, "buffer_geojson")
}

// Clusters buckets recent events into a grid of cellKm-sized cells.
func (s *Service) Clusters(ctx context.Context, cellKm float64, hours int) []models.ClusterCell {
	start := time.Now()
	cutoff := models.CutoffTime(time.Now(), hours)
	cells, err := s.db.ClusterCells(ctx, cellKm, cutoff)
	metrics.RecordDBQuery("clusters", time.Since(start))
	if err != nil {
		logging.Error().Err(err).Float64("cell_km", cellKm).Msg("cluster query failed")
		return []models.ClusterCell{}
	}
	if cells == nil {
		cells = []models.ClusterCell{}
	}
	return cells
}

// TimeWindow returns events between two canonical timestamps, oldest
// first. Either bound may be empty for an open-ended window.
func (s *Service) TimeWindow(ctx context.Context, start, end string, limit int) []map[string]any {
	b := query.New().TimeRange(start, end).OrderBy("time ASC")
	if limit > 0 {
		b = b.Limit(limit)
	}
	return s.selectRecords(ctx, "timeline", b)
}

// Count returns the number of persisted events, or zero when the count
// cannot be read.
func (s *Service) Count(ctx context.Context) int64 {
	n, err := s.db.CountEvents(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("count query failed")
		return 0
	}
	return n
}

// Ping reports store liveness.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Service) selectRecords(ctx context.Context, operation string, b *query.Builder) []map[string]any {
	start := time.Now()
	records, err := s.db.Select(ctx, b)
	metrics.RecordDBQuery(operation, time.Since(start))
	if err != nil {
		logging.Error().Err(err).Str("operation", operation).Msg("query failed")
		return []map[string]any{}
	}
	if records == nil {
		records = []map[string]any{}
	}
	return records
}
