// QuakeMap - Real-Time Seismic Event Ingestion and Spatial Queries
// SPDX-License-Identifier: AGPL-3.0-or-later

package service

import (
	"context"
	"testing"

	"github.com/quakemap/quakemap/internal/config"
	"github.com/quakemap/quakemap/internal/database"
	"github.com/quakemap/quakemap/internal/models"
)

func testService(t *testing.T) *Service {
	t.Helper()
	db, err := database.New(&config.DatabaseConfig{Path: ":memory:", Threads: 1})
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return New(db)
}

func insertAt(t *testing.T, s *Service, id, ts string, lon, lat float64) {
	t.Helper()
	depth := 5.0
	ok := s.db.InsertEvent(context.Background(), &models.Event{
		ID:        id,
		Time:      ts,
		Longitude: lon,
		Latitude:  lat,
		Depth:     &depth,
		Magnitude: 4.0,
		Region:    "TEST",
	})
	if !ok {
		t.Fatalf("insert %s failed", id)
	}
}

func TestRecentReturnsEmptySliceNotNil(t *testing.T) {
	s := testService(t)
	records := s.Recent(context.Background(), 24)
	if records == nil {
		t.Fatal("empty result must be a non-nil slice")
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
}

func TestEventsFeatureCollection(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	insertAt(t, s, "A1", "2024-01-01T00:00:00.000000Z", 10, 20)

	// A very large window reaches back to 2024 regardless of wall time.
	fc := s.Events(ctx, 24*365*10, nil, nil)
	if fc.Type != "FeatureCollection" {
		t.Errorf("unexpected type %q", fc.Type)
	}
	if len(fc.Features) != 1 {
		t.Fatalf("expected one feature, got %d", len(fc.Features))
	}
	if fc.Features[0].Properties["unid"] != "A1" {
		t.Errorf("unexpected feature properties %v", fc.Features[0].Properties)
	}
}

func TestTimeWindowOrdering(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	insertAt(t, s, "LATE", "2024-01-03T00:00:00.000000Z", 1, 1)
	insertAt(t, s, "EARLY", "2024-01-01T00:00:00.000000Z", 1, 1)
	insertAt(t, s, "OUTSIDE", "2024-02-01T00:00:00.000000Z", 1, 1)

	records := s.TimeWindow(ctx, "2024-01-01T00:00:00.000000Z", "2024-01-31T23:59:59.999999Z", 0)
	if len(records) != 2 {
		t.Fatalf("expected two in-window records, got %d", len(records))
	}
	if records[0]["unid"] != "EARLY" || records[1]["unid"] != "LATE" {
		t.Errorf("window must be ordered oldest first, got %v, %v",
			records[0]["unid"], records[1]["unid"])
	}
}

func TestTimeWindowOpenEnded(t *testing.T) {
	s := testService(t)
	ctx := context.Background()

	insertAt(t, s, "A", "2024-01-01T00:00:00.000000Z", 1, 1)
	insertAt(t, s, "B", "2024-06-01T00:00:00.000000Z", 1, 1)

	records := s.TimeWindow(ctx, "2024-03-01T00:00:00.000000Z", "", 0)
	if len(records) != 1 || records[0]["unid"] != "B" {
		t.Errorf("open-ended window should return only B, got %v", records)
	}
}

func TestClustersEmptyStore(t *testing.T) {
	s := testService(t)
	cells := s.Clusters(context.Background(), 100, 24)
	if cells == nil {
		t.Fatal("empty result must be a non-nil slice")
	}
	if len(cells) != 0 {
		t.Errorf("expected no cells, got %d", len(cells))
	}
}

func TestClustersBadCellSizeDegrades(t *testing.T) {
	s := testService(t)
	cells := s.Clusters(context.Background(), -1, 24)
	if cells == nil || len(cells) != 0 {
		t.Errorf("invalid cell size must degrade to an empty result, got %v", cells)
	}
}

func TestCount(t *testing.T) {
	s := testService(t)
	ctx := context.Background()
	insertAt(t, s, "A1", "2024-01-01T00:00:00.000000Z", 1, 1)
	if n := s.Count(ctx); n != 1 {
		t.Errorf("expected count 1, got %d", n)
	}
}

func TestNearbyRequiresSpatial(t *testing.T) {
	s := testService(t)
	if !s.SpatialAvailable() {
		fc := s.Nearby(context.Background(), 0, 0, 100, 24)
		if fc == nil || fc.Features == nil {
			t.Fatal("spatial-unavailable result must still be a valid empty collection")
		}
		return
	}

	insertAt(t, s, "NEAR", "2024-01-01T00:00:00.000000Z", 0.1, 0)
	insertAt(t, s, "FAR", "2024-01-01T00:00:00.000000Z", 50, 0)
	fc := s.Nearby(context.Background(), 0, 0, 100, 24*365*10)
	if len(fc.Features) != 1 {
		t.Fatalf("expected one nearby feature, got %d", len(fc.Features))
	}
	if fc.Features[0].Properties["unid"] != "NEAR" {
		t.Errorf("unexpected nearby feature %v", fc.Features[0].Properties)
	}
}
