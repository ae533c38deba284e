// QuakeMap - Real-Time Seismic Event Ingestion and Spatial Queries
// SPDX-License-Identifier: AGPL-3.0-or-later

package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/quakemap/quakemap/internal/config"
	"github.com/quakemap/quakemap/internal/database/query"
	"github.com/quakemap/quakemap/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(&config.DatabaseConfig{Path: ":memory:", Threads: 1})
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close database: %v", err)
		}
	})
	return db
}

func testEvent(id string) *models.Event {
	depth := 10.0
	return &models.Event{
		ID:        id,
		Time:      "2024-01-01T00:00:00.000000Z",
		Latitude:  20.0,
		Longitude: 10.0,
		Depth:     &depth,
		Magnitude: 4.5,
		Region:    "TEST REGION",
	}
}

func TestInsertEventIdempotent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if !db.InsertEvent(ctx, testEvent("A1")) {
		t.Fatal("first insert should succeed")
	}
	// Same identity with different field values: silent no-op, first write wins.
	second := testEvent("A1")
	second.Magnitude = 9.9
	if !db.InsertEvent(ctx, second) {
		t.Fatal("duplicate insert should still report success")
	}

	n, err := db.CountEvents(ctx)
	if err != nil {
		t.Fatalf("CountEvents failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected exactly one row after duplicate insert, got %d", n)
	}

	records, err := db.Select(ctx, query.New())
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	if mag, _ := records[0]["magnitude"].(float64); mag != 4.5 {
		t.Errorf("first write's magnitude must be retained, got %v", records[0]["magnitude"])
	}
}

func TestEventIDs(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	for _, id := range []string{"A1", "B2", "C3"} {
		ev := testEvent(id)
		if !db.InsertEvent(ctx, ev) {
			t.Fatalf("insert %s failed", id)
		}
	}

	ids, err := db.EventIDs(ctx)
	if err != nil {
		t.Fatalf("EventIDs failed: %v", err)
	}
	if len(ids) != 3 {
		t.Errorf("expected 3 identities, got %v", ids)
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}
	for _, want := range []string{"A1", "B2", "C3"} {
		if !seen[want] {
			t.Errorf("missing identity %q", want)
		}
	}
}

func TestTimeFilterCorrectness(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	old := testEvent("OLD")
	old.Time = "2020-01-01T00:00:00.000000Z"
	recent := testEvent("RECENT")
	recent.Time = "2024-06-01T12:00:00.000000Z"
	db.InsertEvent(ctx, old)
	db.InsertEvent(ctx, recent)

	records, err := db.Select(ctx, query.New().After("2024-01-01T00:00:00.000000Z"))
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one in-window record, got %d", len(records))
	}
	if records[0]["unid"] != "RECENT" {
		t.Errorf("expected RECENT, got %v", records[0]["unid"])
	}
}

func TestSelectOrderAndLimit(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	times := []string{
		"2024-01-01T00:00:00.000000Z",
		"2024-01-03T00:00:00.000000Z",
		"2024-01-02T00:00:00.000000Z",
	}
	for i, ts := range times {
		ev := testEvent(string(rune('A' + i)))
		ev.Time = ts
		db.InsertEvent(ctx, ev)
	}

	records, err := db.Select(ctx, query.New().Limit(2))
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(records))
	}
	if records[0]["time"] != "2024-01-03T00:00:00.000000Z" {
		t.Errorf("default order must be time descending, got %v first", records[0]["time"])
	}
}

func TestWithinRadiusBoundary(t *testing.T) {
	db := testDB(t)
	if !db.IsSpatialAvailable() {
		t.Skip("spatial extension not available")
	}
	ctx := context.Background()

	// Roughly 1 degree of longitude at the equator is 111.32 km.
	center := testEvent("CENTER")
	center.Longitude, center.Latitude = 0, 0
	near := testEvent("NEAR") // ~55 km east
	near.Longitude, near.Latitude = 0.5, 0
	far := testEvent("FAR") // ~222 km east
	far.Longitude, far.Latitude = 2.0, 0
	db.InsertEvent(ctx, center)
	db.InsertEvent(ctx, near)
	db.InsertEvent(ctx, far)

	records, err := db.Select(ctx, query.New().
		After("2020-01-01T00:00:00.000000Z").
		WithinRadius(0, 0, 100))
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected CENTER and NEAR within 100km, got %d records", len(records))
	}
	for _, rec := range records {
		if rec["unid"] == "FAR" {
			t.Error("event beyond the radius must be excluded")
		}
	}
}

func TestNearestOrdering(t *testing.T) {
	db := testDB(t)
	if !db.IsSpatialAvailable() {
		t.Skip("spatial extension not available")
	}
	ctx := context.Background()

	coords := map[string]float64{"NEAR": 0.1, "MID": 1.0, "FAR": 5.0}
	for id, lon := range coords {
		ev := testEvent(id)
		ev.Longitude, ev.Latitude = lon, 0
		db.InsertEvent(ctx, ev)
	}

	records, err := db.Select(ctx, query.New().
		After("2020-01-01T00:00:00.000000Z").
		NearestTo(0, 0).
		Limit(2))
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(records))
	}
	if records[0]["unid"] != "NEAR" || records[1]["unid"] != "MID" {
		t.Errorf("expected ascending distance order NEAR, MID; got %v, %v",
			records[0]["unid"], records[1]["unid"])
	}
	prev := -1.0
	for _, rec := range records {
		d, ok := rec["distance_m"].(float64)
		if !ok {
			t.Fatalf("expected distance_m projection, got %T", rec["distance_m"])
		}
		if d < prev {
			t.Error("distances must be ascending")
		}
		prev = d
	}
}

func TestClusterCellsDeterministic(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	// Two events in one cell, one in another.
	for i, lon := range []float64{10.01, 10.02, 50.0} {
		ev := testEvent(string(rune('A' + i)))
		ev.Longitude = lon
		ev.Magnitude = float64(i + 4)
		db.InsertEvent(ctx, ev)
	}

	first, err := db.ClusterCells(ctx, 50, "2020-01-01T00:00:00.000000Z")
	if err != nil {
		t.Fatalf("ClusterCells failed: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 cells, got %d", len(first))
	}
	if first[0].Count != 2 {
		t.Errorf("largest cell first: expected count 2, got %d", first[0].Count)
	}
	if first[0].AvgMagnitude != 4.5 {
		t.Errorf("expected avg magnitude 4.5, got %v", first[0].AvgMagnitude)
	}
	// Centroid of member coordinates, not the cell center.
	if got := first[0].CenterLon; got < 10.014 || got > 10.016 {
		t.Errorf("expected centroid lon ~10.015, got %v", got)
	}

	second, err := db.ClusterCells(ctx, 50, "2020-01-01T00:00:00.000000Z")
	if err != nil {
		t.Fatalf("ClusterCells rerun failed: %v", err)
	}
	if len(second) != len(first) {
		t.Fatal("rerun must produce identical buckets")
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("cell %d differs between runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestOpenLegacyTableWithoutGeomColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.duckdb")

	// Simulate a file written by a run where the spatial extension never
	// loaded: the table exists but has no geom column.
	raw, err := sql.Open("duckdb", path)
	if err != nil {
		t.Fatalf("failed to open raw connection: %v", err)
	}
	_, err = raw.Exec(`
		CREATE TABLE earthquakes (
			unid VARCHAR PRIMARY KEY,
			time VARCHAR NOT NULL,
			latitude DOUBLE,
			longitude DOUBLE,
			depth DOUBLE,
			magnitude DOUBLE,
			region VARCHAR,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		t.Fatalf("failed to create legacy table: %v", err)
	}
	if _, err := raw.Exec(
		`INSERT INTO earthquakes (unid, time, latitude, longitude, magnitude, region)
		 VALUES ('L1', '2024-01-01T00:00:00.000000Z', 20.0, 10.0, 4.5, 'LEGACY')`); err != nil {
		t.Fatalf("failed to insert legacy row: %v", err)
	}
	if err := raw.Close(); err != nil {
		t.Fatalf("failed to close raw connection: %v", err)
	}

	db, err := New(&config.DatabaseConfig{Path: path, Threads: 1})
	if err != nil {
		t.Fatalf("reopening a geom-less table must succeed: %v", err)
	}
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	n, err := db.CountEvents(ctx)
	if err != nil {
		t.Fatalf("CountEvents failed: %v", err)
	}
	if n != 1 {
		t.Errorf("legacy row must survive the upgrade, got %d rows", n)
	}

	if !db.InsertEvent(ctx, testEvent("L2")) {
		t.Error("inserts must work on the upgraded table")
	}

	if db.IsSpatialAvailable() {
		// The legacy row's geometry must have been derived by the backfill.
		records, err := db.Select(ctx, query.New().
			After("2020-01-01T00:00:00.000000Z").
			WithinRadius(10.0, 20.0, 50))
		if err != nil {
			t.Fatalf("radius query on upgraded table failed: %v", err)
		}
		found := false
		for _, rec := range records {
			if rec["unid"] == "L1" {
				found = true
			}
		}
		if !found {
			t.Error("backfilled legacy row must be visible to spatial queries")
		}
	}
}

func TestClusterCellsRejectsBadCellSize(t *testing.T) {
	db := testDB(t)
	if _, err := db.ClusterCells(context.Background(), 0, "2020-01-01T00:00:00.000000Z"); err == nil {
		t.Error("expected error for zero cell size")
	}
}
