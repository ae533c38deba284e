// QuakeMap - Real-Time Seismic Event Ingestion and Spatial Queries
// SPDX-License-Identifier: AGPL-3.0-or-later

package csvimport

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/quakemap/quakemap/internal/models"
)

type fakeStore struct {
	events []*models.Event
}

func (f *fakeStore) InsertEvent(_ context.Context, ev *models.Event) bool {
	f.events = append(f.events, ev)
	return true
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.csv")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write CSV fixture: %v", err)
	}
	return path
}

func TestImportFile(t *testing.T) {
	path := writeCSV(t, `unid,time,latitude,longitude,depth,magnitude,region
Q1,2024-01-01T00:00:00.000000Z,36.5,25.25,10,4.2,"DODECANESE ISLANDS, GREECE"
Q2,2024-01-02T00:00:00.000000Z,-33.0,-70.5,,5.1,CHILE
`)

	store := &fakeStore{}
	n, err := ImportFile(context.Background(), store, path)
	if err != nil {
		t.Fatalf("ImportFile failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 inserted, got %d", n)
	}

	first := store.events[0]
	if first.ID != "Q1" || first.Latitude != 36.5 || first.Longitude != 25.25 {
		t.Errorf("unexpected first event %+v", first)
	}
	if first.Region != "DODECANESE ISLANDS  GREECE" {
		t.Errorf("commas must be replaced in region, got %q", first.Region)
	}
	if first.Depth == nil || *first.Depth != 10 {
		t.Errorf("unexpected depth %v", first.Depth)
	}

	if store.events[1].Depth != nil {
		t.Error("empty depth must stay nil")
	}
}

func TestImportFileCaseVariantHeaders(t *testing.T) {
	path := writeCSV(t, `ID,DateTime,Lat,Lng,Mag,Flynn_Region
Q1,2024-01-01T00:00:00Z,36.5,25.25,4.2,GREECE
`)

	store := &fakeStore{}
	n, err := ImportFile(context.Background(), store, path)
	if err != nil {
		t.Fatalf("ImportFile failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 inserted, got %d", n)
	}
	ev := store.events[0]
	if ev.ID != "Q1" || ev.Magnitude != 4.2 || ev.Region != "GREECE" {
		t.Errorf("aliased headers not mapped, got %+v", ev)
	}
	if ev.Time != "2024-01-01T00:00:00.000000Z" {
		t.Errorf("time must be canonicalized, got %q", ev.Time)
	}
}

func TestImportFileSkipsBadRows(t *testing.T) {
	path := writeCSV(t, `unid,time,latitude,longitude,magnitude
,2024-01-01T00:00:00.000000Z,1,1,3.0
Q1,2024-01-01T00:00:00.000000Z,not-a-number,1,3.0
Q2,2024-01-01T00:00:00.000000Z,1,1,3.0
`)

	store := &fakeStore{}
	n, err := ImportFile(context.Background(), store, path)
	if err != nil {
		t.Fatalf("ImportFile failed: %v", err)
	}
	if n != 1 {
		t.Errorf("only the well-formed row should be inserted, got %d", n)
	}
	if len(store.events) != 1 || store.events[0].ID != "Q2" {
		t.Errorf("unexpected inserted rows %v", store.events)
	}
}

func TestImportFileMissingIdentityColumn(t *testing.T) {
	path := writeCSV(t, "time,latitude,longitude,magnitude\n")
	if _, err := ImportFile(context.Background(), &fakeStore{}, path); err == nil {
		t.Error("header without an identity column must fail")
	}
}

func TestImportFileMissingFile(t *testing.T) {
	if _, err := ImportFile(context.Background(), &fakeStore{}, "/nonexistent/events.csv"); err == nil {
		t.Error("missing file must fail")
	}
}
