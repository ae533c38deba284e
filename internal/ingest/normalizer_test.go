// QuakeMap - Real-Time Seismic Event Ingestion and Spatial Queries
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import "testing"

const validFrame = `{
	"action": "create",
	"data": {
		"type": "Feature",
		"geometry": {"type": "Point", "coordinates": [25.25, 36.5, -10.0]},
		"properties": {
			"time": "2024-03-15T08:30:45.123456Z",
			"mag": 4.2,
			"flynn_region": "DODECANESE ISLANDS, GREECE",
			"unid": "20240315_0001",
			"depth": 10.0
		}
	}
}`

func TestNormalizeValidFrame(t *testing.T) {
	ev, action, err := Normalize([]byte(validFrame))
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if action != "create" {
		t.Errorf("expected action create, got %q", action)
	}
	if ev.ID != "20240315_0001" {
		t.Errorf("unexpected identity %q", ev.ID)
	}
	if ev.Longitude != 25.25 || ev.Latitude != 36.5 {
		t.Errorf("coordinates must be taken as [lon, lat], got %v, %v", ev.Longitude, ev.Latitude)
	}
	if ev.Magnitude != 4.2 {
		t.Errorf("unexpected magnitude %v", ev.Magnitude)
	}
	if ev.Depth == nil || *ev.Depth != 10.0 {
		t.Errorf("unexpected depth %v", ev.Depth)
	}
	if ev.Region != "DODECANESE ISLANDS  GREECE" {
		t.Errorf("commas must be replaced in region, got %q", ev.Region)
	}
	if ev.Time != "2024-03-15T08:30:45.123456Z" {
		t.Errorf("unexpected canonical time %q", ev.Time)
	}
}

func TestNormalizeRejections(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{"not json", `{{{`},
		{"missing unid", `{"action":"create","data":{"geometry":{"coordinates":[1,2]},"properties":{"time":"2024-01-01T00:00:00.000000Z","mag":3.0}}}`},
		{"missing magnitude", `{"action":"create","data":{"geometry":{"coordinates":[1,2]},"properties":{"time":"2024-01-01T00:00:00.000000Z","unid":"X"}}}`},
		{"missing coordinates", `{"action":"create","data":{"geometry":{},"properties":{"time":"2024-01-01T00:00:00.000000Z","mag":3.0,"unid":"X"}}}`},
		{"single coordinate", `{"action":"create","data":{"geometry":{"coordinates":[1]},"properties":{"time":"2024-01-01T00:00:00.000000Z","mag":3.0,"unid":"X"}}}`},
		{"null coordinate", `{"action":"create","data":{"geometry":{"coordinates":[1,null]},"properties":{"time":"2024-01-01T00:00:00.000000Z","mag":3.0,"unid":"X"}}}`},
		{"missing time", `{"action":"create","data":{"geometry":{"coordinates":[1,2]},"properties":{"mag":3.0,"unid":"X"}}}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := Normalize([]byte(tc.frame)); err == nil {
				t.Error("expected rejection")
			}
		})
	}
}

func TestNormalizeZeroMagnitudeAccepted(t *testing.T) {
	frame := `{"action":"create","data":{"geometry":{"coordinates":[0,0]},"properties":{"time":"2024-01-01T00:00:00.000000Z","mag":0,"unid":"Z0"}}}`
	ev, _, err := Normalize([]byte(frame))
	if err != nil {
		t.Fatalf("explicit zero magnitude must be accepted: %v", err)
	}
	if ev.Magnitude != 0 {
		t.Errorf("unexpected magnitude %v", ev.Magnitude)
	}
}

func TestCanonicalTime(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"2024-03-15T08:30:45.123456Z", "2024-03-15T08:30:45.123456Z"},
		{"2024-03-15T08:30:45.5Z", "2024-03-15T08:30:45.500000Z"},
		{"2024-03-15T08:30:45Z", "2024-03-15T08:30:45.000000Z"},
		{"2024-03-15T08:30:45", "2024-03-15T08:30:45.000000Z"},
		{"2024-03-15T10:30:45+02:00", "2024-03-15T08:30:45.000000Z"},
		{"not a time", "not a time"},
	}
	for _, tc := range tests {
		if got := CanonicalTime(tc.in); got != tc.want {
			t.Errorf("CanonicalTime(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
