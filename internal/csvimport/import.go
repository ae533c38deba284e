// QuakeMap - Real-Time Seismic Event Ingestion and Spatial Queries
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package csvimport bulk-loads historical events from a CSV export.
package csvimport

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/quakemap/quakemap/internal/ingest"
	"github.com/quakemap/quakemap/internal/logging"
	"github.com/quakemap/quakemap/internal/models"
)

// columnAliases maps the header spellings seen in exports to canonical
// column names. Headers are matched case-insensitively.
var columnAliases = map[string]string{
	"unid":         "unid",
	"id":           "unid",
	"event_id":     "unid",
	"time":         "time",
	"datetime":     "time",
	"latitude":     "latitude",
	"lat":          "latitude",
	"longitude":    "longitude",
	"lon":          "longitude",
	"lng":          "longitude",
	"depth":        "depth",
	"depth_km":     "depth",
	"magnitude":    "magnitude",
	"mag":          "magnitude",
	"region":       "region",
	"flynn_region": "region",
}

// ImportFile loads events from a CSV file into the store and returns the
// number of rows inserted. Rows without an identity or with unparseable
// coordinates are skipped with a warning, never aborting the import.
func ImportFile(ctx context.Context, store ingest.EventStore, path string) (int, error) {
	f, err := os.Open(path) // #nosec G304 -- operator-supplied import path
	if err != nil {
		return 0, fmt.Errorf("failed to open import file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logging.Warn().Err(cerr).Msg("failed to close import file")
		}
	}()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return 0, fmt.Errorf("failed to read CSV header: %w", err)
	}
	cols := mapHeader(header)
	if _, ok := cols["unid"]; !ok {
		return 0, fmt.Errorf("CSV header has no identity column")
	}

	inserted := 0
	line := 1
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			logging.Warn().Err(err).Int("line", line).Msg("skipping malformed CSV row")
			continue
		}

		ev, ok := rowToEvent(cols, row)
		if !ok {
			logging.Warn().Int("line", line).Msg("skipping CSV row with missing fields")
			continue
		}
		if store.InsertEvent(ctx, ev) {
			inserted++
		}
	}

	logging.Info().Int("inserted", inserted).Str("path", path).Msg("CSV import complete")
	return inserted, nil
}

// mapHeader resolves each canonical column to its index in the header.
func mapHeader(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		canonical, ok := columnAliases[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			continue
		}
		if _, dup := cols[canonical]; !dup {
			cols[canonical] = i
		}
	}
	return cols
}

func rowToEvent(cols map[string]int, row []string) (*models.Event, bool) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	id := field("unid")
	if id == "" {
		return nil, false
	}

	lat, err := strconv.ParseFloat(field("latitude"), 64)
	if err != nil {
		return nil, false
	}
	lon, err := strconv.ParseFloat(field("longitude"), 64)
	if err != nil {
		return nil, false
	}
	mag, err := strconv.ParseFloat(field("magnitude"), 64)
	if err != nil {
		return nil, false
	}

	ev := &models.Event{
		ID:        id,
		Time:      ingest.CanonicalTime(field("time")),
		Latitude:  lat,
		Longitude: lon,
		Magnitude: mag,
		Region:    strings.ReplaceAll(field("region"), ",", " "),
	}
	if d, err := strconv.ParseFloat(field("depth"), 64); err == nil {
		ev.Depth = &d
	}
	return ev, true
}
