// QuakeMap - Real-Time Seismic Event Ingestion and Spatial Queries
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ingest consumes the upstream seismic event feed: it maintains
// the websocket session, normalizes raw feed frames into events, and
// guards against duplicate delivery before persistence.
package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/quakemap/quakemap/internal/models"
)

// feedMessage mirrors the upstream frame shape. Numeric and coordinate
// fields are pointers so absent values are distinguishable from zero.
type feedMessage struct {
	Action string `json:"action"`
	Data   struct {
		Properties struct {
			Time        string   `json:"time"`
			Mag         *float64 `json:"mag"`
			FlynnRegion string   `json:"flynn_region"`
			Unid        string   `json:"unid"`
			Depth       *float64 `json:"depth"`
		} `json:"properties"`
		Geometry struct {
			Coordinates []*float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"data"`
}

// feedTimeLayouts are the timestamp shapes the upstream feed has been
// observed to emit. Parsed times are re-rendered in the canonical layout;
// an unparseable time passes through unchanged rather than dropping the
// event.
var feedTimeLayouts = []string{
	models.TimeLayout,
	"2006-01-02T15:04:05.999999Z07:00",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

// Normalize parses one raw feed frame into an event. It returns the event
// and the frame's action ("create" or "update"), or an error describing
// the first missing required field.
func Normalize(raw []byte) (*models.Event, string, error) {
	var msg feedMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, "", fmt.Errorf("malformed feed frame: %w", err)
	}

	props := msg.Data.Properties
	coords := msg.Data.Geometry.Coordinates

	if props.Unid == "" {
		return nil, msg.Action, fmt.Errorf("feed frame missing unid")
	}
	if props.Mag == nil {
		return nil, msg.Action, fmt.Errorf("feed frame missing magnitude")
	}
	if len(coords) < 2 || coords[0] == nil || coords[1] == nil {
		return nil, msg.Action, fmt.Errorf("feed frame missing coordinates")
	}
	if props.Time == "" {
		return nil, msg.Action, fmt.Errorf("feed frame missing time")
	}

	return &models.Event{
		ID:        props.Unid,
		Time:      CanonicalTime(props.Time),
		Longitude: *coords[0],
		Latitude:  *coords[1],
		Depth:     props.Depth,
		Magnitude: *props.Mag,
		Region:    strings.ReplaceAll(props.FlynnRegion, ",", " "),
	}, msg.Action, nil
}

// CanonicalTime re-renders a timestamp in the fixed-width canonical layout
// so string comparison orders chronologically. Unparseable input is
// returned as-is.
func CanonicalTime(s string) string {
	for _, layout := range feedTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return models.FormatTime(t.UTC())
		}
	}
	return s
}
