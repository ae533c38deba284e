// QuakeMap - Real-Time Seismic Event Ingestion and Spatial Queries
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import (
	"context"

	"github.com/quakemap/quakemap/internal/logging"
	"github.com/quakemap/quakemap/internal/metrics"
	"github.com/quakemap/quakemap/internal/models"
)

// EventStore is the persistence dependency of the pipeline.
type EventStore interface {
	InsertEvent(ctx context.Context, ev *models.Event) bool
}

// Pipeline turns raw feed frames into persisted events: normalize, filter
// duplicates, insert, then mark the identity as seen.
type Pipeline struct {
	store EventStore
	guard *Guard
}

// NewPipeline wires a pipeline to its store and duplicate guard.
func NewPipeline(store EventStore, guard *Guard) *Pipeline {
	return &Pipeline{store: store, guard: guard}
}

// Process handles one raw feed frame. A frame never fails the session:
// rejects, duplicates, and insert failures are counted and logged, and the
// session keeps reading.
func (p *Pipeline) Process(ctx context.Context, raw []byte) {
	metrics.FeedMessagesReceived.Inc()

	ev, action, err := Normalize(raw)
	if err != nil {
		metrics.FeedEventsProcessed.WithLabelValues("rejected").Inc()
		logging.Warn().Err(err).Str("action", action).Msg("rejected feed frame")
		return
	}

	if p.guard.Seen(ev.ID) {
		metrics.FeedEventsProcessed.WithLabelValues("duplicate").Inc()
		logging.Debug().Str("unid", ev.ID).Msg("duplicate event skipped")
		return
	}

	if !p.store.InsertEvent(ctx, ev) {
		metrics.FeedEventsProcessed.WithLabelValues("failed").Inc()
		return
	}

	p.guard.Mark(ev.ID)
	metrics.FeedEventsProcessed.WithLabelValues("inserted").Inc()
	logging.Info().
		Str("unid", ev.ID).
		Str("action", action).
		Float64("magnitude", ev.Magnitude).
		Str("region", ev.Region).
		Msg("event ingested")
}
