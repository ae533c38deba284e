// QuakeMap - Real-Time Seismic Event Ingestion and Spatial Queries
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics exposes Prometheus instrumentation for the feed
// pipeline and the API surface.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Feed pipeline metrics. The "outcome" label matches the pipeline's
	// disposition of each raw frame: inserted, duplicate, rejected, failed.
	FeedMessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_messages_received_total",
			Help: "Total number of raw messages received from the event feed",
		},
	)

	FeedEventsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_events_processed_total",
			Help: "Total number of feed events by processing outcome",
		},
		[]string{"outcome"},
	)

	FeedReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_reconnects_total",
			Help: "Total number of feed reconnection attempts",
		},
	)

	FeedForcedRestarts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_forced_restarts_total",
			Help: "Total number of scheduled feed session restarts",
		},
	)

	FeedConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "feed_connected",
			Help: "Whether the feed session is currently connected (1) or not (0)",
		},
	)

	// API metrics.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// Database metrics.
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	DBEventsStored = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "duckdb_events_stored",
			Help: "Number of events currently persisted",
		},
	)
)

// RecordAPIRequest records one completed API request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordDBQuery records the duration of one database operation.
func RecordDBQuery(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
