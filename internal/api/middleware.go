// QuakeMap - Real-Time Seismic Event Ingestion and Spatial Queries
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/quakemap/quakemap/internal/logging"
	"github.com/quakemap/quakemap/internal/metrics"
)

// requestID attaches a generated X-Request-ID header to every response and
// logs the request with it.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		logging.Debug().
			Str("request_id", id).
			Str("method", r.Method).
			Str("path", sanitizeLogValue(r.URL.Path)).
			Msg("request received")

		next.ServeHTTP(w, r)
	})
}

// prometheusMetrics records per-request counters and latency.
func prometheusMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		metrics.RecordAPIRequest(r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}
