// QuakeMap - Real-Time Seismic Event Ingestion and Spatial Queries
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import (
	"context"
	"time"

	"github.com/gorilla/websocket"

	"github.com/quakemap/quakemap/internal/config"
	"github.com/quakemap/quakemap/internal/logging"
	"github.com/quakemap/quakemap/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 512 * 1024 // 512 KB
)

// Session maintains the long-lived websocket subscription to the upstream
// feed. It is a supervised service: Serve connects, reads frames into the
// pipeline, and reconnects after a fixed delay whenever the connection
// drops. Long-lived sessions are additionally restarted on a schedule
// because upstream silently stops delivering on very old connections.
type Session struct {
	cfg      *config.FeedConfig
	pipeline *Pipeline
	dialer   *websocket.Dialer
}

// NewSession creates a feed session for the configured endpoint.
func NewSession(cfg *config.FeedConfig, pipeline *Pipeline) *Session {
	return &Session{
		cfg:      cfg,
		pipeline: pipeline,
		dialer:   websocket.DefaultDialer,
	}
}

// String identifies the service in supervisor logs.
func (s *Session) String() string {
	return "feed-session"
}

// Serve implements suture.Service. It blocks until ctx is canceled,
// reconnecting with a fixed delay between attempts. Every connection
// failure is a log line and a counter, never a fatal error: the feed being
// down must not take the query surface down with it.
func (s *Session) Serve(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := s.runOnce(ctx); err != nil {
			logging.Warn().Err(err).Str("url", s.cfg.URL).Msg("feed session ended")
		}

		metrics.FeedReconnects.Inc()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.ReconnectDelay):
		}
	}
}

// runOnce dials the feed and reads frames until the connection dies, the
// scheduled restart fires, or ctx is canceled.
func (s *Session) runOnce(ctx context.Context) error {
	conn, _, err := s.dialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		return err
	}
	logging.Info().Str("url", s.cfg.URL).Msg("feed connected")
	metrics.FeedConnected.Set(1)
	defer metrics.FeedConnected.Set(0)

	conn.SetReadLimit(maxMessageSize)
	readWait := 2 * s.cfg.PingInterval
	if err := conn.SetReadDeadline(time.Now().Add(readWait)); err != nil {
		_ = conn.Close()
		return err
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readWait))
	})

	// The control goroutine owns closing the connection: on ping failure,
	// scheduled restart, or ctx cancellation it closes conn, which unblocks
	// the read loop below.
	readDone := make(chan struct{})
	controlDone := make(chan struct{})
	go s.control(ctx, conn, readDone, controlDone)

	var readErr error
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				readErr = err
			}
			break
		}
		s.pipeline.Process(ctx, raw)
	}

	close(readDone)
	_ = conn.Close()
	<-controlDone
	return readErr
}

// control sends keepalive pings and enforces the scheduled restart. It
// returns once it has closed the connection or the read loop has died.
func (s *Session) control(ctx context.Context, conn *websocket.Conn, readDone <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer func() { _ = conn.Close() }()

	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	var restart <-chan time.Time
	if s.cfg.RestartInterval > 0 {
		timer := time.NewTimer(s.cfg.RestartInterval)
		defer timer.Stop()
		restart = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-readDone:
			return
		case <-restart:
			metrics.FeedForcedRestarts.Inc()
			logging.Info().Dur("after", s.cfg.RestartInterval).Msg("scheduled feed session restart")
			return
		case <-ticker.C:
			deadline := time.Now().Add(writeWait)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				logging.Warn().Err(err).Msg("feed ping failed")
				return
			}
		}
	}
}
