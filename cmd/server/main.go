// QuakeMap - Real-Time Seismic Event Ingestion and Spatial Queries
// SPDX-License-Identifier: AGPL-3.0-or-later

// Command server runs the QuakeMap process: the seismic feed ingestion
// session and the HTTP query API, under one supervision tree.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/quakemap/quakemap/internal/api"
	"github.com/quakemap/quakemap/internal/config"
	"github.com/quakemap/quakemap/internal/csvimport"
	"github.com/quakemap/quakemap/internal/database"
	"github.com/quakemap/quakemap/internal/ingest"
	"github.com/quakemap/quakemap/internal/logging"
	"github.com/quakemap/quakemap/internal/metrics"
	"github.com/quakemap/quakemap/internal/service"
	"github.com/quakemap/quakemap/internal/supervisor"
	"github.com/quakemap/quakemap/internal/supervisor/services"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("server exited with error")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Init(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Caller: cfg.Log.Caller,
	})
	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Bool("feed_enabled", cfg.Feed.Enabled).
		Msg("starting quakemap")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logging.Error().Err(cerr).Msg("failed to close database")
		}
	}()
	logging.Info().
		Str("path", cfg.Database.Path).
		Bool("spatial", db.IsSpatialAvailable()).
		Msg("database ready")

	if cfg.Import.CSVPath != "" {
		n, err := csvimport.ImportFile(ctx, db, cfg.Import.CSVPath)
		if err != nil {
			return err
		}
		logging.Info().Int("imported", n).Msg("historical import finished")
	}

	if n, err := db.CountEvents(ctx); err == nil {
		metrics.DBEventsStored.Set(float64(n))
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})

	if cfg.Feed.Enabled {
		guard := ingest.NewGuard()
		ids, err := db.EventIDs(ctx)
		if err != nil {
			return err
		}
		guard.Load(ids)
		logging.Info().Int("known_events", guard.Len()).Msg("duplicate guard seeded")

		pipeline := ingest.NewPipeline(db, guard)
		tree.AddIngestService(ingest.NewSession(&cfg.Feed, pipeline))
	}

	svc := service.New(db)
	router := api.NewRouter(api.NewHandler(svc), &cfg.Server)
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	err = tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logging.Info().Msg("shutdown complete")
	return nil
}
