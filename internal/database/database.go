// QuakeMap - Real-Time Seismic Event Ingestion and Spatial Queries
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package database is the persistence gateway to the DuckDB backing store.
//
// The process owns exactly one writable connection (the pool is capped at a
// single open connection) and every operation, read or write, serializes
// through an explicit mutex with a clearly scoped critical section. Event
// volume is low enough that trading read parallelism for this simplicity is
// the right call.
//
// Geometry derivation is owned here: inserts compute the point geometry from
// (longitude, latitude) in the same statement, so the geom column can never
// diverge from the coordinate columns.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/quakemap/quakemap/internal/config"
	"github.com/quakemap/quakemap/internal/logging"
)

// DB wraps the DuckDB connection and provides event data access.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig

	// mu serializes all access to the single connection. Acquire for the
	// duration of one statement; release on every exit path.
	mu sync.Mutex

	spatialAvailable bool
}

// New opens the database, loads the spatial extension, and initializes the
// schema. The returned DB is ready for inserts and queries.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	dsn := cfg.Path
	if dsn == ":memory:" {
		dsn = ""
	}
	if dsn != "" {
		// Ensure parent directory exists for the database file.
		if dbDir := filepath.Dir(dsn); dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
			}
		}
		// Disable auto-install/auto-load so restricted-network environments
		// cannot hang; the spatial extension is loaded explicitly below.
		dsn = fmt.Sprintf("%s?access_mode=read_write&autoinstall_known_extensions=false&autoload_known_extensions=false", dsn)
	}

	conn, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writable connection for the whole process.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	db := &DB{conn: conn, cfg: cfg}

	if err := db.initialize(numThreads); err != nil {
		if cerr := conn.Close(); cerr != nil {
			logging.Warn().Err(cerr).Msg("failed to close database after init error")
		}
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return db, nil
}

// initialize applies settings, loads the spatial extension, and creates the
// schema. Called once from New with exclusive access to the connection.
func (db *DB) initialize(numThreads int) error {
	settings := []string{
		fmt.Sprintf("SET threads=%d", numThreads),
	}
	if db.cfg.MaxMemory != "" {
		settings = append(settings, fmt.Sprintf("SET memory_limit='%s'", db.cfg.MaxMemory))
	}
	for _, stmt := range settings {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply setting %q: %w", stmt, err)
		}
	}

	db.loadSpatialExtension()

	return db.createSchema()
}

// loadSpatialExtension installs and loads the DuckDB spatial extension.
// INSTALL is best-effort (it fails when the extension is already present or
// the network is unavailable); LOAD decides availability. Without spatial
// the store still accepts events, but spatial predicates are disabled.
func (db *DB) loadSpatialExtension() {
	if _, err := db.conn.Exec("INSTALL spatial"); err != nil {
		logging.Debug().Err(err).Msg("spatial extension install skipped")
	}
	if _, err := db.conn.Exec("LOAD spatial"); err != nil {
		logging.Warn().Err(err).Msg("spatial extension unavailable; spatial queries disabled")
		db.spatialAvailable = false
		return
	}
	db.spatialAvailable = true
}

// createSchema creates the earthquakes table and its indexes (idempotent).
func (db *DB) createSchema() error {
	var create string
	if db.spatialAvailable {
		create = `
			CREATE TABLE IF NOT EXISTS earthquakes (
				unid VARCHAR PRIMARY KEY,
				time VARCHAR NOT NULL,
				latitude DOUBLE,
				longitude DOUBLE,
				depth DOUBLE,
				magnitude DOUBLE,
				region VARCHAR,
				geom GEOMETRY,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)`
	} else {
		create = `
			CREATE TABLE IF NOT EXISTS earthquakes (
				unid VARCHAR PRIMARY KEY,
				time VARCHAR NOT NULL,
				latitude DOUBLE,
				longitude DOUBLE,
				depth DOUBLE,
				magnitude DOUBLE,
				region VARCHAR,
				created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)`
	}
	if _, err := db.conn.Exec(create); err != nil {
		return fmt.Errorf("failed to create earthquakes table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_earthquakes_time ON earthquakes(time)`,
		`CREATE INDEX IF NOT EXISTS idx_earthquakes_magnitude ON earthquakes(magnitude)`,
	}
	for _, stmt := range indexes {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	if db.spatialAvailable {
		// A database file created while spatial was unavailable has no geom
		// column; CREATE TABLE IF NOT EXISTS above leaves such a table
		// untouched. Add the column best-effort (fails harmlessly when it
		// already exists) so the backfill below can repair the file.
		if _, err := db.conn.Exec(`ALTER TABLE earthquakes ADD COLUMN geom GEOMETRY`); err != nil {
			logging.Debug().Err(err).Msg("geom column already present")
		}

		// Backfill geometry for rows imported before spatial was available.
		backfill := `
			UPDATE earthquakes
			SET geom = ST_Point(longitude, latitude)
			WHERE geom IS NULL AND longitude IS NOT NULL AND latitude IS NOT NULL`
		if _, err := db.conn.Exec(backfill); err != nil {
			return fmt.Errorf("failed to backfill geometry: %w", err)
		}

		// R-tree index for radius/bbox/overlay predicates. Best-effort: not
		// every DuckDB build supports RTREE indexes.
		if _, err := db.conn.Exec(`CREATE INDEX idx_earthquakes_geom ON earthquakes USING RTREE (geom)`); err != nil {
			logging.Debug().Err(err).Msg("rtree index not created")
		}
	}

	return nil
}

// IsSpatialAvailable reports whether the spatial extension is loaded.
func (db *DB) IsSpatialAvailable() bool {
	return db.spatialAvailable
}

// Ping verifies the connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.PingContext(ctx)
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}
