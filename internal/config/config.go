// QuakeMap - Real-Time Seismic Event Ingestion and Spatial Queries
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads QuakeMap configuration with Koanf v2 from three
// layered sources (highest priority wins): environment variables, an
// optional YAML config file, and built-in defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/quakemap/config.yaml",
	"/etc/quakemap/config.yml",
}

// ConfigPathEnvVar overrides the config file search path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Feed     FeedConfig     `koanf:"feed"`
	Import   ImportConfig   `koanf:"import"`
	Log      LogConfig      `koanf:"log"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimit       int           `koanf:"rate_limit"` // requests per minute per IP
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig configures the DuckDB backing store.
type DatabaseConfig struct {
	// Path is the database file path. Use ":memory:" for an in-memory store.
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// FeedConfig configures the upstream seismic websocket feed.
type FeedConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
	// PingInterval is how often the client pings the feed to keep the
	// connection alive.
	PingInterval time.Duration `koanf:"ping_interval"`
	// ReconnectDelay is the fixed delay between reconnect attempts.
	ReconnectDelay time.Duration `koanf:"reconnect_delay"`
	// RestartInterval forces a proactive close-and-reconnect of a healthy
	// connection, guarding against silent half-open sockets. Zero disables.
	RestartInterval time.Duration `koanf:"restart_interval"`
}

// ImportConfig configures the optional CSV bulk import at startup.
type ImportConfig struct {
	CSVPath string `koanf:"csv_path"`
}

// LogConfig configures logging output.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            5000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimit:       300,
		},
		Database: DatabaseConfig{
			Path:      "data/earthquakes.duckdb",
			MaxMemory: "2GB",
			Threads:   4,
		},
		Feed: FeedConfig{
			Enabled:         true,
			URL:             "wss://www.seismicportal.eu/standing_order/websocket",
			PingInterval:    15 * time.Second,
			ReconnectDelay:  5 * time.Second,
			RestartInterval: 30 * time.Minute,
		},
		Import: ImportConfig{
			CSVPath: "",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// envMappings translates environment variable names to koanf paths.
var envMappings = map[string]string{
	"server_host":             "server.host",
	"server_port":             "server.port",
	"server_read_timeout":     "server.read_timeout",
	"server_write_timeout":    "server.write_timeout",
	"server_shutdown_timeout": "server.shutdown_timeout",
	"server_rate_limit":       "server.rate_limit",
	"database_path":           "database.path",
	"database_max_memory":     "database.max_memory",
	"database_threads":        "database.threads",
	"feed_enabled":            "feed.enabled",
	"feed_url":                "feed.url",
	"feed_ping_interval":      "feed.ping_interval",
	"feed_reconnect_delay":    "feed.reconnect_delay",
	"feed_restart_interval":   "feed.restart_interval",
	"import_csv_path":         "import.csv_path",
	"log_level":               "log.level",
	"log_format":              "log.format",
	"log_caller":              "log.caller",
}

// envTransformFunc maps an environment variable name to its koanf path.
// Unmapped variables are dropped so unrelated environment noise cannot
// override configuration.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// Load reads configuration from defaults, an optional YAML file, and
// environment variables, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
