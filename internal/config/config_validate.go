// QuakeMap - Real-Time Seismic Event Ingestion and Spatial Queries
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration for values that would prevent startup.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.RateLimit < 1 {
		errs = append(errs, fmt.Sprintf("server.rate_limit must be positive, got %d", c.Server.RateLimit))
	}
	if c.Database.Path == "" {
		errs = append(errs, "database.path must not be empty")
	}
	if c.Database.Threads < 1 {
		errs = append(errs, fmt.Sprintf("database.threads must be positive, got %d", c.Database.Threads))
	}
	if c.Feed.Enabled {
		if !strings.HasPrefix(c.Feed.URL, "ws://") && !strings.HasPrefix(c.Feed.URL, "wss://") {
			errs = append(errs, fmt.Sprintf("feed.url must be a ws:// or wss:// URL, got %q", c.Feed.URL))
		}
		if c.Feed.PingInterval <= 0 {
			errs = append(errs, "feed.ping_interval must be positive")
		}
		if c.Feed.ReconnectDelay <= 0 {
			errs = append(errs, "feed.reconnect_delay must be positive")
		}
		if c.Feed.RestartInterval < 0 {
			errs = append(errs, "feed.restart_interval must not be negative")
		}
	}

	switch strings.ToLower(c.Log.Format) {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Sprintf("log.format must be json or console, got %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}
