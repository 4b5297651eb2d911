// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads venue finder settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Supported database drivers.
const (
	DriverSQLite  = "sqlite"  // modernc.org/sqlite, pure Go
	DriverSQLite3 = "sqlite3" // github.com/mattn/go-sqlite3, cgo
	DriverMySQL   = "mysql"
)

// MinSessionSecretLength is the minimum required length for the session secret.
const MinSessionSecretLength = 32

var knownWeakSecrets = []string{
	"change-me-to-32-byte-secret-key!",
	"REPLACE_WITH_YOUR_OWN_SECRET_KEY!",
}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBDriver      string `env:"VF_DB_DRIVER" envDefault:"sqlite"`
	DBPath        string `env:"VF_DB_PATH" envDefault:"./data/venues.db"`
	DBDSN         string `env:"VF_DB_DSN"` // MySQL only, e.g. user:pass@tcp(host:3306)/venues
	SessionSecret string `env:"VF_SESSION_SECRET,required"`
	ServerHost    string `env:"VF_SERVER_HOST" envDefault:"localhost"`
	ServerPort    int    `env:"VF_SERVER_PORT" envDefault:"8080"`
	Env           string `env:"VF_ENV" envDefault:"development"`
	LogLevel      string `env:"VF_LOG_LEVEL" envDefault:"info"`
	LogFormat     string `env:"VF_LOG_FORMAT" envDefault:"text"`

	// Cache
	RedisURL    string `env:"VF_REDIS_URL"`
	CachePrefix string `env:"VF_CACHE_PREFIX" envDefault:"vf:"`
	CacheTTL    int    `env:"VF_CACHE_TTL" envDefault:"300"` // seconds

	// Path to a GeoLite2-City.mmdb file; empty disables approximate location.
	GeoIPDBPath string `env:"VF_GEOIP_DB_PATH"`

	// Map defaults (Mbeya University campus)
	MapCenterLat   float64 `env:"VF_MAP_CENTER_LAT" envDefault:"-8.9094"`
	MapCenterLng   float64 `env:"VF_MAP_CENTER_LNG" envDefault:"33.4608"`
	MapZoom        int     `env:"VF_MAP_ZOOM" envDefault:"13"`
	MapTileURL     string  `env:"VF_MAP_TILE_URL" envDefault:"https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"`
	MapAttribution string  `env:"VF_MAP_ATTRIBUTION" envDefault:"&copy; OpenStreetMap contributors"`
	SiteName       string  `env:"VF_SITE_NAME" envDefault:"MUST Venue Finder"`

	// Seeding
	DoSeed        bool   `env:"VF_DO_SEED" envDefault:"false"`
	AdminEmail    string `env:"VF_ADMIN_EMAIL" envDefault:"admin@example.com"`
	AdminPassword string `env:"VF_ADMIN_PASSWORD"`

	// Scheduler
	IndexRefresh string `env:"VF_INDEX_REFRESH" envDefault:"@every 10m"`
	GeoIPReload  string `env:"VF_GEOIP_RELOAD" envDefault:"@daily"`

	RequestTimeout time.Duration `env:"VF_REQUEST_TIMEOUT" envDefault:"30s"`
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// GeoIPEnabled returns true if a GeoIP database is configured.
func (c Config) GeoIPEnabled() bool {
	return c.GeoIPDBPath != ""
}

// IsSQLite reports whether the configured driver is one of the SQLite drivers.
func (c Config) IsSQLite() bool {
	return c.DBDriver == DriverSQLite || c.DBDriver == DriverSQLite3
}

// DataSource returns the connection string for the configured driver.
func (c Config) DataSource() string {
	if c.DBDriver == DriverMySQL {
		return c.DBDSN
	}
	return c.DBPath
}

// CacheTTLDuration returns CacheTTL as a time.Duration.
func (c Config) CacheTTLDuration() time.Duration {
	return time.Duration(c.CacheTTL) * time.Second
}

// SlogLevel maps LogLevel to a slog.Level. Unknown values fall back to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load parses environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if !hasMinimumEntropy(cfg.SessionSecret) {
		slog.Warn("VF_SESSION_SECRET has low character diversity; " +
			"consider generating a random secret with: openssl rand -base64 32")
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.SessionSecret) < MinSessionSecretLength {
		return fmt.Errorf("VF_SESSION_SECRET must be at least %d bytes long, got %d bytes; "+
			"generate a secure secret with: openssl rand -base64 32",
			MinSessionSecretLength, len(c.SessionSecret))
	}
	for _, weak := range knownWeakSecrets {
		if c.SessionSecret == weak {
			return errors.New("VF_SESSION_SECRET is a known default value and must not be used")
		}
	}

	switch c.DBDriver {
	case DriverSQLite, DriverSQLite3:
		if c.DBPath == "" {
			return errors.New("VF_DB_PATH is required for SQLite drivers")
		}
	case DriverMySQL:
		if c.DBDSN == "" {
			return errors.New("VF_DB_DSN is required when VF_DB_DRIVER=mysql")
		}
	default:
		return fmt.Errorf("unsupported VF_DB_DRIVER %q (want sqlite, sqlite3 or mysql)", c.DBDriver)
	}

	if c.MapCenterLat < -90 || c.MapCenterLat > 90 {
		return fmt.Errorf("VF_MAP_CENTER_LAT out of range: %v", c.MapCenterLat)
	}
	if c.MapCenterLng < -180 || c.MapCenterLng > 180 {
		return fmt.Errorf("VF_MAP_CENTER_LNG out of range: %v", c.MapCenterLng)
	}
	if c.MapZoom < 1 || c.MapZoom > 19 {
		return fmt.Errorf("VF_MAP_ZOOM must be between 1 and 19, got %d", c.MapZoom)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("VF_CACHE_TTL must not be negative, got %d", c.CacheTTL)
	}

	return nil
}

// hasMinimumEntropy checks that a secret contains at least 3 character classes.
func hasMinimumEntropy(s string) bool {
	charTypes := 0
	for _, class := range []string{
		"abcdefghijklmnopqrstuvwxyz",
		"ABCDEFGHIJKLMNOPQRSTUVWXYZ",
		"0123456789",
		"!@#$%^&*()-_=+[]{}|;:,.<>?/~`'\"\\",
	} {
		if strings.ContainsAny(s, class) {
			charTypes++
		}
	}
	return charTypes >= 3
}
