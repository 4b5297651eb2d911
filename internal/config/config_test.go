// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"
)

const testSecret = "Test-Secret-Key-32-Bytes-Long!!!"

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set %s: %v", key, err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	setEnv(t, "VF_SESSION_SECRET", testSecret)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DBDriver != DriverSQLite {
		t.Errorf("DBDriver = %q, want %q", cfg.DBDriver, DriverSQLite)
	}
	if cfg.DBPath != "./data/venues.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "./data/venues.db")
	}
	if cfg.ServerAddr() != "localhost:8080" {
		t.Errorf("ServerAddr() = %q, want %q", cfg.ServerAddr(), "localhost:8080")
	}
	if !cfg.IsDevelopment() {
		t.Error("expected development mode by default")
	}
	if cfg.MapCenterLat != -8.9094 || cfg.MapCenterLng != 33.4608 {
		t.Errorf("map center = (%v, %v), want (-8.9094, 33.4608)", cfg.MapCenterLat, cfg.MapCenterLng)
	}
	if cfg.MapZoom != 13 {
		t.Errorf("MapZoom = %d, want 13", cfg.MapZoom)
	}
	if cfg.CacheTTLDuration() != 5*time.Minute {
		t.Errorf("CacheTTLDuration() = %v, want 5m", cfg.CacheTTLDuration())
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("RequestTimeout = %v, want 30s", cfg.RequestTimeout)
	}
	if cfg.UseRedisCache() || cfg.GeoIPEnabled() {
		t.Error("redis and geoip should be disabled by default")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Clearenv()
	setEnv(t, "VF_SESSION_SECRET", testSecret)
	setEnv(t, "VF_DB_DRIVER", "mysql")
	setEnv(t, "VF_DB_DSN", "venues:secret@tcp(db:3306)/venues")
	setEnv(t, "VF_SERVER_PORT", "3000")
	setEnv(t, "VF_ENV", "production")
	setEnv(t, "VF_REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.IsSQLite() {
		t.Error("mysql driver reported as SQLite")
	}
	if cfg.DataSource() != "venues:secret@tcp(db:3306)/venues" {
		t.Errorf("DataSource() = %q", cfg.DataSource())
	}
	if cfg.ServerPort != 3000 {
		t.Errorf("ServerPort = %d, want 3000", cfg.ServerPort)
	}
	if cfg.IsDevelopment() {
		t.Error("expected production mode")
	}
	if !cfg.UseRedisCache() {
		t.Error("expected redis cache to be enabled")
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"missing secret", map[string]string{}, "VF_SESSION_SECRET"},
		{"short secret", map[string]string{"VF_SESSION_SECRET": "short"}, "at least 32 bytes"},
		{"weak secret", map[string]string{"VF_SESSION_SECRET": "change-me-to-32-byte-secret-key!"}, "known default"},
		{"bad driver", map[string]string{"VF_SESSION_SECRET": testSecret, "VF_DB_DRIVER": "postgres"}, "unsupported VF_DB_DRIVER"},
		{"mysql without dsn", map[string]string{"VF_SESSION_SECRET": testSecret, "VF_DB_DRIVER": "mysql"}, "VF_DB_DSN"},
		{"latitude out of range", map[string]string{"VF_SESSION_SECRET": testSecret, "VF_MAP_CENTER_LAT": "95"}, "VF_MAP_CENTER_LAT"},
		{"longitude out of range", map[string]string{"VF_SESSION_SECRET": testSecret, "VF_MAP_CENTER_LNG": "200"}, "VF_MAP_CENTER_LNG"},
		{"zoom out of range", map[string]string{"VF_SESSION_SECRET": testSecret, "VF_MAP_ZOOM": "25"}, "VF_MAP_ZOOM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.env {
				setEnv(t, k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := (Config{LogLevel: in}).SlogLevel(); got != want {
			t.Errorf("SlogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestHasMinimumEntropy(t *testing.T) {
	if hasMinimumEntropy("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa") {
		t.Error("single character class should fail")
	}
	if !hasMinimumEntropy(testSecret) {
		t.Error("mixed secret should pass")
	}
}
