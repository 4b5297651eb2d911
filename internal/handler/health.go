// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"net/http"
	"runtime"
	"time"

	"github.com/olegiv/venue-finder/internal/cache"
	"github.com/olegiv/venue-finder/internal/geoip"
	"github.com/olegiv/venue-finder/internal/middleware"
	"github.com/olegiv/venue-finder/internal/version"
)

// Health check status values.
const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// HealthHandler serves liveness, readiness and detailed health checks.
type HealthHandler struct {
	db        *sql.DB
	cache     cache.Cacher
	locator   *geoip.Locator
	version   *version.Info
	startTime time.Time
}

// NewHealthHandler creates a new HealthHandler. cache and locator may be nil.
func NewHealthHandler(db *sql.DB, c cache.Cacher, locator *geoip.Locator, info *version.Info) *HealthHandler {
	return &HealthHandler{
		db:        db,
		cache:     c,
		locator:   locator,
		version:   info,
		startTime: time.Now(),
	}
}

// HealthStatus is the detailed health response.
type HealthStatus struct {
	Status  string           `json:"status"`
	Version string           `json:"version,omitempty"`
	Uptime  string           `json:"uptime,omitempty"`
	Checks  map[string]Check `json:"checks,omitempty"`
	System  *SystemInfo      `json:"system,omitempty"`
}

// Check is the result of a single dependency check.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// SystemInfo holds runtime metrics shown to admins.
type SystemInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"goroutines"`
	NumCPU       int    `json:"cpus"`
	MemAllocMB   uint64 `json:"mem_alloc_mb"`
}

// Health handles GET /health. Anonymous callers get only the overall status;
// admins also get per-dependency checks and runtime information.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]Check{
		"database": h.checkDatabase(r.Context()),
	}
	if h.cache != nil {
		checks["cache"] = h.checkCache(r.Context())
	}
	checks["geoip"] = h.checkGeoIP()

	overall := statusHealthy
	for name, c := range checks {
		switch {
		case c.Status == statusUnhealthy && name == "database":
			overall = statusUnhealthy
		case c.Status != statusHealthy && overall == statusHealthy:
			overall = statusDegraded
		}
	}

	status := http.StatusOK
	if overall == statusUnhealthy {
		status = http.StatusServiceUnavailable
	}

	if !middleware.GetPrincipal(r).IsAdmin() {
		writeJSON(w, status, HealthStatus{Status: overall})
		return
	}

	resp := HealthStatus{
		Status: overall,
		Uptime: time.Since(h.startTime).Round(time.Second).String(),
		Checks: checks,
		System: systemInfo(),
	}
	if h.version != nil {
		resp.Version = h.version.String()
	}
	writeJSON(w, status, resp)
}

// Liveness handles GET /health/live. It only reports that the process runs.
func (h *HealthHandler) Liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// Readiness handles GET /health/ready. The service is ready when the
// database answers.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	dbCheck := h.checkDatabase(r.Context())
	if dbCheck.Status != statusHealthy {
		resp := map[string]string{"status": "not_ready"}
		if middleware.GetPrincipal(r).IsAdmin() {
			resp["message"] = dbCheck.Message
		}
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *HealthHandler) checkDatabase(ctx context.Context) Check {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.db.PingContext(ctx)
	latency := time.Since(start)

	if err != nil {
		return Check{Status: statusUnhealthy, Message: err.Error(), Latency: latency.String()}
	}
	return Check{Status: statusHealthy, Message: "Connected", Latency: latency.String()}
}

func (h *HealthHandler) checkCache(ctx context.Context) Check {
	rc, ok := h.cache.(*cache.RedisCache)
	if !ok {
		return Check{Status: statusHealthy, Message: "In-memory cache"}
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	if err := rc.Ping(ctx); err != nil {
		return Check{Status: statusDegraded, Message: err.Error(), Latency: time.Since(start).String()}
	}
	return Check{Status: statusHealthy, Message: "Redis connected", Latency: time.Since(start).String()}
}

func (h *HealthHandler) checkGeoIP() Check {
	if h.locator == nil || !h.locator.Enabled() {
		return Check{Status: statusHealthy, Message: "Disabled"}
	}
	return Check{Status: statusHealthy, Message: "Loaded"}
}

func systemInfo() *SystemInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return &SystemInfo{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAllocMB:   m.Alloc / 1024 / 1024,
	}
}
