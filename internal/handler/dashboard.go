// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/venue-finder/internal/render"
	"github.com/olegiv/venue-finder/internal/service"
	"github.com/olegiv/venue-finder/internal/session"
)

// DashboardData is the template data for the admin dashboard.
type DashboardData struct {
	Stats     service.VenueStats
	UserCount int64
}

// DashboardHandler serves the admin dashboard.
type DashboardHandler struct {
	venues         *service.VenueService
	users          *service.UserService
	renderer       *render.Renderer
	sessionManager *scs.SessionManager
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(venues *service.VenueService, users *service.UserService, renderer *render.Renderer, sm *scs.SessionManager) *DashboardHandler {
	return &DashboardHandler{
		venues:         venues,
		users:          users,
		renderer:       renderer,
		sessionManager: sm,
	}
}

// Dashboard handles GET /dashboard.
func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	var data DashboardData

	stats, err := h.venues.Stats(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to load venue stats", "error", err)
		session.PutFlash(r.Context(), h.sessionManager, msgLoadVenuesFailed, session.FlashError)
	} else {
		data.Stats = stats
	}

	if n, err := h.users.Count(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "failed to count users", "error", err)
	} else {
		data.UserCount = n
	}

	h.renderer.RenderPage(w, r, templateDashboard, render.TemplateData{
		Title: "Dashboard",
		Data:  data,
	})
}
