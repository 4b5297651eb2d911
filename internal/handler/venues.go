// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/venue-finder/internal/middleware"
	"github.com/olegiv/venue-finder/internal/render"
	"github.com/olegiv/venue-finder/internal/service"
	"github.com/olegiv/venue-finder/internal/session"
	"github.com/olegiv/venue-finder/internal/store"
)

// VenuesHandler handles venue management in the admin area.
type VenuesHandler struct {
	venues         *service.VenueService
	renderer       *render.Renderer
	sessionManager *scs.SessionManager
}

// NewVenuesHandler creates a new VenuesHandler.
func NewVenuesHandler(venues *service.VenueService, renderer *render.Renderer, sm *scs.SessionManager) *VenuesHandler {
	return &VenuesHandler{
		venues:         venues,
		renderer:       renderer,
		sessionManager: sm,
	}
}

// VenueFormData holds data for the venue create/edit form.
type VenueFormData struct {
	Venue  *store.Venue
	IsEdit bool
	Action string
}

// List handles GET /admin/venues.
func (h *VenuesHandler) List(w http.ResponseWriter, r *http.Request) {
	venues, err := h.venues.List(r.Context())
	if err != nil {
		session.PutFlash(r.Context(), h.sessionManager, msgLoadVenuesFailed, session.FlashError)
	}

	h.renderer.RenderPage(w, r, templateVenuesList, render.TemplateData{
		Title: "Venues",
		Data:  venues,
	})
}

// NewForm handles GET /admin/venues/create.
func (h *VenuesHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, VenueFormData{Action: redirectAdminVenues}, nil, nil)
}

// Create handles POST /admin/venues.
func (h *VenuesHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.sessionManager, redirectAdminVenuesCreate) {
		return
	}

	in := venueInputFromForm(r)
	venue, err := h.venues.Create(r.Context(), in)
	if err != nil {
		if fields := service.FieldErrors(err); fields != nil {
			h.renderForm(w, r, http.StatusUnprocessableEntity, VenueFormData{Action: redirectAdminVenues}, venueFormValues(in), fields)
			return
		}
		slog.ErrorContext(r.Context(), "failed to create venue", "error", err)
		flashError(w, r, h.sessionManager, redirectAdminVenuesCreate, mutationError("create", "venue", err))
		return
	}

	slog.InfoContext(r.Context(), "venue created", "venue_id", venue.ID, "created_by", principalID(r))
	flashSuccess(w, r, h.sessionManager, redirectAdminVenues, "Venue created successfully")
}

// EditForm handles GET /admin/venues/edit/{id}.
func (h *VenuesHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	venue, _, ok := requireEntity(w, r, h.renderer, h.sessionManager, redirectAdminVenues, "venue",
		func(id int64) (store.Venue, error) { return h.venues.Get(r.Context(), id) })
	if !ok {
		return
	}

	h.renderForm(w, r, http.StatusOK, VenueFormData{
		Venue:  &venue,
		IsEdit: true,
		Action: venueURL(venue.ID),
	}, venueFormValues(service.VenueInput{
		Name:        venue.Name,
		BlockName:   venue.Block(),
		Description: venue.Description,
		Latitude:    strconv.FormatFloat(venue.Latitude, 'f', -1, 64),
		Longitude:   strconv.FormatFloat(venue.Longitude, 'f', -1, 64),
	}), nil)
}

// Update handles PUT /admin/venues/{id} and POST /admin/venues/{id}.
func (h *VenuesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		renderNotFound(w, r, h.renderer)
		return
	}
	editURL := redirectAdminVenues + "/edit/" + strconv.FormatInt(id, 10)

	if !parseFormOrRedirect(w, r, h.sessionManager, editURL) {
		return
	}

	in := venueInputFromForm(r)
	if _, err := h.venues.Update(r.Context(), id, in); err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			renderNotFound(w, r, h.renderer)
		case service.FieldErrors(err) != nil:
			h.renderForm(w, r, http.StatusUnprocessableEntity, VenueFormData{
				Venue:  &store.Venue{ID: id},
				IsEdit: true,
				Action: venueURL(id),
			}, venueFormValues(in), service.FieldErrors(err))
		default:
			slog.ErrorContext(r.Context(), "failed to update venue", "error", err, "venue_id", id)
			flashError(w, r, h.sessionManager, editURL, mutationError("update", "venue", err))
		}
		return
	}

	slog.InfoContext(r.Context(), "venue updated", "venue_id", id, "updated_by", principalID(r))
	flashSuccess(w, r, h.sessionManager, redirectAdminVenues, "Venue updated successfully")
}

// Delete handles DELETE /admin/venues/{id} and POST /admin/venues/{id}/delete.
func (h *VenuesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		renderNotFound(w, r, h.renderer)
		return
	}

	if err := h.venues.Delete(r.Context(), id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			renderNotFound(w, r, h.renderer)
			return
		}
		slog.ErrorContext(r.Context(), "failed to delete venue", "error", err, "venue_id", id)
		flashError(w, r, h.sessionManager, redirectAdminVenues, mutationError("delete", "venue", err))
		return
	}

	slog.InfoContext(r.Context(), "venue deleted", "venue_id", id, "deleted_by", principalID(r))
	flashSuccess(w, r, h.sessionManager, redirectAdminVenues, "Venue deleted successfully")
}

func (h *VenuesHandler) renderForm(w http.ResponseWriter, r *http.Request, status int, data VenueFormData, values, errs map[string]string) {
	title := "New venue"
	if data.IsEdit {
		title = "Edit venue"
	}
	h.renderer.RenderStatus(w, r, status, templateVenuesForm, render.TemplateData{
		Title:      title,
		Data:       data,
		FormValues: values,
		Errors:     errs,
	})
}

func venueInputFromForm(r *http.Request) service.VenueInput {
	return service.VenueInput{
		Name:        r.FormValue("name"),
		BlockName:   r.FormValue("block_name"),
		Description: r.FormValue("description"),
		Latitude:    r.FormValue("latitude"),
		Longitude:   r.FormValue("longitude"),
	}
}

func venueFormValues(in service.VenueInput) map[string]string {
	return map[string]string{
		"name":        in.Name,
		"block_name":  in.BlockName,
		"description": in.Description,
		"latitude":    in.Latitude,
		"longitude":   in.Longitude,
	}
}

func venueURL(id int64) string {
	return redirectAdminVenues + "/" + strconv.FormatInt(id, 10)
}

func principalID(r *http.Request) int64 {
	if p := middleware.GetPrincipal(r); p != nil {
		return p.ID
	}
	return 0
}
