// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"github.com/olegiv/venue-finder/internal/render"
	"github.com/olegiv/venue-finder/internal/service"
	"github.com/olegiv/venue-finder/internal/session"
)

// flashAndRedirect sets a flash message and redirects to the given URL.
// Uses http.StatusSeeOther (303) for POST/PUT/DELETE redirects.
func flashAndRedirect(w http.ResponseWriter, r *http.Request, sm *scs.SessionManager, url, message, messageType string) {
	session.PutFlash(r.Context(), sm, message, messageType)
	http.Redirect(w, r, url, http.StatusSeeOther)
}

// flashError sets an error flash message and redirects to the given URL.
func flashError(w http.ResponseWriter, r *http.Request, sm *scs.SessionManager, url, message string) {
	flashAndRedirect(w, r, sm, url, message, session.FlashError)
}

// flashSuccess sets a success flash message and redirects to the given URL.
func flashSuccess(w http.ResponseWriter, r *http.Request, sm *scs.SessionManager, url, message string) {
	flashAndRedirect(w, r, sm, url, message, session.FlashSuccess)
}

// parseFormOrRedirect parses the request form and redirects with an error message on failure.
// Returns true if parsing succeeded, false if it failed (and redirect was performed).
func parseFormOrRedirect(w http.ResponseWriter, r *http.Request, sm *scs.SessionManager, redirectURL string) bool {
	if err := r.ParseForm(); err != nil {
		flashError(w, r, sm, redirectURL, msgInvalidForm)
		return false
	}
	return true
}

// logAndHTTPError logs an error and writes an HTTP error response.
func logAndHTTPError(w http.ResponseWriter, r *http.Request, message string, statusCode int, logMsg string, args ...any) {
	slog.ErrorContext(r.Context(), logMsg, args...)
	http.Error(w, message, statusCode)
}

// logAndInternalError logs an error and writes a 500 Internal Server Error response.
func logAndInternalError(w http.ResponseWriter, r *http.Request, logMsg string, args ...any) {
	logAndHTTPError(w, r, "Internal Server Error", http.StatusInternalServerError, logMsg, args...)
}

// parseIDParam reads the {id} URL parameter as a positive int64.
func parseIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// renderNotFound writes the 404 page.
func renderNotFound(w http.ResponseWriter, r *http.Request, renderer *render.Renderer) {
	renderer.RenderStatus(w, r, http.StatusNotFound, templateNotFound, render.TemplateData{
		Title: "Page not found",
	})
}

// requireEntity fetches an entity by the {id} URL parameter.
// A malformed or unknown id renders the 404 page; other load errors set a
// flash message and redirect. Returns the entity and true if successful,
// or zero value and false if a response was already written.
func requireEntity[T any](
	w http.ResponseWriter,
	r *http.Request,
	renderer *render.Renderer,
	sm *scs.SessionManager,
	redirectURL string,
	entityName string,
	queryFn func(id int64) (T, error),
) (T, int64, bool) {
	var zero T
	id, err := parseIDParam(r)
	if err != nil {
		renderNotFound(w, r, renderer)
		return zero, 0, false
	}

	entity, err := queryFn(id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			renderNotFound(w, r, renderer)
		} else {
			slog.ErrorContext(r.Context(), "failed to get "+entityName, "error", err, entityName+"_id", id)
			flashError(w, r, sm, redirectURL, "Error loading "+entityName)
		}
		return zero, id, false
	}
	return entity, id, true
}

// mutationError turns a failed create/update/delete into a user-facing
// message of the form "Failed to <op> <entity>: <reason>".
func mutationError(op, entity string, err error) string {
	return "Failed to " + op + " " + entity + ": " + errorReason(err)
}

func errorReason(err error) string {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return "not found"
	case errors.Is(err, service.ErrAdminProtected):
		return service.ErrAdminProtected.Error()
	default:
		var vErr *service.ValidationError
		if errors.As(err, &vErr) {
			return vErr.Error()
		}
		return "internal error"
	}
}
