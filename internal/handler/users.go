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

// ValidRoles lists the roles offered in the user form.
var ValidRoles = []string{store.RoleUser, store.RoleAdmin}

// UsersHandler handles user management in the admin area.
type UsersHandler struct {
	users          *service.UserService
	renderer       *render.Renderer
	sessionManager *scs.SessionManager
}

// NewUsersHandler creates a new UsersHandler.
func NewUsersHandler(users *service.UserService, renderer *render.Renderer, sm *scs.SessionManager) *UsersHandler {
	return &UsersHandler{
		users:          users,
		renderer:       renderer,
		sessionManager: sm,
	}
}

// UserFormData holds data for the user create/edit form.
type UserFormData struct {
	User   *store.User
	Roles  []string
	IsEdit bool
	Action string
}

// List handles GET /admin/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list users", "error", err)
		session.PutFlash(r.Context(), h.sessionManager, msgLoadUsersFailed, session.FlashError)
	}

	h.renderer.RenderPage(w, r, templateUsersList, render.TemplateData{
		Title: "Users",
		Data:  users,
	})
}

// NewForm handles GET /admin/users/create.
func (h *UsersHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, http.StatusOK, UserFormData{Action: redirectAdminUsers},
		map[string]string{"role": store.RoleUser}, nil)
}

// Create handles POST /admin/users.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.sessionManager, redirectAdminUsersCreate) {
		return
	}

	in := userInputFromForm(r)
	user, err := h.users.Create(r.Context(), in)
	if err != nil {
		if fields := service.FieldErrors(err); fields != nil {
			h.renderForm(w, r, http.StatusUnprocessableEntity, UserFormData{Action: redirectAdminUsers}, userFormValues(in), fields)
			return
		}
		slog.ErrorContext(r.Context(), "failed to create user", "error", err)
		flashError(w, r, h.sessionManager, redirectAdminUsersCreate, mutationError("create", "user", err))
		return
	}

	slog.InfoContext(r.Context(), "user created", "user_id", user.ID, "email", user.Email, "created_by", principalID(r))
	flashSuccess(w, r, h.sessionManager, redirectAdminUsers, "User created successfully")
}

// EditForm handles GET /admin/users/edit/{id}.
func (h *UsersHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	user, _, ok := requireEntity(w, r, h.renderer, h.sessionManager, redirectAdminUsers, "user",
		func(id int64) (store.User, error) { return h.users.Get(r.Context(), id) })
	if !ok {
		return
	}

	h.renderForm(w, r, http.StatusOK, UserFormData{
		User:   &user,
		IsEdit: true,
		Action: userURL(user.ID),
	}, userFormValues(service.UserInput{
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	}), nil)
}

// Update handles PUT /admin/users/{id} and POST /admin/users/{id}.
// An empty password keeps the current one.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		renderNotFound(w, r, h.renderer)
		return
	}
	editURL := redirectAdminUsers + "/edit/" + strconv.FormatInt(id, 10)

	if !parseFormOrRedirect(w, r, h.sessionManager, editURL) {
		return
	}

	in := userInputFromForm(r)
	formData := UserFormData{User: &store.User{ID: id}, IsEdit: true, Action: userURL(id)}

	// An admin demoting themselves would lose access to this page.
	if p := middleware.GetPrincipal(r); p != nil && p.ID == id && in.Role != store.RoleAdmin {
		h.renderForm(w, r, http.StatusUnprocessableEntity, formData, userFormValues(in),
			map[string]string{"role": "You cannot remove your own admin role"})
		return
	}

	if _, err := h.users.Update(r.Context(), id, in); err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			renderNotFound(w, r, h.renderer)
		case service.FieldErrors(err) != nil:
			h.renderForm(w, r, http.StatusUnprocessableEntity, formData, userFormValues(in), service.FieldErrors(err))
		default:
			slog.ErrorContext(r.Context(), "failed to update user", "error", err, "user_id", id)
			flashError(w, r, h.sessionManager, editURL, mutationError("update", "user", err))
		}
		return
	}

	slog.InfoContext(r.Context(), "user updated", "user_id", id, "updated_by", principalID(r))
	flashSuccess(w, r, h.sessionManager, redirectAdminUsers, "User updated successfully")
}

// Delete handles DELETE /admin/users/{id} and POST /admin/users/{id}/delete.
// Admin accounts are kept and reported with a notice.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		renderNotFound(w, r, h.renderer)
		return
	}

	if err := h.users.Delete(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, service.ErrAdminProtected):
			slog.WarnContext(r.Context(), "refused to delete admin user", "user_id", id, "requested_by", principalID(r))
			flashError(w, r, h.sessionManager, redirectAdminUsers, service.ErrAdminProtected.Error())
		case errors.Is(err, service.ErrNotFound):
			renderNotFound(w, r, h.renderer)
		default:
			slog.ErrorContext(r.Context(), "failed to delete user", "error", err, "user_id", id)
			flashError(w, r, h.sessionManager, redirectAdminUsers, mutationError("delete", "user", err))
		}
		return
	}

	slog.InfoContext(r.Context(), "user deleted", "user_id", id, "deleted_by", principalID(r))
	flashSuccess(w, r, h.sessionManager, redirectAdminUsers, "User deleted successfully")
}

func (h *UsersHandler) renderForm(w http.ResponseWriter, r *http.Request, status int, data UserFormData, values, errs map[string]string) {
	data.Roles = ValidRoles
	title := "New user"
	if data.IsEdit {
		title = "Edit user"
	}
	h.renderer.RenderStatus(w, r, status, templateUsersForm, render.TemplateData{
		Title:      title,
		Data:       data,
		FormValues: values,
		Errors:     errs,
	})
}

func userInputFromForm(r *http.Request) service.UserInput {
	return service.UserInput{
		Name:     r.FormValue("name"),
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
		Role:     r.FormValue("role"),
	}
}

// userFormValues never echoes the password back into the form.
func userFormValues(in service.UserInput) map[string]string {
	return map[string]string{
		"name":  in.Name,
		"email": in.Email,
		"role":  in.Role,
	}
}

func userURL(id int64) string {
	return redirectAdminUsers + "/" + strconv.FormatInt(id, 10)
}
