// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/venue-finder/internal/middleware"
	"github.com/olegiv/venue-finder/internal/render"
	"github.com/olegiv/venue-finder/internal/service"
	"github.com/olegiv/venue-finder/internal/session"
)

const msgInvalidCredentials = "Invalid email or password"

// AuthHandler handles authentication routes.
type AuthHandler struct {
	users           *service.UserService
	renderer        *render.Renderer
	sessionManager  *scs.SessionManager
	loginProtection *middleware.LoginProtection
}

// NewAuthHandler creates a new AuthHandler. lp may be nil.
func NewAuthHandler(users *service.UserService, renderer *render.Renderer, sm *scs.SessionManager, lp *middleware.LoginProtection) *AuthHandler {
	return &AuthHandler{
		users:           users,
		renderer:        renderer,
		sessionManager:  sm,
		loginProtection: lp,
	}
}

// LoginForm renders the login page.
// Already signed-in users are sent to where a fresh login would take them.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if p := middleware.GetPrincipal(r); p != nil {
		http.Redirect(w, r, landingFor(p.IsAdmin()), http.StatusSeeOther)
		return
	}

	h.renderer.RenderPage(w, r, templateLogin, render.TemplateData{
		Title: "Log in",
	})
}

// Login handles the login form submission.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.sessionManager, redirectLogin) {
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")

	if email == "" || password == "" {
		h.renderLoginError(w, r, email, "Email and password are required")
		return
	}

	if h.loginProtection != nil {
		if locked, remaining := h.loginProtection.IsAccountLocked(email); locked {
			slog.WarnContext(r.Context(), "login attempt on locked account", "email", email)
			flashError(w, r, h.sessionManager, redirectLogin,
				"Account temporarily locked. Try again in "+formatDuration(remaining)+".")
			return
		}
	}

	user, err := h.users.Authenticate(r.Context(), email, password)
	if err != nil {
		if !errors.Is(err, service.ErrNotFound) {
			logAndInternalError(w, r, "database error during login", "error", err)
			return
		}
		slog.DebugContext(r.Context(), "failed login attempt", "email", email)
		h.loginFailed(w, r, email)
		return
	}

	if h.loginProtection != nil {
		h.loginProtection.RecordSuccessfulLogin(email)
	}

	// New token on privilege change to prevent session fixation.
	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		logAndInternalError(w, r, "session renewal error", "error", err)
		return
	}
	h.sessionManager.Put(r.Context(), session.KeyUserID, user.ID)

	slog.InfoContext(r.Context(), "user logged in", "user_id", user.ID, "email", user.Email)
	flashSuccess(w, r, h.sessionManager, landingFor(user.IsAdmin()), "Welcome back, "+user.Name+"!")
}

// Logout handles POST /logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := h.sessionManager.GetInt64(r.Context(), session.KeyUserID)

	if err := h.sessionManager.Destroy(r.Context()); err != nil {
		logAndInternalError(w, r, "session destroy error", "error", err)
		return
	}

	if userID > 0 {
		slog.InfoContext(r.Context(), "user logged out", "user_id", userID)
	}
	flashSuccess(w, r, h.sessionManager, redirectHome, "You have been logged out")
}

func (h *AuthHandler) loginFailed(w http.ResponseWriter, r *http.Request, email string) {
	if h.loginProtection != nil {
		if locked, lockDuration := h.loginProtection.RecordFailedAttempt(email); locked {
			slog.WarnContext(r.Context(), "account locked after failed attempts", "email", email, "duration", lockDuration.String())
			flashError(w, r, h.sessionManager, redirectLogin,
				"Too many failed attempts. Try again in "+formatDuration(lockDuration)+".")
			return
		}
		if remaining := h.loginProtection.RemainingAttempts(email); remaining > 0 && remaining <= 3 {
			h.renderLoginError(w, r, email, fmt.Sprintf("%s. %d attempts remaining.", msgInvalidCredentials, remaining))
			return
		}
	}
	h.renderLoginError(w, r, email, msgInvalidCredentials)
}

func (h *AuthHandler) renderLoginError(w http.ResponseWriter, r *http.Request, email, message string) {
	h.renderer.RenderStatus(w, r, http.StatusUnprocessableEntity, templateLogin, render.TemplateData{
		Title:      "Log in",
		Flash:      session.Flash{Error: message},
		FormValues: map[string]string{"email": email},
	})
}

// landingFor returns where a user goes after signing in.
func landingFor(isAdmin bool) string {
	if isAdmin {
		return redirectDashboard
	}
	return redirectHome
}

// formatDuration renders a lockout duration for humans, rounded up to minutes.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return "less than a minute"
	}
	minutes := int((d + time.Minute - 1) / time.Minute)
	if minutes == 1 {
		return "1 minute"
	}
	if minutes < 60 {
		return fmt.Sprintf("%d minutes", minutes)
	}
	hours := minutes / 60
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}
