// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/olegiv/venue-finder/internal/middleware"
	"github.com/olegiv/venue-finder/internal/service"
	"github.com/olegiv/venue-finder/internal/session"
	"github.com/olegiv/venue-finder/internal/store"
	"github.com/olegiv/venue-finder/internal/testutil"
)

func newTestAuthHandler(t *testing.T) (*AuthHandler, store.User, store.User) {
	t.Helper()
	db, sm := testHandlerSetup(t)
	admin := testutil.CreateUser(t, db, "Admin", "admin@example.com", "password123", store.RoleAdmin)
	user := testutil.CreateUser(t, db, "Jane", "jane@example.com", "password123", store.RoleUser)

	lp := middleware.NewLoginProtection(middleware.LoginProtectionConfig{
		IPRateLimit:       100,
		IPBurst:           100,
		MaxFailedAttempts: 3,
		LockoutDuration:   time.Minute,
		AttemptWindow:     time.Minute,
	})
	t.Cleanup(lp.Stop)

	return NewAuthHandler(service.NewUserService(db), testRenderer(t, sm), sm, lp), admin, user
}

func loginRequest(t *testing.T, h *AuthHandler, email, password string) *http.Request {
	t.Helper()
	return newFormRequest(t, h.sessionManager, "/login", url.Values{
		"email":    {email},
		"password": {password},
	})
}

func TestAuthHandler_LoginForm(t *testing.T) {
	h, _, _ := newTestAuthHandler(t)

	w := httptest.NewRecorder()
	h.LoginForm(w, newGetRequest(t, h.sessionManager, "/login"))

	assertStatus(t, w.Code, http.StatusOK)
	assertBodyContains(t, w, `action="/login"`, `name="password"`)
}

func TestAuthHandler_LoginForm_SignedIn(t *testing.T) {
	h, admin, user := newTestAuthHandler(t)

	w := httptest.NewRecorder()
	h.LoginForm(w, requestAs(newGetRequest(t, h.sessionManager, "/login"), admin))
	assertRedirect(t, w, "/dashboard")

	w = httptest.NewRecorder()
	h.LoginForm(w, requestAs(newGetRequest(t, h.sessionManager, "/login"), user))
	assertRedirect(t, w, "/")
}

func TestAuthHandler_Login_Admin(t *testing.T) {
	h, admin, _ := newTestAuthHandler(t)

	req := loginRequest(t, h, "Admin@Example.com", "password123")
	w := httptest.NewRecorder()
	h.Login(w, req)

	assertRedirect(t, w, "/dashboard")
	assertFlash(t, h.sessionManager, req, "Welcome back, Admin!", session.FlashSuccess)
	if got := h.sessionManager.GetInt64(req.Context(), session.KeyUserID); got != admin.ID {
		t.Errorf("session user_id = %d; want %d", got, admin.ID)
	}
}

func TestAuthHandler_Login_User(t *testing.T) {
	h, _, user := newTestAuthHandler(t)

	req := loginRequest(t, h, "jane@example.com", "password123")
	w := httptest.NewRecorder()
	h.Login(w, req)

	assertRedirect(t, w, "/")
	if got := h.sessionManager.GetInt64(req.Context(), session.KeyUserID); got != user.ID {
		t.Errorf("session user_id = %d; want %d", got, user.ID)
	}
}

func TestAuthHandler_Login_WrongPassword(t *testing.T) {
	h, _, _ := newTestAuthHandler(t)

	req := loginRequest(t, h, "jane@example.com", "wrong-password")
	w := httptest.NewRecorder()
	h.Login(w, req)

	assertStatus(t, w.Code, http.StatusUnprocessableEntity)
	assertBodyContains(t, w, "Invalid email or password", `value="jane@example.com"`)
	if got := h.sessionManager.GetInt64(req.Context(), session.KeyUserID); got != 0 {
		t.Errorf("session user_id = %d; want 0", got)
	}
}

func TestAuthHandler_Login_UnknownEmail(t *testing.T) {
	h, _, _ := newTestAuthHandler(t)

	w := httptest.NewRecorder()
	h.Login(w, loginRequest(t, h, "nobody@example.com", "password123"))

	assertStatus(t, w.Code, http.StatusUnprocessableEntity)
	assertBodyContains(t, w, "Invalid email or password")
}

func TestAuthHandler_Login_MissingFields(t *testing.T) {
	h, _, _ := newTestAuthHandler(t)

	w := httptest.NewRecorder()
	h.Login(w, loginRequest(t, h, "", ""))

	assertStatus(t, w.Code, http.StatusUnprocessableEntity)
	assertBodyContains(t, w, "Email and password are required")
}

func TestAuthHandler_Login_Lockout(t *testing.T) {
	h, _, _ := newTestAuthHandler(t)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		h.Login(w, loginRequest(t, h, "jane@example.com", "wrong-password"))
		assertStatus(t, w.Code, http.StatusUnprocessableEntity)
	}

	req := loginRequest(t, h, "jane@example.com", "wrong-password")
	w := httptest.NewRecorder()
	h.Login(w, req)
	assertRedirect(t, w, "/login")

	// The correct password is refused while the account is locked.
	req = loginRequest(t, h, "jane@example.com", "password123")
	w = httptest.NewRecorder()
	h.Login(w, req)
	assertRedirect(t, w, "/login")
	if got := h.sessionManager.GetInt64(req.Context(), session.KeyUserID); got != 0 {
		t.Errorf("session user_id = %d; want 0", got)
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	h, _, user := newTestAuthHandler(t)

	req := newFormRequest(t, h.sessionManager, "/logout", nil)
	h.sessionManager.Put(req.Context(), session.KeyUserID, user.ID)

	w := httptest.NewRecorder()
	h.Logout(w, req)

	assertRedirect(t, w, "/")
	if got := h.sessionManager.GetInt64(req.Context(), session.KeyUserID); got != 0 {
		t.Errorf("session user_id = %d; want 0", got)
	}
	assertFlash(t, h.sessionManager, req, "You have been logged out", session.FlashSuccess)
}

func TestLandingFor(t *testing.T) {
	if got := landingFor(true); got != "/dashboard" {
		t.Errorf("landingFor(true) = %q", got)
	}
	if got := landingFor(false); got != "/" {
		t.Errorf("landingFor(false) = %q", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{30 * time.Second, "less than a minute"},
		{time.Minute, "1 minute"},
		{61 * time.Second, "2 minutes"},
		{15 * time.Minute, "15 minutes"},
		{time.Hour, "1 hour"},
		{5 * time.Hour, "5 hours"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := formatDuration(tt.d); got != tt.want {
				t.Errorf("formatDuration(%v) = %q; want %q", tt.d, got, tt.want)
			}
		})
	}
}
