// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"database/sql"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"github.com/olegiv/venue-finder/internal/cache"
	"github.com/olegiv/venue-finder/internal/geo"
	"github.com/olegiv/venue-finder/internal/middleware"
	"github.com/olegiv/venue-finder/internal/render"
	"github.com/olegiv/venue-finder/internal/service"
	"github.com/olegiv/venue-finder/internal/session"
	"github.com/olegiv/venue-finder/internal/store"
	"github.com/olegiv/venue-finder/internal/testutil"
	"github.com/olegiv/venue-finder/web"
)

// testHandlerSetup returns a migrated database and an in-memory session
// manager.
func testHandlerSetup(t *testing.T) (*sql.DB, *scs.SessionManager) {
	t.Helper()
	db := testutil.TestDB(t)
	sm := scs.New()
	sm.Lifetime = 24 * time.Hour
	return db, sm
}

// testRenderer parses the embedded templates.
func testRenderer(t *testing.T, sm *scs.SessionManager) *render.Renderer {
	t.Helper()
	templates, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		t.Fatalf("fs.Sub: %v", err)
	}
	r, err := render.New(render.Config{
		TemplatesFS:    templates,
		SessionManager: sm,
		SiteName:       "Campus Venues",
	})
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}
	return r
}

// testVenueService wires a venue service with a memory listing cache and a
// nearby index.
func testVenueService(t *testing.T, db *sql.DB) *service.VenueService {
	t.Helper()
	backend := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Minute})
	t.Cleanup(func() { _ = backend.Close() })

	svc := service.NewVenueService(db, cache.NewVenueListCache(backend, time.Minute), geo.NewIndex())
	if err := svc.RefreshIndex(context.Background()); err != nil {
		t.Fatalf("RefreshIndex: %v", err)
	}
	return svc
}

// requestWithURLParams adds chi URL parameters to a request.
func requestWithURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// requestWithSession wraps a request with session context.
func requestWithSession(t *testing.T, sm *scs.SessionManager, r *http.Request) *http.Request {
	t.Helper()
	ctx, err := sm.Load(r.Context(), "")
	if err != nil {
		t.Fatalf("loading session: %v", err)
	}
	return r.WithContext(ctx)
}

// requestAs attaches u as the signed-in principal.
func requestAs(r *http.Request, u store.User) *http.Request {
	return r.WithContext(middleware.WithPrincipal(r.Context(), middleware.Principal{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}))
}

// newFormRequest builds a POST request with an urlencoded body and a loaded
// session.
func newFormRequest(t *testing.T, sm *scs.SessionManager, target string, form url.Values) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return requestWithSession(t, sm, req)
}

// newGetRequest builds a GET request with a loaded session.
func newGetRequest(t *testing.T, sm *scs.SessionManager, target string) *http.Request {
	t.Helper()
	return requestWithSession(t, sm, httptest.NewRequest(http.MethodGet, target, nil))
}

// pendingFlash returns the flash stored in the request's session without
// consuming it.
func pendingFlash(sm *scs.SessionManager, r *http.Request) (message, kind string) {
	return sm.GetString(r.Context(), session.KeyFlash), sm.GetString(r.Context(), session.KeyFlashType)
}

// assertStatus checks if the response status code matches the expected value.
func assertStatus(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status = %d; want %d", got, want)
	}
}

// assertRedirect checks for a 303 to location.
func assertRedirect(t *testing.T, w *httptest.ResponseRecorder, location string) {
	t.Helper()
	assertStatus(t, w.Code, http.StatusSeeOther)
	if got := w.Header().Get("Location"); got != location {
		t.Errorf("Location = %q; want %q", got, location)
	}
}

// assertNotFound checks for the rendered 404 page with no redirect or flash.
func assertNotFound(t *testing.T, sm *scs.SessionManager, r *http.Request, w *httptest.ResponseRecorder) {
	t.Helper()
	assertStatus(t, w.Code, http.StatusNotFound)
	if loc := w.Header().Get("Location"); loc != "" {
		t.Errorf("Location = %q; want none", loc)
	}
	assertBodyContains(t, w, "Page not found")
	if msg, _ := pendingFlash(sm, r); msg != "" {
		t.Errorf("flash = %q; want none", msg)
	}
}

// assertFlash checks the pending flash message and kind.
func assertFlash(t *testing.T, sm *scs.SessionManager, r *http.Request, message, kind string) {
	t.Helper()
	gotMsg, gotKind := pendingFlash(sm, r)
	if gotMsg != message {
		t.Errorf("flash = %q; want %q", gotMsg, message)
	}
	if gotKind != kind {
		t.Errorf("flash type = %q; want %q", gotKind, kind)
	}
}

// assertBodyContains checks that the response body contains every substring.
func assertBodyContains(t *testing.T, w *httptest.ResponseRecorder, subs ...string) {
	t.Helper()
	body := w.Body.String()
	for _, s := range subs {
		if !strings.Contains(body, s) {
			t.Errorf("body does not contain %q", s)
		}
	}
}
