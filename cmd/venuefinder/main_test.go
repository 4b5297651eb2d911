// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"github.com/olegiv/venue-finder/internal/cache"
	"github.com/olegiv/venue-finder/internal/config"
	"github.com/olegiv/venue-finder/internal/geo"
	"github.com/olegiv/venue-finder/internal/geoip"
	"github.com/olegiv/venue-finder/internal/middleware"
	"github.com/olegiv/venue-finder/internal/render"
	"github.com/olegiv/venue-finder/internal/service"
	"github.com/olegiv/venue-finder/internal/session"
	"github.com/olegiv/venue-finder/internal/store"
	"github.com/olegiv/venue-finder/internal/testutil"
	"github.com/olegiv/venue-finder/internal/version"
	"github.com/olegiv/venue-finder/web"
)

func TestTileSource(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png", "https://*.tile.openstreetmap.org"},
		{"https://tiles.example.com/{z}/{x}/{y}.png", "https://tiles.example.com"},
		{"/tiles/{z}/{x}/{y}.png", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := tileSource(tt.in); got != tt.want {
			t.Errorf("tileSource(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestRegisterCRUD(t *testing.T) {
	named := func(name string) http.HandlerFunc {
		return func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(name))
		}
	}

	r := chi.NewRouter()
	registerCRUD(r, "/venues", "/venues/{id}", crudHandlers{
		List:     named("list"),
		NewForm:  named("new"),
		Create:   named("create"),
		EditForm: named("edit"),
		Update:   named("update"),
		Delete:   named("delete"),
	})

	tests := []struct {
		method string
		path   string
		want   string
	}{
		{http.MethodGet, "/venues", "list"},
		{http.MethodGet, "/venues/create", "new"},
		{http.MethodPost, "/venues", "create"},
		{http.MethodGet, "/venues/edit/7", "edit"},
		{http.MethodPut, "/venues/7", "update"},
		{http.MethodPost, "/venues/7", "update"},
		{http.MethodDelete, "/venues/7", "delete"},
		{http.MethodPost, "/venues/7/delete", "delete"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d; want 200", w.Code)
			}
			if got := w.Body.String(); got != tt.want {
				t.Errorf("handler = %q; want %q", got, tt.want)
			}
		})
	}
}

type routerFixture struct {
	handler http.Handler
	sm      *scs.SessionManager
	admin   store.User
	user    store.User
	venue   store.Venue
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	db := testutil.TestDB(t)
	sm := scs.New()

	templates, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		t.Fatalf("fs.Sub: %v", err)
	}
	renderer, err := render.New(render.Config{TemplatesFS: templates, SessionManager: sm, SiteName: "Campus Venues"})
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}

	backend := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Minute})
	t.Cleanup(func() { _ = backend.Close() })
	venues := service.NewVenueService(db, cache.NewVenueListCache(backend, time.Minute), geo.NewIndex())

	lp := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	t.Cleanup(lp.Stop)

	f := &routerFixture{
		sm:    sm,
		admin: testutil.CreateUser(t, db, "Admin", "admin@example.com", "password123", store.RoleAdmin),
		user:  testutil.CreateUser(t, db, "Jane", "jane@example.com", "password123", store.RoleUser),
		venue: testutil.CreateVenue(t, db, "Main Hall", "Block A", -8.9094, 33.4608),
	}
	if err := venues.RefreshIndex(context.Background()); err != nil {
		t.Fatalf("RefreshIndex: %v", err)
	}

	f.handler, err = newRouter(routerDeps{
		Config: &config.Config{
			SessionSecret:  strings.Repeat("0123456789abcdef", 2),
			Env:            "development",
			ServerPort:     8080,
			RequestTimeout: 5 * time.Second,
			MapTileURL:     "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
		},
		DB:              db,
		Sessions:        sm,
		Renderer:        renderer,
		Venues:          venues,
		Users:           service.NewUserService(db),
		Cache:           backend,
		Locator:         geoip.NewLocator(),
		Version:         &version.Info{Version: "test"},
		LoginProtection: lp,
	})
	if err != nil {
		t.Fatalf("newRouter: %v", err)
	}
	return f
}

// sessionCookie stores userID in a fresh session and returns its cookie.
func (f *routerFixture) sessionCookie(t *testing.T, userID int64) *http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	f.sm.LoadAndSave(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		f.sm.Put(r.Context(), session.KeyUserID, userID)
	})).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	for _, c := range w.Result().Cookies() {
		if c.Name == f.sm.Cookie.Name {
			return c
		}
	}
	t.Fatal("no session cookie issued")
	return nil
}

// flash returns the pending flash message of the session behind c.
func (f *routerFixture) flash(t *testing.T, c *http.Cookie) string {
	t.Helper()
	ctx, err := f.sm.Load(context.Background(), c.Value)
	if err != nil {
		t.Fatalf("loading session: %v", err)
	}
	return f.sm.GetString(ctx, session.KeyFlash)
}

func TestNewRouter_Access(t *testing.T) {
	f := newRouterFixture(t)
	venueID := strconv.FormatInt(f.venue.ID, 10)
	userID := strconv.FormatInt(f.user.ID, 10)

	const (
		anonymous = "anonymous"
		user      = "user"
		admin     = "admin"
	)

	tests := []struct {
		method    string
		path      string
		principal string
		status    int
		location  string
		flash     string
	}{
		// Admin area
		{http.MethodGet, "/dashboard", anonymous, http.StatusSeeOther, "/login", ""},
		{http.MethodGet, "/dashboard", user, http.StatusSeeOther, "/", "Unauthorized access"},
		{http.MethodGet, "/dashboard", admin, http.StatusOK, "", ""},
		{http.MethodGet, "/admin", admin, http.StatusSeeOther, "/dashboard", ""},
		{http.MethodGet, "/admin/venues", anonymous, http.StatusSeeOther, "/login", ""},
		{http.MethodGet, "/admin/venues", user, http.StatusSeeOther, "/", "Unauthorized access"},
		{http.MethodGet, "/admin/venues", admin, http.StatusOK, "", ""},
		{http.MethodGet, "/admin/venues/create", anonymous, http.StatusSeeOther, "/login", ""},
		{http.MethodGet, "/admin/venues/create", user, http.StatusSeeOther, "/", "Unauthorized access"},
		{http.MethodGet, "/admin/venues/create", admin, http.StatusOK, "", ""},
		{http.MethodGet, "/admin/venues/edit/" + venueID, anonymous, http.StatusSeeOther, "/login", ""},
		{http.MethodGet, "/admin/venues/edit/" + venueID, user, http.StatusSeeOther, "/", "Unauthorized access"},
		{http.MethodGet, "/admin/venues/edit/" + venueID, admin, http.StatusOK, "", ""},
		{http.MethodGet, "/admin/venues/edit/999", admin, http.StatusNotFound, "", ""},
		{http.MethodPost, "/admin/venues", anonymous, http.StatusSeeOther, "/login", ""},
		{http.MethodPost, "/admin/venues", user, http.StatusSeeOther, "/", "Unauthorized access"},
		{http.MethodPost, "/admin/venues", admin, http.StatusUnprocessableEntity, "", ""},
		{http.MethodPost, "/admin/venues/" + venueID + "/delete", user, http.StatusSeeOther, "/", "Unauthorized access"},
		{http.MethodPost, "/admin/venues/999/delete", admin, http.StatusNotFound, "", ""},
		{http.MethodGet, "/admin/users", anonymous, http.StatusSeeOther, "/login", ""},
		{http.MethodGet, "/admin/users", user, http.StatusSeeOther, "/", "Unauthorized access"},
		{http.MethodGet, "/admin/users", admin, http.StatusOK, "", ""},
		{http.MethodGet, "/admin/users/edit/" + userID, user, http.StatusSeeOther, "/", "Unauthorized access"},
		{http.MethodGet, "/admin/users/edit/" + userID, admin, http.StatusOK, "", ""},
		{http.MethodPost, "/admin/users/" + userID + "/delete", anonymous, http.StatusSeeOther, "/login", ""},

		// Public pages
		{http.MethodGet, "/", anonymous, http.StatusOK, "", ""},
		{http.MethodGet, "/", user, http.StatusOK, "", ""},
		{http.MethodGet, "/login", anonymous, http.StatusOK, "", ""},
		{http.MethodGet, "/health", anonymous, http.StatusOK, "", ""},
		{http.MethodGet, "/no-such-page", anonymous, http.StatusNotFound, "", ""},

		// JSON API
		{http.MethodGet, "/venues", anonymous, http.StatusOK, "", ""},
		{http.MethodGet, "/venues/nearby?lat=-8.9094&lng=33.4608", anonymous, http.StatusOK, "", ""},
		{http.MethodPost, "/venues", anonymous, http.StatusMethodNotAllowed, "", ""},
		{http.MethodPost, "/venues", admin, http.StatusMethodNotAllowed, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.principal+" "+tt.method+" "+tt.path, func(t *testing.T) {
			var req *http.Request
			if tt.method == http.MethodPost {
				req = httptest.NewRequest(tt.method, tt.path, strings.NewReader(url.Values{}.Encode()))
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			} else {
				req = httptest.NewRequest(tt.method, tt.path, nil)
			}

			var cookie *http.Cookie
			switch tt.principal {
			case user:
				cookie = f.sessionCookie(t, f.user.ID)
			case admin:
				cookie = f.sessionCookie(t, f.admin.ID)
			}
			if cookie != nil {
				req.AddCookie(cookie)
			}

			w := httptest.NewRecorder()
			f.handler.ServeHTTP(w, req)

			if w.Code != tt.status {
				t.Fatalf("status = %d; want %d", w.Code, tt.status)
			}
			if got := w.Header().Get("Location"); got != tt.location {
				t.Errorf("Location = %q; want %q", got, tt.location)
			}
			if tt.flash != "" {
				if got := f.flash(t, cookie); got != tt.flash {
					t.Errorf("flash = %q; want %q", got, tt.flash)
				}
			}
		})
	}
}

func TestNewRouter_CreateNotAllowedAnswersJSON(t *testing.T) {
	f := newRouterFixture(t)

	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/venues", nil))

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d; want 405", w.Code)
	}
	if got := w.Header().Get("Allow"); got != http.MethodGet {
		t.Errorf("Allow = %q; want GET", got)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q; want application/json", ct)
	}
}
