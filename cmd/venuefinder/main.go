// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/olegiv/venue-finder/internal/cache"
	"github.com/olegiv/venue-finder/internal/config"
	"github.com/olegiv/venue-finder/internal/geo"
	"github.com/olegiv/venue-finder/internal/geoip"
	"github.com/olegiv/venue-finder/internal/handler"
	"github.com/olegiv/venue-finder/internal/logging"
	"github.com/olegiv/venue-finder/internal/middleware"
	"github.com/olegiv/venue-finder/internal/render"
	"github.com/olegiv/venue-finder/internal/scheduler"
	"github.com/olegiv/venue-finder/internal/service"
	"github.com/olegiv/venue-finder/internal/session"
	"github.com/olegiv/venue-finder/internal/store"
	"github.com/olegiv/venue-finder/internal/version"
	"github.com/olegiv/venue-finder/web"
)

// Version information - injected at build time via ldflags
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

// Static assets are not fingerprinted, so they are cached for a day only.
const staticMaxAge = 86400

// Public JSON endpoints share one limiter per client IP.
const (
	apiRateLimit = 10
	apiBurst     = 20
)

// crudHandlers defines the standard CRUD handler methods.
type crudHandlers struct {
	List     http.HandlerFunc
	NewForm  http.HandlerFunc
	Create   http.HandlerFunc
	EditForm http.HandlerFunc
	Update   http.HandlerFunc
	Delete   http.HandlerFunc
}

// registerCRUD registers standard CRUD routes for a resource.
// Routes: GET /, GET /create, POST /, GET /edit/{id}, PUT /{id}, POST /{id},
// DELETE /{id}, POST /{id}/delete
func registerCRUD(r chi.Router, base, baseID string, h crudHandlers) {
	r.Get(base, h.List)
	r.Get(base+handler.RouteSuffixCreate, h.NewForm)
	r.Post(base, h.Create)
	r.Get(base+handler.RouteSuffixEdit, h.EditForm)
	r.Put(baseID, h.Update)
	r.Post(baseID, h.Update) // HTML forms can't send PUT
	r.Delete(baseID, h.Delete)
	r.Post(baseID+handler.RouteSuffixDelete, h.Delete) // nor DELETE
}

// tileSource turns a Leaflet tile template into a CSP source expression,
// e.g. "https://{s}.tile.openstreetmap.org/..." becomes
// "https://*.tile.openstreetmap.org".
func tileSource(tileURL string) string {
	u, err := url.Parse(strings.ReplaceAll(tileURL, "{s}", "*"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// routerDeps carries what the HTTP layer needs from run.
type routerDeps struct {
	Config          *config.Config
	DB              *sql.DB
	Sessions        *scs.SessionManager
	Renderer        *render.Renderer
	Venues          *service.VenueService
	Users           *service.UserService
	Cache           cache.Cacher
	Locator         *geoip.Locator
	Version         *version.Info
	LoginProtection *middleware.LoginProtection
}

// newRouter builds the handlers and the route table.
func newRouter(d routerDeps) (http.Handler, error) {
	cfg := d.Config
	sessionManager := d.Sessions

	// Handlers
	healthHandler := handler.NewHealthHandler(d.DB, d.Cache, d.Locator, d.Version)
	authHandler := handler.NewAuthHandler(d.Users, d.Renderer, sessionManager, d.LoginProtection)
	homeHandler := handler.NewHomeHandler(d.Venues, d.Renderer, sessionManager, d.Locator, handler.MapConfig{
		CenterLat:   cfg.MapCenterLat,
		CenterLng:   cfg.MapCenterLng,
		Zoom:        cfg.MapZoom,
		FocusZoom:   18,
		TileURL:     cfg.MapTileURL,
		Attribution: cfg.MapAttribution,
	})
	apiHandler := handler.NewAPIHandler(d.Venues)
	dashboardHandler := handler.NewDashboardHandler(d.Venues, d.Users, d.Renderer, sessionManager)
	venuesHandler := handler.NewVenuesHandler(d.Venues, d.Renderer, sessionManager)
	usersHandler := handler.NewUsersHandler(d.Users, d.Renderer, sessionManager)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(middleware.StripTrailingSlash)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment(), tileSource(cfg.MapTileURL))))
	r.Use(middleware.RequestPath)
	r.Use(sessionManager.LoadAndSave)
	r.Use(middleware.CSRF(middleware.DefaultCSRFConfig([]byte(cfg.SessionSecret), cfg.IsDevelopment(), strconv.Itoa(cfg.ServerPort))))
	r.Use(middleware.LoadPrincipal(sessionManager, d.DB))

	// Health checks
	r.Get(handler.RouteHealth, healthHandler.Health)
	r.Get(handler.RouteHealth+"/live", healthHandler.Liveness)
	r.Get(handler.RouteHealth+"/ready", healthHandler.Readiness)

	// Static files
	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		return nil, fmt.Errorf("loading static files: %w", err)
	}
	r.Handle("/static/*", middleware.StaticCache(staticMaxAge)(
		http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))),
	))

	// Public routes
	r.Get(handler.RouteRoot, homeHandler.Home)
	r.Get(handler.RouteLogin, authHandler.LoginForm)
	r.With(d.LoginProtection.Middleware()).Post(handler.RouteLogin, authHandler.Login)
	r.Post(handler.RouteLogout, authHandler.Logout)

	// Public JSON API
	r.Route(handler.RouteVenues, func(r chi.Router) {
		r.Use(middleware.NewRateLimiter(apiRateLimit, apiBurst).Middleware())
		r.Get(handler.RouteRoot, apiHandler.ListVenues)
		r.Get(handler.RouteSuffixNearby, apiHandler.NearbyVenues)
		r.Post(handler.RouteRoot, apiHandler.CreateNotAllowed)
	})

	// Admin routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(sessionManager))

		r.Get(handler.RouteDashboard, dashboardHandler.Dashboard)

		r.Route(handler.RouteAdmin, func(r chi.Router) {
			r.Get(handler.RouteRoot, func(w http.ResponseWriter, req *http.Request) {
				http.Redirect(w, req, handler.RouteDashboard, http.StatusSeeOther)
			})

			registerCRUD(r, handler.RouteVenues, handler.RouteVenuesID, crudHandlers{
				List: venuesHandler.List, NewForm: venuesHandler.NewForm, Create: venuesHandler.Create,
				EditForm: venuesHandler.EditForm, Update: venuesHandler.Update, Delete: venuesHandler.Delete,
			})
			registerCRUD(r, handler.RouteUsers, handler.RouteUsersID, crudHandlers{
				List: usersHandler.List, NewForm: usersHandler.NewForm, Create: usersHandler.Create,
				EditForm: usersHandler.EditForm, Update: usersHandler.Update, Delete: usersHandler.Delete,
			})
		})
	})

	r.NotFound(homeHandler.NotFound)

	return r, nil
}

func main() {
	// Parse CLI flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "venuefinder - campus venue directory and locator\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  VF_SESSION_SECRET      Session encryption key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  VF_DB_DRIVER           sqlite|sqlite3|mysql (default: sqlite)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  VF_DB_PATH             SQLite database path (default: ./data/venues.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  VF_DB_DSN              MySQL DSN (mysql driver only)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  VF_SERVER_PORT         Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  VF_ENV                 Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  VF_REDIS_URL           Redis URL for the venue listing cache (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  VF_GEOIP_DB_PATH       GeoLite2-City database for approximate location (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  VF_DO_SEED             Insert demo venues on startup (default: false)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  VF_ADMIN_EMAIL         Bootstrap admin email (default: admin@example.com)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  VF_ADMIN_PASSWORD      Bootstrap admin password (generated when empty)\n")
	}

	flag.Parse()

	// Handle -h/-help flag
	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	// Handle -v/-version flag
	if *showVersion {
		_, _ = fmt.Printf("venuefinder %s (commit: %s, built: %s)\n", appVersion, appGitCommit, appBuildTime)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	versionInfo := &version.Info{
		Version:   appVersion,
		GitCommit: appGitCommit,
		BuildTime: appBuildTime,
	}

	logger := logging.New(os.Stdout, cfg.LogFormat, cfg.SlogLevel())
	slog.SetDefault(logger)

	slog.Info("starting venuefinder", "version", versionInfo.String(), "env", cfg.Env, "driver", cfg.DBDriver)

	if cfg.IsSQLite() {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o750); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := store.Open(cfg.DBDriver, cfg.DataSource(), store.DefaultDBConfig())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}(db)

	if err := store.MigrateDriver(db, cfg.DBDriver); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("migrations completed")

	ctx := context.Background()
	if err := store.Seed(ctx, db, store.SeedOptions{
		AdminEmail:    cfg.AdminEmail,
		AdminPassword: cfg.AdminPassword,
		DemoVenues:    cfg.DoSeed,
	}); err != nil {
		return fmt.Errorf("seeding database: %w", err)
	}

	// Sessions live in the database for SQLite and in memory otherwise.
	sessionManager := session.New(session.Options{
		DB:         db,
		Persistent: cfg.IsSQLite(),
		IsDev:      cfg.IsDevelopment(),
	})

	cacheBackend := cache.New(cache.Config{
		RedisURL:   cfg.RedisURL,
		Prefix:     cfg.CachePrefix,
		DefaultTTL: cfg.CacheTTLDuration(),
	})
	defer func() {
		if err := cacheBackend.Close(); err != nil {
			slog.Error("failed to close cache", "error", err)
		}
	}()
	slog.Info("cache initialized", "redis", cfg.UseRedisCache())

	venueService := service.NewVenueService(db, cache.NewVenueListCache(cacheBackend, cfg.CacheTTLDuration()), geo.NewIndex())
	userService := service.NewUserService(db)
	if err := venueService.RefreshIndex(ctx); err != nil {
		return fmt.Errorf("building venue index: %w", err)
	}

	locator := geoip.NewLocator()
	if err := locator.Init(cfg.GeoIPDBPath); err != nil {
		// Approximate location is optional; the map falls back to the campus center.
		slog.Warn("geoip disabled", "path", cfg.GeoIPDBPath, "error", err)
	} else if cfg.GeoIPEnabled() {
		slog.Info("geoip database loaded", "path", cfg.GeoIPDBPath)
	}
	defer func() {
		if err := locator.Close(); err != nil {
			slog.Error("failed to close geoip database", "error", err)
		}
	}()

	sched := scheduler.New(logger)
	if err := sched.Add(scheduler.Job{
		Name:        "venue-index",
		Description: "Rebuild the nearby-venue index from the database",
		Schedule:    cfg.IndexRefresh,
		Run:         venueService.RefreshIndex,
	}); err != nil {
		return fmt.Errorf("scheduling venue index refresh: %w", err)
	}
	if cfg.GeoIPEnabled() {
		if err := sched.Add(scheduler.Job{
			Name:        "geoip-reload",
			Description: "Reopen the GeoIP database when the file changes",
			Schedule:    cfg.GeoIPReload,
			Run: func(context.Context) error {
				return locator.Reload()
			},
		}); err != nil {
			return fmt.Errorf("scheduling geoip reload: %w", err)
		}
	}
	sched.Start()
	defer sched.Stop()

	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		return fmt.Errorf("loading templates: %w", err)
	}
	renderer, err := render.New(render.Config{
		TemplatesFS:    templatesFS,
		SessionManager: sessionManager,
		SiteName:       cfg.SiteName,
	})
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}

	loginProtection := middleware.NewLoginProtection(middleware.DefaultLoginProtectionConfig())
	defer loginProtection.Stop()

	router, err := newRouter(routerDeps{
		Config:          cfg,
		DB:              db,
		Sessions:        sessionManager,
		Renderer:        renderer,
		Venues:          venueService,
		Users:           userService,
		Cache:           cacheBackend,
		Locator:         locator,
		Version:         versionInfo,
		LoginProtection: loginProtection,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second, // Reduced from 120s to mitigate slowloris attacks
		MaxHeaderBytes:    1 << 20,          // 1MB max header size
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
