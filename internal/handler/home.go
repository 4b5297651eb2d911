// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/venue-finder/internal/geo"
	"github.com/olegiv/venue-finder/internal/geoip"
	"github.com/olegiv/venue-finder/internal/render"
	"github.com/olegiv/venue-finder/internal/service"
	"github.com/olegiv/venue-finder/internal/session"
)

// Zoom levels used by the map.
const (
	FocusZoom    = 18
	LocatedZoom  = 16
	ApproxZoom   = 12
	maxQueryRune = 100
)

// MapConfig is serialised into the home page for map.js.
type MapConfig struct {
	CenterLat   float64 `json:"centerLat"`
	CenterLng   float64 `json:"centerLng"`
	Zoom        int     `json:"zoom"`
	FocusZoom   int     `json:"focusZoom"`
	TileURL     string  `json:"tileUrl"`
	Attribution string  `json:"attribution"`
	// Approximate is set when the center came from the client IP.
	Approximate bool `json:"approximate"`
}

// HomeData is the template data for the landing page.
type HomeData struct {
	Venues    []geo.Ranked
	MapVenues []VenueResponse
	Map       MapConfig
	Query     string
	Sort      string
	Location  *geo.Point
}

// HomeHandler serves the public landing page.
type HomeHandler struct {
	venues         *service.VenueService
	renderer       *render.Renderer
	sessionManager *scs.SessionManager
	locator        *geoip.Locator
	mapDefaults    MapConfig
}

// NewHomeHandler creates a new HomeHandler. locator may be nil.
func NewHomeHandler(venues *service.VenueService, renderer *render.Renderer, sm *scs.SessionManager, locator *geoip.Locator, mapDefaults MapConfig) *HomeHandler {
	if mapDefaults.FocusZoom == 0 {
		mapDefaults.FocusZoom = FocusZoom
	}
	return &HomeHandler{
		venues:         venues,
		renderer:       renderer,
		sessionManager: sm,
		locator:        locator,
		mapDefaults:    mapDefaults,
	}
}

// Home handles GET /?q=&sort=&lat=&lng=. Every visitor sees the full venue
// list; q filters by name and sort orders by name or by distance from the
// manually entered location.
func (h *HomeHandler) Home(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	venues, err := h.venues.List(r.Context())
	if err != nil {
		session.PutFlash(r.Context(), h.sessionManager, msgLoadVenuesFailed, session.FlashError)
	}

	data := HomeData{
		Query: truncateRunes(strings.TrimSpace(q.Get("q")), maxQueryRune),
		Map:   h.mapDefaults,
	}
	td := render.TemplateData{Title: "Find a venue"}

	p, ok, locErr := geo.ParseManualLocation(q.Get("lat"), q.Get("lng"))
	switch {
	case locErr != nil:
		var coordErrs geo.CoordinateErrors
		if errors.As(locErr, &coordErrs) {
			td.Errors = coordErrs
		}
		td.FormValues = map[string]string{"lat": q.Get("lat"), "lng": q.Get("lng")}
	case ok:
		data.Location = &p
		data.Map.CenterLat, data.Map.CenterLng = p.Lat, p.Lng
		data.Map.Zoom = LocatedZoom
	default:
		h.approximateCenter(r, &data.Map)
	}

	data.Sort = geo.ParseSort(q.Get("sort"), data.Location != nil)
	data.Venues = geo.Search(venues, data.Query, data.Sort, data.Location)

	// The map shows every venue regardless of the name filter.
	data.MapVenues = rankedResponses(geo.Rank(venues, data.Location))

	td.Data = data
	h.renderer.RenderPage(w, r, templateHome, td)
}

// approximateCenter moves the initial map view to the client's approximate
// position when a GeoIP database is loaded.
func (h *HomeHandler) approximateCenter(r *http.Request, m *MapConfig) {
	if h.locator == nil {
		return
	}
	res, ok := h.locator.Locate(geoip.ClientIP(r.RemoteAddr))
	if !ok {
		return
	}
	m.CenterLat, m.CenterLng = res.Lat, res.Lng
	m.Zoom = ApproxZoom
	m.Approximate = true
}

// NotFound renders the 404 page, or a JSON error for the venue API.
func (h *HomeHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, RouteVenues) || strings.Contains(r.Header.Get("Accept"), "application/json") {
		writeJSONError(w, http.StatusNotFound, "Not found")
		return
	}
	renderNotFound(w, r, h.renderer)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
