// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/olegiv/venue-finder/internal/geo"
	"github.com/olegiv/venue-finder/internal/service"
	"github.com/olegiv/venue-finder/internal/store"
)

// VenueResponse is the public JSON representation of a venue.
type VenueResponse struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	BlockName     *string `json:"block_name"`
	Description   string  `json:"description"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`
	Distance      *int    `json:"distance,omitempty"`
	DistanceLabel string  `json:"distance_label,omitempty"`
}

func venueResponse(v store.Venue) VenueResponse {
	resp := VenueResponse{
		ID:          v.ID,
		Name:        v.Name,
		Description: v.Description,
		Latitude:    v.Latitude,
		Longitude:   v.Longitude,
	}
	if v.BlockName.Valid {
		block := v.BlockName.String
		resp.BlockName = &block
	}
	return resp
}

func rankedResponse(r geo.Ranked) VenueResponse {
	resp := venueResponse(r.Venue)
	if r.HasDistance {
		d := r.Distance
		resp.Distance = &d
		resp.DistanceLabel = r.DistanceLabel()
	}
	return resp
}

func rankedResponses(ranked []geo.Ranked) []VenueResponse {
	out := make([]VenueResponse, len(ranked))
	for i, r := range ranked {
		out[i] = rankedResponse(r)
	}
	return out
}

// APIHandler serves the public JSON venue endpoints.
type APIHandler struct {
	venues *service.VenueService
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(venues *service.VenueService) *APIHandler {
	return &APIHandler{venues: venues}
}

// ListVenues handles GET /venues. A failed read is logged by the service and
// answered with an empty array.
func (h *APIHandler) ListVenues(w http.ResponseWriter, r *http.Request) {
	venues, _ := h.venues.List(r.Context())

	out := make([]VenueResponse, len(venues))
	for i, v := range venues {
		out[i] = venueResponse(v)
	}
	writeJSON(w, http.StatusOK, out)
}

// NearbyVenues handles GET /venues/nearby?lat=&lng=&radius=.
func (h *APIHandler) NearbyVenues(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	p, err := geo.ParsePoint(q.Get("lat"), q.Get("lng"))
	if err != nil {
		var coordErrs geo.CoordinateErrors
		if errors.As(err, &coordErrs) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "Invalid location",
				"fields":  coordErrs,
			})
			return
		}
		writeJSONError(w, http.StatusBadRequest, "Invalid location")
		return
	}

	radius, err := parseRadius(q.Get("radius"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"latitude":  p.Lat,
		"longitude": p.Lng,
		"radius":    radius,
		"venues":    rankedResponses(h.venues.Nearby(p, radius)),
	})
}

// CreateNotAllowed answers POST /venues. Venues are created through the
// admin area only.
func (h *APIHandler) CreateNotAllowed(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Allow", http.MethodGet)
	writeJSONError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// parseRadius parses the radius query parameter in metres. Empty selects the
// default and values above the maximum are clamped.
func parseRadius(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return geo.DefaultRadius, nil
	}
	radius, err := strconv.Atoi(s)
	if err != nil || radius <= 0 {
		return 0, errors.New("radius must be a positive whole number of metres")
	}
	return min(radius, geo.MaxRadius), nil
}
