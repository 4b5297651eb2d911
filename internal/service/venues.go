// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/olegiv/venue-finder/internal/cache"
	"github.com/olegiv/venue-finder/internal/geo"
	"github.com/olegiv/venue-finder/internal/store"
)

// MaxFieldLength is the limit for names, block names and emails.
const MaxFieldLength = 255

// RecentVenuesLimit is the number of venues shown on the dashboard.
const RecentVenuesLimit = 5

// VenueInput is the raw form or API input for a venue.
type VenueInput struct {
	Name        string
	BlockName   string
	Description string
	Latitude    string
	Longitude   string
}

// VenueStats summarises the venue table for the dashboard.
type VenueStats struct {
	Total        int64
	WithBlock    int64
	WithoutBlock int64
	Recent       []store.Venue
}

// VenueService manages venues. The listing cache and nearby index are
// optional; when present they are refreshed after every mutation.
type VenueService struct {
	store *store.Store
	cache *cache.VenueListCache
	index *geo.Index
}

// NewVenueService creates a VenueService. listCache and index may be nil.
func NewVenueService(db *sql.DB, listCache *cache.VenueListCache, index *geo.Index) *VenueService {
	return &VenueService{
		store: store.NewStore(db),
		cache: listCache,
		index: index,
	}
}

// List returns all venues ordered by name. On failure it logs the error and
// returns an empty, non-nil slice together with the error.
func (s *VenueService) List(ctx context.Context) ([]store.Venue, error) {
	var (
		venues []store.Venue
		err    error
	)
	if s.cache != nil {
		venues, err = s.cache.Get(ctx, s.store.ListVenues)
	} else {
		venues, err = s.store.ListVenues(ctx)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to list venues", "error", err)
		return []store.Venue{}, fmt.Errorf("listing venues: %w", err)
	}
	if venues == nil {
		venues = []store.Venue{}
	}
	return venues, nil
}

// Get returns the venue with id or ErrNotFound.
func (s *VenueService) Get(ctx context.Context, id int64) (store.Venue, error) {
	v, err := s.store.GetVenue(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Venue{}, ErrNotFound
	}
	if err != nil {
		return store.Venue{}, fmt.Errorf("getting venue %d: %w", id, err)
	}
	return v, nil
}

// Create validates in and stores a new venue.
func (s *VenueService) Create(ctx context.Context, in VenueInput) (store.Venue, error) {
	fields, err := validateVenue(in)
	if err != nil {
		return store.Venue{}, err
	}

	now := time.Now().UTC()
	var created store.Venue
	err = s.store.ExecTx(ctx, func(q *store.Queries) error {
		var err error
		created, err = q.CreateVenue(ctx, store.CreateVenueParams{
			Name:        fields.Name,
			BlockName:   fields.BlockName,
			Description: fields.Description,
			Latitude:    fields.Latitude,
			Longitude:   fields.Longitude,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		return err
	})
	if err != nil {
		return store.Venue{}, fmt.Errorf("creating venue: %w", err)
	}

	s.afterMutation(ctx)
	return created, nil
}

// Update validates in and replaces the venue with id.
func (s *VenueService) Update(ctx context.Context, id int64, in VenueInput) (store.Venue, error) {
	fields, err := validateVenue(in)
	if err != nil {
		return store.Venue{}, err
	}

	var updated store.Venue
	err = s.store.ExecTx(ctx, func(q *store.Queries) error {
		existing, err := q.GetVenue(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if _, err := q.UpdateVenue(ctx, store.UpdateVenueParams{
			Name:        fields.Name,
			BlockName:   fields.BlockName,
			Description: fields.Description,
			Latitude:    fields.Latitude,
			Longitude:   fields.Longitude,
			UpdatedAt:   now,
			ID:          id,
		}); err != nil {
			return err
		}

		updated = existing
		updated.Name = fields.Name
		updated.BlockName = fields.BlockName
		updated.Description = fields.Description
		updated.Latitude = fields.Latitude
		updated.Longitude = fields.Longitude
		updated.UpdatedAt = now
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return store.Venue{}, ErrNotFound
	}
	if err != nil {
		return store.Venue{}, fmt.Errorf("updating venue %d: %w", id, err)
	}

	s.afterMutation(ctx)
	return updated, nil
}

// Delete removes the venue with id.
func (s *VenueService) Delete(ctx context.Context, id int64) error {
	err := s.store.ExecTx(ctx, func(q *store.Queries) error {
		n, err := q.DeleteVenue(ctx, id)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("deleting venue %d: %w", id, err)
	}

	s.afterMutation(ctx)
	return nil
}

// Stats returns dashboard counters and the most recently created venues.
func (s *VenueService) Stats(ctx context.Context) (VenueStats, error) {
	total, err := s.store.CountVenues(ctx)
	if err != nil {
		return VenueStats{}, fmt.Errorf("counting venues: %w", err)
	}
	withBlock, err := s.store.CountVenuesWithBlock(ctx)
	if err != nil {
		return VenueStats{}, fmt.Errorf("counting venues with block: %w", err)
	}
	recent, err := s.store.ListRecentVenues(ctx, RecentVenuesLimit)
	if err != nil {
		return VenueStats{}, fmt.Errorf("listing recent venues: %w", err)
	}

	return VenueStats{
		Total:        total,
		WithBlock:    withBlock,
		WithoutBlock: total - withBlock,
		Recent:       recent,
	}, nil
}

// Nearby returns venues within radius metres of p, nearest first.
func (s *VenueService) Nearby(p geo.Point, radius int) []geo.Ranked {
	if s.index == nil {
		return []geo.Ranked{}
	}
	return s.index.Nearby(p.Lat, p.Lng, radius)
}

// RefreshIndex reloads all venues from the database into the nearby index.
func (s *VenueService) RefreshIndex(ctx context.Context) error {
	if s.index == nil {
		return nil
	}
	venues, err := s.store.ListVenues(ctx)
	if err != nil {
		return fmt.Errorf("loading venues for index: %w", err)
	}
	s.index.Rebuild(venues)
	slog.DebugContext(ctx, "venue index rebuilt", "venues", s.index.Len())
	return nil
}

func (s *VenueService) afterMutation(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
	if err := s.RefreshIndex(ctx); err != nil {
		slog.WarnContext(ctx, "failed to refresh venue index", "error", err)
	}
}

type venueFields struct {
	Name        string
	BlockName   sql.NullString
	Description string
	Latitude    float64
	Longitude   float64
}

func validateVenue(in VenueInput) (venueFields, error) {
	errs := make(map[string]string)

	name := StripTags(in.Name)
	switch {
	case name == "":
		errs["name"] = "Name is required"
	case utf8.RuneCountInString(name) > MaxFieldLength:
		errs["name"] = fmt.Sprintf("Name must be at most %d characters", MaxFieldLength)
	}

	block := StripTags(in.BlockName)
	if utf8.RuneCountInString(block) > MaxFieldLength {
		errs["block_name"] = fmt.Sprintf("Block name must be at most %d characters", MaxFieldLength)
	}

	description := strings.TrimSpace(in.Description)
	if description == "" {
		errs["description"] = "Description is required"
	}

	point, err := geo.ParsePoint(in.Latitude, in.Longitude)
	var coordErrs geo.CoordinateErrors
	if errors.As(err, &coordErrs) {
		for field, msg := range coordErrs {
			errs[field] = msg
		}
	}
	if strings.TrimSpace(in.Latitude) == "" {
		errs["latitude"] = "Latitude is required"
	}
	if strings.TrimSpace(in.Longitude) == "" {
		errs["longitude"] = "Longitude is required"
	}

	if err := validationResult(errs); err != nil {
		return venueFields{}, err
	}

	return venueFields{
		Name:        name,
		BlockName:   sql.NullString{String: block, Valid: block != ""},
		Description: description,
		Latitude:    point.Lat,
		Longitude:   point.Lng,
	}, nil
}
