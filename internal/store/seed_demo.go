// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

type demoVenue struct {
	name, block, description string
	lat, lng                 float64
}

// Demo venues around the Mbeya University of Science and Technology campus.
var demoVenues = []demoVenue{
	{"Main Library", "Block A", "Central library with reading rooms and the e-resources lab.", -8.9089, 33.4612},
	{"Great Hall", "", "Main assembly hall used for graduations and examinations.", -8.9101, 33.4598},
	{"Computer Lab 1", "Block C", "Undergraduate computing laboratory, ground floor.", -8.9095, 33.4621},
	{"Lecture Theatre 2", "Block B", "Large lecture theatre seating 400 students.", -8.9082, 33.4603},
	{"Students' Cafeteria", "", "Cafeteria serving breakfast and lunch on weekdays.", -8.9110, 33.4615},
	{"Engineering Workshop", "Block E", "Mechanical and civil engineering practical workshop.", -8.9076, 33.4630},
}

// SeedDemoVenues inserts demo venues when the venues table is empty.
func SeedDemoVenues(ctx context.Context, db *sql.DB) error {
	queries := New(db)

	count, err := queries.CountVenues(ctx)
	if err != nil {
		return fmt.Errorf("counting venues: %w", err)
	}
	if count > 0 {
		slog.Info("venues already present, skipping demo venues", "count", count)
		return nil
	}

	now := time.Now().UTC()
	for _, d := range demoVenues {
		_, err := queries.CreateVenue(ctx, CreateVenueParams{
			Name:        d.name,
			BlockName:   sql.NullString{String: d.block, Valid: d.block != ""},
			Description: d.description,
			Latitude:    d.lat,
			Longitude:   d.lng,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return fmt.Errorf("creating venue %q: %w", d.name, err)
		}
	}

	slog.Info("seeded demo venues", "count", len(demoVenues))
	return nil
}
