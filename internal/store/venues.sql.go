// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const venueColumns = `id, name, block_name, description, latitude, longitude, created_at, updated_at`

func scanVenue(row interface{ Scan(...any) error }) (Venue, error) {
	var v Venue
	err := row.Scan(
		&v.ID,
		&v.Name,
		&v.BlockName,
		&v.Description,
		&v.Latitude,
		&v.Longitude,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	return v, err
}

func (q *Queries) listVenues(ctx context.Context, query string, args ...any) ([]Venue, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := []Venue{}
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listVenues = `SELECT ` + venueColumns + ` FROM venues ORDER BY LOWER(name), id`

// ListVenues returns all venues ordered by name.
func (q *Queries) ListVenues(ctx context.Context) ([]Venue, error) {
	return q.listVenues(ctx, listVenues)
}

const listRecentVenues = `SELECT ` + venueColumns + ` FROM venues ORDER BY created_at DESC, id DESC LIMIT ?`

// ListRecentVenues returns the most recently created venues.
func (q *Queries) ListRecentVenues(ctx context.Context, limit int64) ([]Venue, error) {
	return q.listVenues(ctx, listRecentVenues, limit)
}

const getVenue = `SELECT ` + venueColumns + ` FROM venues WHERE id = ?`

// GetVenue returns sql.ErrNoRows when the venue does not exist.
func (q *Queries) GetVenue(ctx context.Context, id int64) (Venue, error) {
	return scanVenue(q.db.QueryRowContext(ctx, getVenue, id))
}

const createVenue = `INSERT INTO venues (name, block_name, description, latitude, longitude, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`

type CreateVenueParams struct {
	Name        string
	BlockName   sql.NullString
	Description string
	Latitude    float64
	Longitude   float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (q *Queries) CreateVenue(ctx context.Context, arg CreateVenueParams) (Venue, error) {
	res, err := q.db.ExecContext(ctx, createVenue,
		arg.Name,
		arg.BlockName,
		arg.Description,
		arg.Latitude,
		arg.Longitude,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	if err != nil {
		return Venue{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Venue{}, err
	}
	return Venue{
		ID:          id,
		Name:        arg.Name,
		BlockName:   arg.BlockName,
		Description: arg.Description,
		Latitude:    arg.Latitude,
		Longitude:   arg.Longitude,
		CreatedAt:   arg.CreatedAt,
		UpdatedAt:   arg.UpdatedAt,
	}, nil
}

const updateVenue = `UPDATE venues
SET name = ?, block_name = ?, description = ?, latitude = ?, longitude = ?, updated_at = ?
WHERE id = ?`

type UpdateVenueParams struct {
	Name        string
	BlockName   sql.NullString
	Description string
	Latitude    float64
	Longitude   float64
	UpdatedAt   time.Time
	ID          int64
}

// UpdateVenue returns the number of rows changed.
func (q *Queries) UpdateVenue(ctx context.Context, arg UpdateVenueParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateVenue,
		arg.Name,
		arg.BlockName,
		arg.Description,
		arg.Latitude,
		arg.Longitude,
		arg.UpdatedAt,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteVenue = `DELETE FROM venues WHERE id = ?`

func (q *Queries) DeleteVenue(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteVenue, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const countVenues = `SELECT COUNT(*) FROM venues`

func (q *Queries) CountVenues(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countVenues).Scan(&count)
	return count, err
}

const countVenuesWithBlock = `SELECT COUNT(*) FROM venues WHERE block_name IS NOT NULL AND block_name <> ''`

func (q *Queries) CountVenuesWithBlock(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, countVenuesWithBlock).Scan(&count)
	return count, err
}
