// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/venue-finder/internal/auth"
)

// Default admin account values.
const (
	DefaultAdminEmail = "admin@example.com"
	DefaultAdminName  = "Administrator"
)

// SeedOptions controls the bootstrap admin account.
type SeedOptions struct {
	AdminEmail    string
	AdminPassword string // generated when empty
	DemoVenues    bool
}

// Seed creates the bootstrap admin account when it does not exist and,
// optionally, a set of demo venues.
func Seed(ctx context.Context, db *sql.DB, opts SeedOptions) error {
	queries := New(db)

	opts.AdminEmail = strings.ToLower(strings.TrimSpace(opts.AdminEmail))
	if opts.AdminEmail == "" {
		opts.AdminEmail = DefaultAdminEmail
	}

	_, err := queries.GetUserByEmail(ctx, opts.AdminEmail)
	switch {
	case err == nil:
		slog.Info("admin user already exists, skipping seed", "email", opts.AdminEmail)
	case errors.Is(err, sql.ErrNoRows):
		if err := seedAdmin(ctx, queries, opts); err != nil {
			return err
		}
	default:
		return fmt.Errorf("checking for admin user: %w", err)
	}

	if opts.DemoVenues {
		if err := SeedDemoVenues(ctx, db); err != nil {
			return fmt.Errorf("seeding demo venues: %w", err)
		}
	}
	return nil
}

func seedAdmin(ctx context.Context, queries *Queries, opts SeedOptions) error {
	password := opts.AdminPassword
	generated := password == ""
	if generated {
		password = strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	now := time.Now().UTC()
	user, err := queries.CreateUser(ctx, CreateUserParams{
		Name:         DefaultAdminName,
		Email:        opts.AdminEmail,
		PasswordHash: passwordHash,
		Role:         RoleAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}

	if generated {
		slog.Warn("created admin user with generated password; change it after first login",
			"id", user.ID, "email", user.Email, "password", password)
	} else {
		slog.Info("created admin user", "id", user.ID, "email", user.Email)
	}
	return nil
}
