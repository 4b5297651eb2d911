// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/olegiv/venue-finder/internal/auth"
	"github.com/olegiv/venue-finder/internal/store"
)

const msgEmailTaken = "Email is already taken"

// UserInput is the raw form input for a user. On update an empty Password
// keeps the stored hash.
type UserInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// UserService manages user accounts.
type UserService struct {
	store *store.Store
}

// NewUserService creates a UserService.
func NewUserService(db *sql.DB) *UserService {
	return &UserService{store: store.NewStore(db)}
}

// List returns all users ordered by name.
func (s *UserService) List(ctx context.Context) ([]store.User, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return []store.User{}, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// Count returns the number of user accounts.
func (s *UserService) Count(ctx context.Context) (int64, error) {
	n, err := s.store.CountUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

// Get returns the user with id or ErrNotFound.
func (s *UserService) Get(ctx context.Context, id int64) (store.User, error) {
	u, err := s.store.GetUserByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return store.User{}, ErrNotFound
	}
	if err != nil {
		return store.User{}, fmt.Errorf("getting user %d: %w", id, err)
	}
	return u, nil
}

// Create validates in, hashes the password and stores a new user.
func (s *UserService) Create(ctx context.Context, in UserInput) (store.User, error) {
	in = normalizeUser(in)
	errs := validateUser(in, true)
	if len(errs) == 0 {
		if err := checkEmail(ctx, s.store.Queries, in.Email, 0, errs); err != nil {
			return store.User{}, err
		}
	}
	if err := validationResult(errs); err != nil {
		return store.User{}, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return store.User{}, fmt.Errorf("hashing password: %w", err)
	}

	now := time.Now().UTC()
	var created store.User
	err = s.store.ExecTx(ctx, func(q *store.Queries) error {
		if err := claimEmail(ctx, q, in.Email, 0); err != nil {
			return err
		}
		var err error
		created, err = q.CreateUser(ctx, store.CreateUserParams{
			Name:         in.Name,
			Email:        in.Email,
			PasswordHash: hash,
			Role:         in.Role,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		return err
	})
	if vErr := emailTakenResult(err); vErr != nil {
		return store.User{}, vErr
	}
	if err != nil {
		return store.User{}, fmt.Errorf("creating user: %w", err)
	}
	return created, nil
}

// Update validates in and replaces the user with id.
func (s *UserService) Update(ctx context.Context, id int64, in UserInput) (store.User, error) {
	in = normalizeUser(in)
	errs := validateUser(in, false)
	if len(errs) == 0 {
		if err := checkEmail(ctx, s.store.Queries, in.Email, id, errs); err != nil {
			return store.User{}, err
		}
	}
	if err := validationResult(errs); err != nil {
		return store.User{}, err
	}

	newHash := ""
	if in.Password != "" {
		var err error
		if newHash, err = auth.HashPassword(in.Password); err != nil {
			return store.User{}, fmt.Errorf("hashing password: %w", err)
		}
	}

	var updated store.User
	err := s.store.ExecTx(ctx, func(q *store.Queries) error {
		existing, err := q.GetUserByID(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		if err := claimEmail(ctx, q, in.Email, id); err != nil {
			return err
		}

		hash := existing.PasswordHash
		if newHash != "" {
			hash = newHash
		}

		now := time.Now().UTC()
		if _, err := q.UpdateUser(ctx, store.UpdateUserParams{
			Name:         in.Name,
			Email:        in.Email,
			PasswordHash: hash,
			Role:         in.Role,
			UpdatedAt:    now,
			ID:           id,
		}); err != nil {
			return err
		}

		updated = existing
		updated.Name = in.Name
		updated.Email = in.Email
		updated.PasswordHash = hash
		updated.Role = in.Role
		updated.UpdatedAt = now
		return nil
	})
	if errors.Is(err, ErrNotFound) {
		return store.User{}, ErrNotFound
	}
	if vErr := emailTakenResult(err); vErr != nil {
		return store.User{}, vErr
	}
	if err != nil {
		return store.User{}, fmt.Errorf("updating user %d: %w", id, err)
	}
	return updated, nil
}

// Delete removes the user with id. Users with the admin role cannot be
// deleted and ErrAdminProtected is returned.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	err := s.store.ExecTx(ctx, func(q *store.Queries) error {
		u, err := q.GetUserByID(ctx, id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if u.IsAdmin() {
			return ErrAdminProtected
		}
		_, err = q.DeleteUser(ctx, id)
		return err
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrAdminProtected):
		return err
	default:
		return fmt.Errorf("deleting user %d: %w", id, err)
	}
}

// Authenticate returns the user matching email and password. It returns
// ErrNotFound for an unknown email or a wrong password. Outdated hashes are
// upgraded and the last-login time is recorded.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (store.User, error) {
	u, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return store.User{}, ErrNotFound
	}
	if err != nil {
		return store.User{}, fmt.Errorf("looking up user: %w", err)
	}

	ok, err := auth.CheckPassword(password, u.PasswordHash)
	if err != nil || !ok {
		return store.User{}, ErrNotFound
	}

	now := time.Now().UTC()
	if auth.NeedsRehash(u.PasswordHash) {
		if hash, err := auth.HashPassword(password); err == nil {
			if err := s.store.UpdateUserPassword(ctx, u.ID, hash, now); err == nil {
				u.PasswordHash = hash
			}
		}
	}
	if err := s.store.UpdateUserLastLogin(ctx, u.ID, now); err != nil {
		return store.User{}, fmt.Errorf("recording last login: %w", err)
	}
	u.LastLoginAt = sql.NullTime{Time: now, Valid: true}
	return u, nil
}

func checkEmail(ctx context.Context, q *store.Queries, email string, excludeID int64, errs map[string]string) error {
	taken, err := q.EmailTaken(ctx, email, excludeID)
	if err != nil {
		return fmt.Errorf("checking email: %w", err)
	}
	if taken {
		errs["email"] = msgEmailTaken
	}
	return nil
}

// claimEmail repeats the uniqueness check inside the transaction and returns
// ErrEmailTaken when another user holds email.
func claimEmail(ctx context.Context, q *store.Queries, email string, excludeID int64) error {
	taken, err := q.EmailTaken(ctx, email, excludeID)
	if err != nil {
		return fmt.Errorf("checking email: %w", err)
	}
	if taken {
		return ErrEmailTaken
	}
	return nil
}

// emailTakenResult turns a lost race for an email address, detected either by
// claimEmail or by the UNIQUE index, into the email field error.
func emailTakenResult(err error) error {
	if errors.Is(err, ErrEmailTaken) || store.IsUniqueViolation(err) {
		return &ValidationError{Fields: map[string]string{"email": msgEmailTaken}}
	}
	return nil
}

func normalizeUser(in UserInput) UserInput {
	in.Name = StripTags(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Role = strings.TrimSpace(in.Role)
	return in
}

func validateUser(in UserInput, creating bool) map[string]string {
	errs := make(map[string]string)

	switch {
	case in.Name == "":
		errs["name"] = "Name is required"
	case utf8.RuneCountInString(in.Name) > MaxFieldLength:
		errs["name"] = fmt.Sprintf("Name must be at most %d characters", MaxFieldLength)
	}

	switch {
	case in.Email == "":
		errs["email"] = "Email is required"
	case len(in.Email) > MaxFieldLength:
		errs["email"] = fmt.Sprintf("Email must be at most %d characters", MaxFieldLength)
	case !validEmail(in.Email):
		errs["email"] = "Email must be a valid email address"
	}

	switch {
	case creating && in.Password == "":
		errs["password"] = "Password is required"
	case in.Password != "" && utf8.RuneCountInString(in.Password) < auth.MinPasswordLength:
		errs["password"] = fmt.Sprintf("Password must be at least %d characters", auth.MinPasswordLength)
	}

	if in.Role != store.RoleUser && in.Role != store.RoleAdmin {
		errs["role"] = "Role must be user or admin"
	}

	return errs
}

// validEmail accepts a bare address only, rejecting display-name forms.
func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}
