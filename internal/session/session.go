// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session configures the cookie session manager and the one-shot
// flash notices carried in it.
package session

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
)

// Session keys.
const (
	KeyUserID    = "user_id"
	KeyFlash     = "flash"
	KeyFlashType = "flash_type"
)

// Flash kinds.
const (
	FlashSuccess = "success"
	FlashError   = "error"
)

// Options configures New.
type Options struct {
	// DB backs the session store when Persistent is true. It must contain
	// the sessions table.
	DB         *sql.DB
	Persistent bool
	IsDev      bool
}

// New creates a session manager. Sessions are stored in SQLite when
// Persistent is set and in process memory otherwise.
func New(opts Options) *scs.SessionManager {
	sm := scs.New()

	if opts.Persistent && opts.DB != nil {
		sm.Store = sqlite3store.New(opts.DB)
	} else {
		sm.Store = memstore.New()
	}

	sm.Lifetime = 24 * time.Hour
	sm.IdleTimeout = 2 * time.Hour
	sm.Cookie.HttpOnly = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = !opts.IsDev
	if !opts.IsDev {
		sm.Cookie.Name = "__Host-session"
		sm.Cookie.Path = "/"
	}

	return sm
}

// Flash is a notice shown once on the next rendered page.
type Flash struct {
	Success string
	Error   string
}

// Empty reports whether there is nothing to show.
func (f Flash) Empty() bool {
	return f.Success == "" && f.Error == ""
}

// PutFlash stores a notice of the given kind for the next request.
func PutFlash(ctx context.Context, sm *scs.SessionManager, message, kind string) {
	if sm == nil {
		return
	}
	sm.Put(ctx, KeyFlash, message)
	sm.Put(ctx, KeyFlashType, kind)
}

// PopFlash removes and returns the pending notice, if any.
func PopFlash(ctx context.Context, sm *scs.SessionManager) Flash {
	if sm == nil {
		return Flash{}
	}
	msg := sm.PopString(ctx, KeyFlash)
	kind := sm.PopString(ctx, KeyFlashType)
	if msg == "" {
		return Flash{}
	}
	if kind == FlashError {
		return Flash{Error: msg}
	}
	return Flash{Success: msg}
}
