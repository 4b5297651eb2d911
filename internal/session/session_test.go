// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"context"
	"database/sql"
	"testing"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2/memstore"
	_ "github.com/mattn/go-sqlite3"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE sessions (
			token TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			expiry REAL NOT NULL
		);
		CREATE INDEX sessions_expiry_idx ON sessions(expiry);
	`)
	if err != nil {
		t.Fatalf("failed to create sessions table: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNew_PersistentStore(t *testing.T) {
	sm := New(Options{DB: setupTestDB(t), Persistent: true, IsDev: true})

	if _, ok := sm.Store.(*sqlite3store.SQLite3Store); !ok {
		t.Errorf("Store = %T, want *sqlite3store.SQLite3Store", sm.Store)
	}
	if sm.Cookie.Secure {
		t.Error("expected Cookie.Secure = false in dev mode")
	}
	if !sm.Cookie.HttpOnly {
		t.Error("expected Cookie.HttpOnly = true")
	}
}

func TestNew_MemoryStore(t *testing.T) {
	sm := New(Options{IsDev: false})

	if _, ok := sm.Store.(*memstore.MemStore); !ok {
		t.Errorf("Store = %T, want *memstore.MemStore", sm.Store)
	}
	if !sm.Cookie.Secure {
		t.Error("expected Cookie.Secure = true in production")
	}
	if sm.Cookie.Name != "__Host-session" {
		t.Errorf("Cookie.Name = %q, want __Host-session", sm.Cookie.Name)
	}
}

func TestFlash_RoundTrip(t *testing.T) {
	sm := New(Options{IsDev: true})
	ctx, err := sm.Load(context.Background(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if f := PopFlash(ctx, sm); !f.Empty() {
		t.Fatalf("expected empty flash, got %+v", f)
	}

	PutFlash(ctx, sm, "Venue created successfully", FlashSuccess)
	f := PopFlash(ctx, sm)
	if f.Success != "Venue created successfully" || f.Error != "" {
		t.Errorf("PopFlash = %+v", f)
	}
	if f := PopFlash(ctx, sm); !f.Empty() {
		t.Error("flash should be shown only once")
	}

	PutFlash(ctx, sm, "Unauthorized access", FlashError)
	f = PopFlash(ctx, sm)
	if f.Error != "Unauthorized access" || f.Success != "" {
		t.Errorf("PopFlash = %+v", f)
	}
}

func TestFlash_NilManager(t *testing.T) {
	PutFlash(context.Background(), nil, "x", FlashError)
	if f := PopFlash(context.Background(), nil); !f.Empty() {
		t.Error("nil manager should yield empty flash")
	}
}
