// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package geoip resolves a client IP to approximate coordinates using a
// MaxMind GeoLite2-City database. It only seeds the initial map view; the
// browser geolocation fix always takes precedence.
package geoip

import (
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/oschwald/maxminddb-golang"

	"github.com/olegiv/venue-finder/internal/geo"
)

var privateCIDRs []*net.IPNet

func init() {
	for _, block := range []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"100.64.0.0/10", // carrier-grade NAT, common on campus networks
		"fc00::/7",
		"fe80::/10",
	} {
		_, cidr, err := net.ParseCIDR(block)
		if err == nil {
			privateCIDRs = append(privateCIDRs, cidr)
		}
	}
}

// Locator looks up approximate coordinates for IP addresses.
type Locator struct {
	db        *maxminddb.Reader
	dbPath    string
	dbModTime time.Time
	mu        sync.RWMutex
}

type cityRecord struct {
	Location struct {
		Latitude       float64 `maxminddb:"latitude"`
		Longitude      float64 `maxminddb:"longitude"`
		AccuracyRadius uint16  `maxminddb:"accuracy_radius"`
	} `maxminddb:"location"`
}

// Result is an approximate position with its accuracy radius in kilometres.
type Result struct {
	geo.Point
	AccuracyKm int
}

// NewLocator returns a disabled locator; call Init to load a database.
func NewLocator() *Locator {
	return &Locator{}
}

// Init loads the database at dbPath. An empty path leaves the locator
// disabled and is not an error.
func (l *Locator) Init(dbPath string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.dbPath = dbPath
	if dbPath == "" {
		return nil
	}
	return l.load()
}

// load opens the database if it changed on disk. Caller holds l.mu.
func (l *Locator) load() error {
	info, err := os.Stat(l.dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("GeoIP database not found: %s", l.dbPath)
		}
		return fmt.Errorf("GeoIP database stat error: %w", err)
	}

	if l.db != nil && info.ModTime().Equal(l.dbModTime) {
		return nil
	}

	db, err := maxminddb.Open(l.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open GeoIP database: %w", err)
	}

	if l.db != nil {
		_ = l.db.Close()
	}
	l.db = db
	l.dbModTime = info.ModTime()
	return nil
}

// Reload reopens the database if the file was replaced. A failed reload keeps
// the previously loaded database.
func (l *Locator) Reload() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.dbPath == "" {
		return nil
	}
	return l.load()
}

// Enabled reports whether a database is loaded.
func (l *Locator) Enabled() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.db != nil
}

// Locate returns the approximate position of ip. It reports false for
// private, loopback and unparseable addresses, when no database is loaded,
// and when the record carries no coordinates.
func (l *Locator) Locate(ip string) (Result, bool) {
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.IsLoopback() || isPrivateIP(parsed) {
		return Result{}, false
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.db == nil {
		return Result{}, false
	}

	var record cityRecord
	if err := l.db.Lookup(parsed, &record); err != nil {
		return Result{}, false
	}
	loc := record.Location
	if loc.Latitude == 0 && loc.Longitude == 0 {
		return Result{}, false
	}

	return Result{
		Point:      geo.Point{Lat: loc.Latitude, Lng: loc.Longitude},
		AccuracyKm: int(loc.AccuracyRadius),
	}, true
}

func (l *Locator) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return err
}

func isPrivateIP(ip net.IP) bool {
	for _, cidr := range privateCIDRs {
		if cidr.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP strips the port from a RemoteAddr value.
func ClientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
