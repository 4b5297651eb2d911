// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package geo

import (
	"sort"
	"sync"

	"github.com/asim/quadtree"

	"github.com/olegiv/venue-finder/internal/store"
)

// Radius limits for Nearby queries, in metres.
const (
	DefaultRadius = 1000
	MaxRadius     = 20000
)

// boxPadding widens the quadtree search box. The tree sizes boxes with the
// WGS-84 equatorial radius, which is larger than EarthRadius, so an unpadded
// box falls short of the haversine circle.
const boxPadding = 1.01

// Index is a spatial index of venues backed by a quadtree. It is safe for
// concurrent use; Rebuild swaps the whole tree.
type Index struct {
	mu    sync.RWMutex
	tree  *quadtree.QuadTree
	count int
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{}
}

// Rebuild replaces the indexed venues.
func (idx *Index) Rebuild(venues []store.Venue) {
	center := quadtree.NewPoint(0, 0, nil)
	half := quadtree.NewPoint(90, 180, nil)
	tree := quadtree.New(quadtree.NewAABB(center, half), 0, nil)

	n := 0
	for i := range venues {
		v := venues[i]
		if ValidateLatitude(v.Latitude) != nil || ValidateLongitude(v.Longitude) != nil {
			continue
		}
		if tree.Insert(quadtree.NewPoint(v.Latitude, v.Longitude, v)) {
			n++
		}
	}

	idx.mu.Lock()
	idx.tree = tree
	idx.count = n
	idx.mu.Unlock()
}

// Len returns the number of indexed venues.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.count
}

// Nearby returns venues within radius metres of (lat, lng), nearest first.
// radius is clamped to (0, MaxRadius]; zero or negative selects DefaultRadius.
func (idx *Index) Nearby(lat, lng float64, radius int) []Ranked {
	if radius <= 0 {
		radius = DefaultRadius
	}
	if radius > MaxRadius {
		radius = MaxRadius
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.tree == nil {
		return []Ranked{}
	}

	center := quadtree.NewPoint(lat, lng, nil)
	boundary := quadtree.NewAABB(center, center.HalfPoint(float64(radius)*boxPadding))

	results := []Ranked{}
	for _, pt := range idx.tree.Search(boundary) {
		v, ok := pt.Data().(store.Venue)
		if !ok {
			continue
		}
		d := Distance(lat, lng, v.Latitude, v.Longitude)
		// The search box is a padded rectangle around the circle.
		if d > float64(radius) {
			continue
		}
		results = append(results, Ranked{Venue: v, Distance: int(d + 0.5), HasDistance: true})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	return results
}
