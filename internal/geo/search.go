// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package geo

import (
	"slices"
	"strings"

	"github.com/mozillazg/go-unidecode"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/olegiv/venue-finder/internal/store"
)

// Sort orders for venue listings.
const (
	SortName     = "name"
	SortDistance = "distance"
)

// Ranked is a venue with its distance from the visitor, when known.
type Ranked struct {
	store.Venue
	Distance    int  // metres
	HasDistance bool // false when the visitor's position is unknown
}

// DistanceLabel returns the formatted distance or "" when unknown.
func (r Ranked) DistanceLabel() string {
	if !r.HasDistance {
		return ""
	}
	return FormatDistance(r.Distance)
}

// Fold lowercases s and transliterates it to ASCII so "Café" matches "cafe".
func Fold(s string) string {
	return strings.ToLower(unidecode.Unidecode(s))
}

// FilterByName keeps venues whose name contains term, ignoring case and
// accents. An empty term keeps everything.
func FilterByName(venues []store.Venue, term string) []store.Venue {
	term = Fold(strings.TrimSpace(term))
	if term == "" {
		return venues
	}

	filtered := make([]store.Venue, 0, len(venues))
	for _, v := range venues {
		if strings.Contains(Fold(v.Name), term) {
			filtered = append(filtered, v)
		}
	}
	return filtered
}

// Rank attaches distances from `from` to each venue. When from is nil the
// venues are returned without distances.
func Rank(venues []store.Venue, from *Point) []Ranked {
	ranked := make([]Ranked, len(venues))
	for i, v := range venues {
		ranked[i] = Ranked{Venue: v}
		if from != nil {
			ranked[i].Distance = DistanceMeters(from.Lat, from.Lng, v.Latitude, v.Longitude)
			ranked[i].HasDistance = true
		}
	}
	return ranked
}

// SortByName orders venues alphabetically using English collation rules.
func SortByName(ranked []Ranked) {
	c := collate.New(language.English, collate.IgnoreCase, collate.IgnoreDiacritics)
	slices.SortStableFunc(ranked, func(a, b Ranked) int {
		return c.CompareString(a.Name, b.Name)
	})
}

// SortByDistance orders venues nearest first. Venues without a distance keep
// their relative order after those with one.
func SortByDistance(ranked []Ranked) {
	slices.SortStableFunc(ranked, func(a, b Ranked) int {
		switch {
		case a.HasDistance && !b.HasDistance:
			return -1
		case !a.HasDistance && b.HasDistance:
			return 1
		default:
			return a.Distance - b.Distance
		}
	})
}

// ParseSort normalises a sort parameter. Distance ordering is only honoured
// when the visitor's position is known.
func ParseSort(s string, hasLocation bool) string {
	if strings.EqualFold(s, SortDistance) && hasLocation {
		return SortDistance
	}
	return SortName
}

// Search filters venues by term, attaches distances and sorts them.
func Search(venues []store.Venue, term, sortBy string, from *Point) []Ranked {
	ranked := Rank(FilterByName(venues, term), from)
	if ParseSort(sortBy, from != nil) == SortDistance {
		SortByDistance(ranked)
	} else {
		SortByName(ranked)
	}
	return ranked
}
