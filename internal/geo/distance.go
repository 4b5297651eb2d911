// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package geo computes great-circle distances between campus venues and a
// visitor's position, and searches, sorts and indexes venues by location.
package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// EarthRadius is the mean Earth radius in metres used by Distance.
const EarthRadius = 6371000

// Point is a WGS84 coordinate pair in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Distance returns the haversine distance in metres between two coordinates.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	φ1 := lat1 * math.Pi / 180
	φ2 := lat2 * math.Pi / 180
	Δφ := (lat2 - lat1) * math.Pi / 180
	Δλ := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(Δφ/2)*math.Sin(Δφ/2) + math.Cos(φ1)*math.Cos(φ2)*math.Sin(Δλ/2)*math.Sin(Δλ/2)
	return EarthRadius * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// DistanceMeters is Distance rounded to whole metres.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) int {
	return int(math.Round(Distance(lat1, lon1, lat2, lon2)))
}

// DistanceTo returns the distance in metres from p to q.
func (p Point) DistanceTo(q Point) float64 {
	return Distance(p.Lat, p.Lng, q.Lat, q.Lng)
}

// FormatDistance renders metres as "850m" below one kilometre and "1.2km"
// otherwise.
func FormatDistance(meters int) string {
	if meters < 1000 {
		return strconv.Itoa(meters) + "m"
	}
	return fmt.Sprintf("%.1fkm", float64(meters)/1000)
}

// Coordinate validation errors.
var (
	ErrLatitudeRange  = errors.New("latitude must be between -90 and 90")
	ErrLongitudeRange = errors.New("longitude must be between -180 and 180")
	ErrNotANumber     = errors.New("must be a number")
)

// ValidateLatitude checks lat is a finite value in [-90, 90].
func ValidateLatitude(lat float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return ErrLatitudeRange
	}
	return nil
}

// ValidateLongitude checks lng is a finite value in [-180, 180].
func ValidateLongitude(lng float64) error {
	if math.IsNaN(lng) || lng < -180 || lng > 180 {
		return ErrLongitudeRange
	}
	return nil
}

// ParseCoordinate parses a decimal degree string. Infinities and NaN are
// rejected.
func ParseCoordinate(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrNotANumber
	}
	return v, nil
}

// CoordinateErrors maps "latitude"/"longitude" to a message.
type CoordinateErrors map[string]string

func (e CoordinateErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, k := range []string{"latitude", "longitude"} {
		if msg, ok := e[k]; ok {
			parts = append(parts, k+": "+msg)
		}
	}
	return strings.Join(parts, "; ")
}

// ParsePoint parses and range-checks a latitude/longitude pair. Both values
// are checked so every problem is reported at once.
func ParsePoint(latStr, lngStr string) (Point, error) {
	errs := CoordinateErrors{}

	lat, err := ParseCoordinate(latStr)
	if err == nil {
		err = ValidateLatitude(lat)
	}
	if err != nil {
		errs["latitude"] = coordinateMessage("Latitude", err)
	}

	lng, err := ParseCoordinate(lngStr)
	if err == nil {
		err = ValidateLongitude(lng)
	}
	if err != nil {
		errs["longitude"] = coordinateMessage("Longitude", err)
	}

	if len(errs) > 0 {
		return Point{}, errs
	}
	return Point{Lat: lat, Lng: lng}, nil
}

func coordinateMessage(field string, err error) string {
	switch {
	case errors.Is(err, ErrLatitudeRange):
		return field + " must be between -90 and 90"
	case errors.Is(err, ErrLongitudeRange):
		return field + " must be between -180 and 180"
	default:
		return field + " must be a number"
	}
}

// ParseManualLocation parses an optional visitor location supplied as query
// parameters. ok is false when both values are empty.
func ParseManualLocation(latStr, lngStr string) (p Point, ok bool, err error) {
	if strings.TrimSpace(latStr) == "" && strings.TrimSpace(lngStr) == "" {
		return Point{}, false, nil
	}
	p, err = ParsePoint(latStr, lngStr)
	if err != nil {
		return Point{}, false, err
	}
	return p, true, nil
}
