// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/olegiv/venue-finder/internal/store"
)

const venueListKey = "venues:all"

// VenueListCache caches the full venue listing served to visitors.
type VenueListCache struct {
	typed *TypedCache[[]store.Venue]
}

// NewVenueListCache wraps backend.
func NewVenueListCache(backend Cacher, ttl time.Duration) *VenueListCache {
	return &VenueListCache{typed: NewTypedCache[[]store.Venue](backend, ttl)}
}

// Get returns the cached listing or loads and caches it.
func (c *VenueListCache) Get(ctx context.Context, load func(context.Context) ([]store.Venue, error)) ([]store.Venue, error) {
	venues, err := c.typed.GetOrSet(ctx, venueListKey, func() (*[]store.Venue, error) {
		list, err := load(ctx)
		if err != nil {
			return nil, err
		}
		return &list, nil
	})
	if err != nil {
		return nil, err
	}
	return *venues, nil
}

// Invalidate drops the cached listing after a venue mutation.
func (c *VenueListCache) Invalidate(ctx context.Context) {
	if err := c.typed.Delete(ctx, venueListKey); err != nil {
		slog.WarnContext(ctx, "failed to invalidate venue cache", "error", err)
	}
}
