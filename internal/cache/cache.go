// Package cache stores scrape results per (query, source, location)
// key with two time bands: entries inside the freshness window are
// served instead of scraping, entries past it but inside the hard
// expiry remain available as a stale fallback when a live scrape
// comes up empty.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/pricescout/pricescout/internal/models"
)

type Options struct {
	// FreshFor is the freshness window. Must be well below
	// ExpireAfter so a stale-but-servable band exists.
	FreshFor time.Duration
	// ExpireAfter is the hard expiry; entries past it are treated as
	// absent and purged.
	ExpireAfter time.Duration
}

func DefaultOptions() Options {
	return Options{
		FreshFor:    5 * time.Minute,
		ExpireAfter: 30 * time.Minute,
	}
}

// Stats is a point-in-time view of a store.
type Stats struct {
	Entries    int   `json:"entries"`
	RecentHits int64 `json:"recent_hits"`
}

// Store is the cache contract the orchestrator depends on.
type Store interface {
	// Get returns the entry for the key, whether it is stale, and
	// whether it exists at all. Entries past hard expiry do not exist.
	Get(ctx context.Context, key string) (products []models.Product, stale bool, ok bool)
	// Set upserts the entry with the current timestamp.
	Set(ctx context.Context, key string, products []models.Product)
	ClearAll(ctx context.Context) error
	Stats(ctx context.Context) Stats
}

// Key builds the canonical cache key. Queries and locations are
// case-folded and whitespace-collapsed so trivially different spellings
// share an entry.
func Key(query, source, location string) string {
	return normalize(query) + "|" + strings.ToLower(strings.TrimSpace(source)) + "|" + normalize(location)
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
