package domain

import (
	"context"
	"time"
)

// RetailerAdapter translates one retailer's site into raw listings.
// Implementations must be safe for concurrent use; the aggregator invokes
// every configured adapter in parallel.
type RetailerAdapter interface {
	// Name returns the retailer identifier, e.g. "jumia".
	Name() string

	// Search fetches up to query.MaxPages result pages and returns the
	// listings in site order. Failures are returned as errors, never panics;
	// the aggregator treats them as an empty contribution.
	Search(ctx context.Context, query SearchQuery) ([]RawListing, error)

	// FetchDetail fetches a single listing page.
	FetchDetail(ctx context.Context, url string) (*RawListing, error)
}

// CacheRepository defines the interface for caching search results
type CacheRepository interface {
	Get(ctx context.Context, key string) (*CachedSearch, error)
	Set(ctx context.Context, key string, value *CachedSearch, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CachedSearch is a completed comparison stored under a normalized query key.
type CachedSearch struct {
	Groups            []MatchGroup `json:"groups"`
	RetailersSearched []string     `json:"retailersSearched"`
	RetailersFailed   []string     `json:"retailersFailed"`
	CachedAt          time.Time    `json:"cachedAt"`
}
