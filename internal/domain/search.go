package domain

import (
	"strings"
	"time"
)

// MaxLimit bounds the page size a caller may request.
const MaxLimit = 100

// SearchQuery is a user-supplied search request.
type SearchQuery struct {
	Query    string  `json:"query" binding:"required"`
	Category string  `json:"category,omitempty"`
	Brand    string  `json:"brand,omitempty"`
	MinPrice float64 `json:"minPrice,omitempty"`
	MaxPrice float64 `json:"maxPrice,omitempty"`
	Limit    int     `json:"limit,omitempty"`
	Offset   int     `json:"offset,omitempty"`
	MaxPages int     `json:"maxPages,omitempty"` // pages fetched per retailer
}

// Normalize trims the query string and clamps pagination bounds.
// Returns ErrInvalidQuery when no query text remains.
func (q *SearchQuery) Normalize() error {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return ErrInvalidQuery
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return nil
}

// AggregateResult is the combined output of one fan-out across adapters.
type AggregateResult struct {
	Listings  []RawListing
	Succeeded []string
	Failed    []string
}

// GroupSummary holds the derived price statistics for a MatchGroup.
// Best-price selection considers in-stock members only.
type GroupSummary struct {
	MinPrice       float64 `json:"minPrice"`
	MaxPrice       float64 `json:"maxPrice"`
	AvgPrice       float64 `json:"avgPrice"`
	BestPriceIndex int     `json:"bestPriceIndex"` // index into Members; -1 when no in-stock member
	Savings        float64 `json:"savings"`
	SavingsPercent float64 `json:"savingsPercent"`
}

// MatchGroup is a set of normalized listings judged to be the same product
// across retailers. A retailer appears at most once per group.
type MatchGroup struct {
	Name    string              `json:"name"` // canonical display name
	Members []NormalizedProduct `json:"members"`
	Summary GroupSummary        `json:"summary"`
}

// Retailers returns the distinct retailer names represented in the group.
func (g *MatchGroup) Retailers() []string {
	names := make([]string, 0, len(g.Members))
	for _, m := range g.Members {
		names = append(names, m.Retailer)
	}
	return names
}

// SearchResult is the caller-facing outcome of one searchProducts operation.
type SearchResult struct {
	SearchID          string       `json:"searchId"`
	Groups            []MatchGroup `json:"groups"`
	TotalCount        int          `json:"totalCount"`
	HasMore           bool         `json:"hasMore"`
	Source            string       `json:"source"` // "live_scrape" or "cache"
	CachedAt          time.Time    `json:"cachedAt,omitempty"`
	RetailersSearched []string     `json:"retailersSearched"`
	RetailersFailed   []string     `json:"retailersFailed"`
}
