package usecase

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/thamani/backend/internal/domain"
)

// Package-level compiled regex patterns for cache key normalization
var (
	nonAlphanumericRegex = regexp.MustCompile(`[^a-z0-9\s]`)
	multipleSpacesRegex  = regexp.MustCompile(`\s+`)
)

// SearchServiceConfig holds configuration for the search service
type SearchServiceConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

// SearchService orchestrates the full comparison pipeline:
// cache lookup -> concurrent scrape -> normalize -> filter -> match -> cache.
type SearchService struct {
	aggregator   *Aggregator
	normalizer   *Normalizer
	matcher      *Matcher
	cache        domain.CacheRepository
	cacheEnabled bool
	cacheTTL     time.Duration
}

// NewSearchService creates a search service with dependencies.
func NewSearchService(
	aggregator *Aggregator,
	normalizer *Normalizer,
	matcher *Matcher,
	cache domain.CacheRepository,
	config SearchServiceConfig,
) *SearchService {
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 5 * time.Minute
	}

	return &SearchService{
		aggregator:   aggregator,
		normalizer:   normalizer,
		matcher:      matcher,
		cache:        cache,
		cacheEnabled: config.CacheEnabled && cache != nil,
		cacheTTL:     cacheTTL,
	}
}

// Retailers returns the retailer names this service searches.
func (s *SearchService) Retailers() []string {
	return s.aggregator.Retailers()
}

// Search runs the searchProducts operation.
// Returns ErrInvalidQuery for an empty query and ErrNoLiveData when every
// retailer failed and nothing cached is available; partial retailer failure
// is a normal outcome reported in the result.
func (s *SearchService) Search(ctx context.Context, query domain.SearchQuery) (*domain.SearchResult, error) {
	if err := query.Normalize(); err != nil {
		return nil, err
	}

	searchID := uuid.NewString()
	cacheKey := s.cacheKey(query)

	if s.cacheEnabled {
		if cached, err := s.cache.Get(ctx, cacheKey); err == nil {
			log.Printf("[SEARCH] %s: cache hit for %q (age %s)", searchID, query.Query, time.Since(cached.CachedAt).Round(time.Second))
			return s.buildResult(searchID, query, cached.Groups, cached.RetailersSearched, cached.RetailersFailed, "cache", cached.CachedAt), nil
		}
	}

	log.Printf("[SEARCH] %s: live scrape for %q", searchID, query.Query)
	aggregate := s.aggregator.Dispatch(ctx, query)

	if len(aggregate.Succeeded) == 0 {
		return nil, fmt.Errorf("%w: %d retailers attempted", domain.ErrNoLiveData, len(aggregate.Failed))
	}

	products := s.normalizer.NormalizeAll(aggregate.Listings)
	products = applyFilters(products, query)
	groups := s.matcher.Match(products)

	log.Printf("[SEARCH] %s: %d listings -> %d products -> %d groups (%d/%d retailers)",
		searchID, len(aggregate.Listings), len(products), len(groups),
		len(aggregate.Succeeded), len(aggregate.Succeeded)+len(aggregate.Failed))

	if s.cacheEnabled {
		entry := &domain.CachedSearch{
			Groups:            groups,
			RetailersSearched: aggregate.Succeeded,
			RetailersFailed:   aggregate.Failed,
			CachedAt:          time.Now(),
		}
		if err := s.cache.Set(ctx, cacheKey, entry, s.cacheTTL); err != nil {
			log.Printf("[SEARCH] %s: cache write failed: %v", searchID, err)
		}
	}

	return s.buildResult(searchID, query, groups, aggregate.Succeeded, aggregate.Failed, "live_scrape", time.Time{}), nil
}

// Compare runs the same pipeline but keeps only groups spanning more than
// one retailer, the ones where a price comparison is actually possible.
func (s *SearchService) Compare(ctx context.Context, query domain.SearchQuery) (*domain.SearchResult, error) {
	// comparison filters after grouping, so fetch the full result set
	query.Limit = domain.MaxLimit
	query.Offset = 0

	result, err := s.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	multi := make([]domain.MatchGroup, 0, len(result.Groups))
	for _, g := range result.Groups {
		if len(g.Members) > 1 {
			multi = append(multi, g)
		}
	}

	result.Groups = multi
	result.TotalCount = len(multi)
	result.HasMore = false
	return result, nil
}

// buildResult applies pagination and assembles the caller-facing result.
func (s *SearchService) buildResult(
	searchID string,
	query domain.SearchQuery,
	groups []domain.MatchGroup,
	searched, failed []string,
	source string,
	cachedAt time.Time,
) *domain.SearchResult {
	total := len(groups)

	start := query.Offset
	if start > total {
		start = total
	}
	end := start + query.Limit
	if end > total {
		end = total
	}

	return &domain.SearchResult{
		SearchID:          searchID,
		Groups:            groups[start:end],
		TotalCount:        total,
		HasMore:           end < total,
		Source:            source,
		CachedAt:          cachedAt,
		RetailersSearched: searched,
		RetailersFailed:   failed,
	}
}

// cacheKey builds a normalized cache key from the query and active filters.
// Pagination is excluded: one cached comparison serves every page.
func (s *SearchService) cacheKey(query domain.SearchQuery) string {
	return fmt.Sprintf("search:%s:%s:%s:%g:%g:%d",
		normalizeForCacheKey(query.Query),
		normalizeForCacheKey(query.Category),
		normalizeForCacheKey(query.Brand),
		query.MinPrice,
		query.MaxPrice,
		query.MaxPages,
	)
}

// normalizeForCacheKey normalizes a string for use as cache key component.
// Converts to lowercase, removes special characters, and trims whitespace.
func normalizeForCacheKey(s string) string {
	if s == "" {
		return ""
	}
	result := strings.ToLower(s)
	result = nonAlphanumericRegex.ReplaceAllString(result, "")
	result = multipleSpacesRegex.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

// applyFilters drops products outside the query's optional constraints.
func applyFilters(products []domain.NormalizedProduct, query domain.SearchQuery) []domain.NormalizedProduct {
	brand := strings.ToLower(strings.TrimSpace(query.Brand))
	category := strings.ToLower(strings.TrimSpace(query.Category))

	if brand == "" && category == "" && query.MinPrice <= 0 && query.MaxPrice <= 0 {
		return products
	}

	kept := make([]domain.NormalizedProduct, 0, len(products))
	for _, p := range products {
		if brand != "" && p.Brand != brand {
			continue
		}
		if category != "" && extractCategory(p.Name) != category {
			continue
		}
		if query.MinPrice > 0 && p.Price < query.MinPrice {
			continue
		}
		if query.MaxPrice > 0 && p.Price > query.MaxPrice {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}
