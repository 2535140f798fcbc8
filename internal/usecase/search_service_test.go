package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/thamani/backend/internal/domain"
)

// fakeCache is an in-memory CacheRepository without TTL expiry, enough to
// observe hit/miss behavior from the service.
type fakeCache struct {
	entries map[string]*domain.CachedSearch
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*domain.CachedSearch)}
}

func (f *fakeCache) Get(ctx context.Context, key string) (*domain.CachedSearch, error) {
	if entry, ok := f.entries[key]; ok {
		return entry, nil
	}
	return nil, domain.ErrCacheMiss
}

func (f *fakeCache) Set(ctx context.Context, key string, value *domain.CachedSearch, ttl time.Duration) error {
	f.entries[key] = value
	return nil
}

func (f *fakeCache) Delete(ctx context.Context, key string) error {
	delete(f.entries, key)
	return nil
}

func newTestService(adapters []domain.RetailerAdapter, cache domain.CacheRepository) *SearchService {
	return NewSearchService(
		NewAggregator(adapters, time.Second),
		NewNormalizer(NormalizerConfig{AssumeInStock: true}),
		NewMatcher(MatcherConfig{}),
		cache,
		SearchServiceConfig{CacheEnabled: cache != nil, CacheTTL: time.Minute},
	)
}

func TestSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects an empty query", func(t *testing.T) {
		svc := newTestService(nil, nil)
		_, err := svc.Search(ctx, domain.SearchQuery{Query: "   "})
		if !errors.Is(err, domain.ErrInvalidQuery) {
			t.Errorf("error = %v, want ErrInvalidQuery", err)
		}
	})

	t.Run("returns no-live-data when every retailer fails", func(t *testing.T) {
		svc := newTestService([]domain.RetailerAdapter{
			&fakeAdapter{name: "jumia", err: domain.ErrBlocked},
			&fakeAdapter{name: "kilimall", err: domain.ErrRetailerUnavailable},
		}, nil)

		_, err := svc.Search(ctx, domain.SearchQuery{Query: "galaxy a54"})
		if !errors.Is(err, domain.ErrNoLiveData) {
			t.Fatalf("error = %v, want ErrNoLiveData", err)
		}
	})

	t.Run("empty result set is not an error", func(t *testing.T) {
		// retailers responded, just with nothing relevant
		svc := newTestService([]domain.RetailerAdapter{
			&fakeAdapter{name: "jumia"},
		}, nil)

		result, err := svc.Search(ctx, domain.SearchQuery{Query: "galaxy a54"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.TotalCount != 0 || len(result.Groups) != 0 {
			t.Errorf("expected empty result, got %d groups", len(result.Groups))
		}
		if len(result.RetailersSearched) != 1 {
			t.Errorf("retailersSearched = %v, want [jumia]", result.RetailersSearched)
		}
	})

	t.Run("groups the same product across retailers", func(t *testing.T) {
		svc := newTestService([]domain.RetailerAdapter{
			&fakeAdapter{name: "jumia", listings: []domain.RawListing{
				listing("jumia", "Samsung Galaxy A54 8GB RAM 256GB", "KSh 45,000"),
			}},
			&fakeAdapter{name: "kilimall", listings: []domain.RawListing{
				listing("kilimall", "Samsung Galaxy A54 256GB 8GB RAM", "KES 47,500"),
			}},
		}, nil)

		result, err := svc.Search(ctx, domain.SearchQuery{Query: "galaxy a54"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Source != "live_scrape" {
			t.Errorf("source = %q, want live_scrape", result.Source)
		}
		if len(result.Groups) != 1 {
			t.Fatalf("len(groups) = %d, want 1", len(result.Groups))
		}
		g := result.Groups[0]
		if len(g.Members) != 2 {
			t.Fatalf("len(members) = %d, want 2", len(g.Members))
		}
		if g.Summary.MinPrice != 45000 || g.Summary.MaxPrice != 47500 {
			t.Errorf("stats = min %v max %v, want 45000/47500", g.Summary.MinPrice, g.Summary.MaxPrice)
		}
	})

	t.Run("listings without a parseable price are dropped", func(t *testing.T) {
		svc := newTestService([]domain.RetailerAdapter{
			&fakeAdapter{name: "jiji", listings: []domain.RawListing{
				listing("jiji", "Samsung Galaxy A54", "Contact for price"),
				listing("jiji", "Samsung Galaxy A34", "KSh 32,000"),
			}},
		}, nil)

		result, err := svc.Search(ctx, domain.SearchQuery{Query: "galaxy"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.TotalCount != 1 {
			t.Fatalf("totalCount = %d, want 1 (priceless listing dropped)", result.TotalCount)
		}
		if result.Groups[0].Members[0].Price != 32000 {
			t.Errorf("surviving price = %v, want 32000", result.Groups[0].Members[0].Price)
		}
	})

	t.Run("partial retailer failure is reported, not fatal", func(t *testing.T) {
		svc := newTestService([]domain.RetailerAdapter{
			&fakeAdapter{name: "jumia", listings: []domain.RawListing{
				listing("jumia", "Samsung Galaxy A54", "KSh 45,000"),
			}},
			&fakeAdapter{name: "masoko", err: domain.ErrBlocked},
		}, nil)

		result, err := svc.Search(ctx, domain.SearchQuery{Query: "galaxy a54"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.RetailersSearched) != 1 || result.RetailersSearched[0] != "jumia" {
			t.Errorf("retailersSearched = %v, want [jumia]", result.RetailersSearched)
		}
		if len(result.RetailersFailed) != 1 || result.RetailersFailed[0] != "masoko" {
			t.Errorf("retailersFailed = %v, want [masoko]", result.RetailersFailed)
		}
	})

	t.Run("price filters apply before matching", func(t *testing.T) {
		svc := newTestService([]domain.RetailerAdapter{
			&fakeAdapter{name: "jumia", listings: []domain.RawListing{
				listing("jumia", "Samsung Galaxy A54", "KSh 45,000"),
				listing("jumia", "Samsung Galaxy A05", "KSh 9,500"),
			}},
		}, nil)

		result, err := svc.Search(ctx, domain.SearchQuery{Query: "galaxy", MinPrice: 20000})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.TotalCount != 1 {
			t.Fatalf("totalCount = %d, want 1", result.TotalCount)
		}
		if result.Groups[0].Members[0].Price != 45000 {
			t.Errorf("kept price = %v, want 45000", result.Groups[0].Members[0].Price)
		}
	})

	t.Run("second identical search is served from cache", func(t *testing.T) {
		adapter := &fakeAdapter{name: "jumia", listings: []domain.RawListing{
			listing("jumia", "Samsung Galaxy A54", "KSh 45,000"),
		}}
		cache := newFakeCache()
		svc := newTestService([]domain.RetailerAdapter{adapter}, cache)

		first, err := svc.Search(ctx, domain.SearchQuery{Query: "galaxy a54"})
		if err != nil {
			t.Fatalf("first search: %v", err)
		}
		if first.Source != "live_scrape" {
			t.Fatalf("first source = %q, want live_scrape", first.Source)
		}

		second, err := svc.Search(ctx, domain.SearchQuery{Query: "  Galaxy A54 "})
		if err != nil {
			t.Fatalf("second search: %v", err)
		}
		if second.Source != "cache" {
			t.Errorf("second source = %q, want cache", second.Source)
		}
		if second.CachedAt.IsZero() {
			t.Error("cached result should carry its CachedAt timestamp")
		}
		if adapter.calls != 1 {
			t.Errorf("adapter called %d times, want 1", adapter.calls)
		}
		if len(second.Groups) != len(first.Groups) {
			t.Errorf("cached groups = %d, want %d", len(second.Groups), len(first.Groups))
		}
	})

	t.Run("different filters do not share a cache entry", func(t *testing.T) {
		adapter := &fakeAdapter{name: "jumia", listings: []domain.RawListing{
			listing("jumia", "Samsung Galaxy A54", "KSh 45,000"),
		}}
		cache := newFakeCache()
		svc := newTestService([]domain.RetailerAdapter{adapter}, cache)

		if _, err := svc.Search(ctx, domain.SearchQuery{Query: "galaxy a54"}); err != nil {
			t.Fatalf("first search: %v", err)
		}
		if _, err := svc.Search(ctx, domain.SearchQuery{Query: "galaxy a54", MaxPrice: 50000}); err != nil {
			t.Fatalf("second search: %v", err)
		}
		if adapter.calls != 2 {
			t.Errorf("adapter called %d times, want 2 (distinct cache keys)", adapter.calls)
		}
	})

	t.Run("pagination slices groups and reports hasMore", func(t *testing.T) {
		listings := []domain.RawListing{
			listing("jumia", "Samsung Galaxy A54", "KSh 45,000"),
			listing("jumia", "HP EliteBook 840 Laptop", "KSh 65,000"),
			listing("jumia", "Sony WH-1000XM4 Headphones", "KSh 28,000"),
		}
		svc := newTestService([]domain.RetailerAdapter{
			&fakeAdapter{name: "jumia", listings: listings},
		}, nil)

		result, err := svc.Search(ctx, domain.SearchQuery{Query: "electronics", Limit: 2})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.TotalCount != 3 {
			t.Errorf("totalCount = %d, want 3", result.TotalCount)
		}
		if len(result.Groups) != 2 {
			t.Errorf("len(groups) = %d, want 2", len(result.Groups))
		}
		if !result.HasMore {
			t.Error("HasMore = false, want true")
		}

		rest, err := svc.Search(ctx, domain.SearchQuery{Query: "electronics", Limit: 2, Offset: 2})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(rest.Groups) != 1 || rest.HasMore {
			t.Errorf("second page: %d groups, hasMore=%v; want 1 group, no more",
				len(rest.Groups), rest.HasMore)
		}
	})
}

func TestCompare(t *testing.T) {
	ctx := context.Background()

	svc := newTestService([]domain.RetailerAdapter{
		&fakeAdapter{name: "jumia", listings: []domain.RawListing{
			listing("jumia", "Samsung Galaxy A54 256GB", "KSh 45,000"),
			listing("jumia", "HP EliteBook 840 Laptop", "KSh 65,000"),
		}},
		&fakeAdapter{name: "kilimall", listings: []domain.RawListing{
			listing("kilimall", "Samsung Galaxy A54 256GB", "KES 47,500"),
		}},
	}, nil)

	result, err := svc.Compare(ctx, domain.SearchQuery{Query: "galaxy a54"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Groups) != 1 {
		t.Fatalf("len(groups) = %d, want 1 (singletons excluded)", len(result.Groups))
	}
	g := result.Groups[0]
	if len(g.Members) != 2 {
		t.Fatalf("len(members) = %d, want 2", len(g.Members))
	}
	if g.Summary.Savings != 2500 {
		t.Errorf("savings = %v, want 2500", g.Summary.Savings)
	}
}

func TestCacheKey(t *testing.T) {
	svc := newTestService(nil, nil)

	t.Run("case and punctuation insensitive", func(t *testing.T) {
		a := svc.cacheKey(domain.SearchQuery{Query: "Samsung Galaxy-A54!"})
		b := svc.cacheKey(domain.SearchQuery{Query: "samsung galaxya54"})
		if a != b {
			t.Errorf("keys differ:\n%s\n%s", a, b)
		}
	})

	t.Run("pagination excluded", func(t *testing.T) {
		a := svc.cacheKey(domain.SearchQuery{Query: "galaxy", Limit: 10, Offset: 0})
		b := svc.cacheKey(domain.SearchQuery{Query: "galaxy", Limit: 50, Offset: 20})
		if a != b {
			t.Errorf("pagination should not split cache entries:\n%s\n%s", a, b)
		}
	})

	t.Run("filters included", func(t *testing.T) {
		a := svc.cacheKey(domain.SearchQuery{Query: "galaxy"})
		b := svc.cacheKey(domain.SearchQuery{Query: "galaxy", Brand: "samsung"})
		if a == b {
			t.Error("brand filter should produce a distinct cache key")
		}
	})
}
