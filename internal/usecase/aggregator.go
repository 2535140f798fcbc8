package usecase

import (
	"context"
	"errors"
	"log"
	"sort"
	"time"

	"github.com/thamani/backend/internal/domain"
)

// graceWindow covers the gap between an adapter's context expiring and the
// adapter noticing; after that the dispatcher stops waiting for it.
const graceWindow = 500 * time.Millisecond

// Aggregator fans one query out to every configured adapter concurrently.
// The fan-out is fixed at the number of retailers; each adapter runs under
// an independent deadline, so the overall dispatch is bounded by the
// slowest allowed adapter, never the sum.
type Aggregator struct {
	adapters       []domain.RetailerAdapter
	adapterTimeout time.Duration
}

// NewAggregator creates an aggregator over the given adapters.
func NewAggregator(adapters []domain.RetailerAdapter, adapterTimeout time.Duration) *Aggregator {
	if adapterTimeout <= 0 {
		adapterTimeout = 12 * time.Second
	}
	return &Aggregator{
		adapters:       adapters,
		adapterTimeout: adapterTimeout,
	}
}

// Retailers returns the names of the configured adapters in order.
func (a *Aggregator) Retailers() []string {
	names := make([]string, 0, len(a.adapters))
	for _, adapter := range a.adapters {
		names = append(names, adapter.Name())
	}
	return names
}

// Dispatch invokes every adapter concurrently and combines whatever
// completed in time. Partial failure is a normal outcome; a slow adapter
// is abandoned and its partial result discarded.
//
// The combined listing order is stable for a given completed set: grouped
// by adapter configuration order, site order preserved within a retailer.
func (a *Aggregator) Dispatch(ctx context.Context, query domain.SearchQuery) domain.AggregateResult {
	type outcome struct {
		name     string
		listings []domain.RawListing
		err      error
	}

	results := make(chan outcome, len(a.adapters))
	for _, adapter := range a.adapters {
		go func(adapter domain.RetailerAdapter) {
			actx, cancel := context.WithTimeout(ctx, a.adapterTimeout)
			defer cancel()

			listings, err := adapter.Search(actx, query)
			results <- outcome{name: adapter.Name(), listings: listings, err: err}
		}(adapter)
	}

	byRetailer := make(map[string][]domain.RawListing)
	succeeded := make(map[string]bool)

	deadline := time.NewTimer(a.adapterTimeout + graceWindow)
	defer deadline.Stop()

	received := 0
collect:
	for received < len(a.adapters) {
		select {
		case out := <-results:
			received++
			switch {
			case out.err != nil:
				if errors.Is(out.err, domain.ErrBlocked) {
					// logged distinctly for operational visibility
					log.Printf("[DISPATCH] %s: %v", out.name, out.err)
				} else {
					log.Printf("[DISPATCH] %s failed: %v", out.name, out.err)
				}
			default:
				byRetailer[out.name] = out.listings
				succeeded[out.name] = true
				log.Printf("[DISPATCH] %s: %d listings", out.name, len(out.listings))
			}
		case <-deadline.C:
			log.Printf("[DISPATCH] abandoning %d unfinished adapter(s)", len(a.adapters)-received)
			break collect
		}
	}

	result := domain.AggregateResult{
		Succeeded: make([]string, 0, len(a.adapters)),
		Failed:    make([]string, 0, len(a.adapters)),
	}
	for _, adapter := range a.adapters {
		name := adapter.Name()
		if succeeded[name] {
			result.Succeeded = append(result.Succeeded, name)
			result.Listings = append(result.Listings, byRetailer[name]...)
		} else {
			result.Failed = append(result.Failed, name)
		}
	}
	sort.Strings(result.Succeeded)
	sort.Strings(result.Failed)

	return result
}
