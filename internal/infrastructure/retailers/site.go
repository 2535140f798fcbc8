package retailers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/thamani/backend/internal/domain"
	"github.com/thamani/backend/internal/infrastructure/antibot"
)

const maxTransientRetries = 1

// site describes one retailer's markup: where to search and how to read a
// listing out of the result page. Each retailer file supplies one of these.
type site struct {
	name            string
	baseURL         string
	searchURL       func(baseURL, query string, page int) string
	listingSelector string
	extract         func(e *colly.HTMLElement) (domain.RawListing, error)
	extractDetail   func(doc *goquery.Document, pageURL string) (domain.RawListing, error)
}

// Options configures an adapter. BaseURL overrides the retailer's production
// URL (used by tests to point at a local fixture server).
type Options struct {
	BaseURL         string
	RequestTimeout  time.Duration
	DefaultMaxPages int
}

// Adapter runs one retailer's site definition through the shared scraping
// engine: identity rotation, pacing, transient retry with backoff, and a
// single rotate-and-retry on a detected bot challenge.
type Adapter struct {
	site       site
	rot        *antibot.Rotator
	timeout    time.Duration
	maxPages   int
	httpClient *http.Client
}

func newAdapter(s site, rot *antibot.Rotator, opts Options) *Adapter {
	if opts.BaseURL != "" {
		s.baseURL = opts.BaseURL
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	maxPages := opts.DefaultMaxPages
	if maxPages <= 0 {
		maxPages = 2
	}

	return &Adapter{
		site:       s,
		rot:        rot,
		timeout:    timeout,
		maxPages:   maxPages,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name returns the retailer identifier.
func (a *Adapter) Name() string {
	return a.site.name
}

// Search fetches up to query.MaxPages result pages and returns listings in
// site order. A detected block is retried once under a fresh identity; a
// second block gives up with ErrBlocked.
func (a *Adapter) Search(ctx context.Context, query domain.SearchQuery) ([]domain.RawListing, error) {
	if strings.TrimSpace(query.Query) == "" {
		return nil, domain.ErrInvalidQuery
	}

	maxPages := query.MaxPages
	if maxPages <= 0 {
		maxPages = a.maxPages
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		listings, err := a.collect(ctx, query.Query, maxPages)
		if errors.Is(err, domain.ErrBlocked) && attempt == 0 {
			log.Printf("[SCRAPE] %s: challenge detected, retrying with rotated identity", a.site.name)
			lastErr = err
			continue
		}
		return listings, err
	}
	return nil, lastErr
}

// collect runs one identity's worth of page fetches.
func (a *Adapter) collect(ctx context.Context, query string, maxPages int) ([]domain.RawListing, error) {
	identity := a.rot.NextIdentity()

	c := colly.NewCollector(colly.UserAgent(identity.UserAgent))
	c.SetRequestTimeout(a.timeout)

	if proxy := a.rot.NextProxy(); proxy != nil {
		if err := c.SetProxy(proxy.String()); err != nil {
			log.Printf("[SCRAPE] %s: bad proxy %q: %v", a.site.name, proxy, err)
		}
	}

	c.OnRequest(func(r *colly.Request) {
		for k, v := range identity.Headers {
			r.Headers.Set(k, v)
		}
	})

	var (
		mu       sync.Mutex
		listings []domain.RawListing
		blocked  bool
		pageErr  error
		retries  = make(map[string]int)
	)

	scrapedAt := time.Now()

	c.OnHTML(a.site.listingSelector, func(e *colly.HTMLElement) {
		listing, err := a.site.extract(e)
		if err != nil {
			// one malformed listing must not sink the rest of the page
			log.Printf("[SCRAPE] %s: skipping malformed listing: %v", a.site.name, err)
			return
		}
		listing.Retailer = a.site.name
		listing.ScrapedAt = scrapedAt

		mu.Lock()
		listings = append(listings, listing)
		mu.Unlock()
	})

	c.OnResponse(func(r *colly.Response) {
		if antibot.IsBlocked(r.StatusCode, string(r.Body)) {
			mu.Lock()
			blocked = true
			mu.Unlock()
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		if r != nil && antibot.IsBlocked(r.StatusCode, string(r.Body)) {
			mu.Lock()
			blocked = true
			mu.Unlock()
			return
		}

		url := r.Request.URL.String()
		mu.Lock()
		attempt := retries[url]
		retries[url] = attempt + 1
		mu.Unlock()

		if attempt < maxTransientRetries {
			time.Sleep(time.Duration(attempt+1) * 500 * time.Millisecond)
			if rerr := r.Request.Retry(); rerr != nil {
				log.Printf("[SCRAPE] %s: retry failed for %s: %v", a.site.name, url, rerr)
			}
			return
		}

		mu.Lock()
		pageErr = err
		mu.Unlock()
	})

	for page := 1; page <= maxPages; page++ {
		select {
		case <-ctx.Done():
			return listings, ctx.Err()
		default:
		}

		if err := a.rot.Pace(ctx, a.site.name); err != nil {
			return listings, err
		}

		before := len(listings)
		pageURL := a.site.searchURL(a.site.baseURL, query, page)
		if err := c.Visit(pageURL); err != nil {
			mu.Lock()
			pageErr = err
			mu.Unlock()
		}
		c.Wait()

		if blocked {
			return nil, fmt.Errorf("%w: %s page %d", domain.ErrBlocked, a.site.name, page)
		}

		// an empty page means the result set is exhausted
		if len(listings) == before {
			break
		}
	}

	if len(listings) == 0 && pageErr != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrRetailerUnavailable, a.site.name, pageErr)
	}

	return listings, nil
}

// FetchDetail fetches a single product page and extracts one listing from it.
func (a *Adapter) FetchDetail(ctx context.Context, url string) (*domain.RawListing, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		listing, err := a.fetchDetailOnce(ctx, url)
		if errors.Is(err, domain.ErrBlocked) && attempt == 0 {
			lastErr = err
			continue
		}
		return listing, err
	}
	return nil, lastErr
}

func (a *Adapter) fetchDetailOnce(ctx context.Context, url string) (*domain.RawListing, error) {
	if err := a.rot.Pace(ctx, a.site.name); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	identity := a.rot.NextIdentity()
	req.Header.Set("User-Agent", identity.UserAgent)
	for k, v := range identity.Headers {
		req.Header.Set(k, v)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrRetailerUnavailable, a.site.name, err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrRetailerUnavailable, a.site.name, err)
	}

	if antibot.IsBlocked(resp.StatusCode, docText(doc)) {
		return nil, fmt.Errorf("%w: %s detail page", domain.ErrBlocked, a.site.name)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: status %d", domain.ErrRetailerUnavailable, a.site.name, resp.StatusCode)
	}

	listing, err := a.site.extractDetail(doc, url)
	if err != nil {
		return nil, err
	}
	listing.Retailer = a.site.name
	listing.ScrapedAt = time.Now()
	return &listing, nil
}

func docText(doc *goquery.Document) string {
	if doc == nil {
		return ""
	}
	return doc.Text()
}

// firstText returns the first non-empty trimmed text among the selectors.
// Retail markup shifts often, so extractors probe a chain of selectors
// instead of relying on a single one.
func firstText(s *goquery.Selection, selectors ...string) string {
	for _, sel := range selectors {
		if text := strings.TrimSpace(s.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// firstAttr returns the first non-empty attribute value among the selectors.
func firstAttr(s *goquery.Selection, attr string, selectors ...string) string {
	for _, sel := range selectors {
		if val, ok := s.Find(sel).First().Attr(attr); ok && strings.TrimSpace(val) != "" {
			return strings.TrimSpace(val)
		}
	}
	return ""
}

// imageSrc returns a usable image URL, preferring lazy-load attributes.
func imageSrc(s *goquery.Selection, selectors ...string) string {
	if src := firstAttr(s, "data-src", selectors...); src != "" {
		return src
	}
	return firstAttr(s, "src", selectors...)
}
