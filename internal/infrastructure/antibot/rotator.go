package antibot

import (
	"context"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Identity is one browser persona: a user agent plus a matching header set.
type Identity struct {
	UserAgent string
	Headers   map[string]string
}

// defaultUserAgents is a pool of current desktop browser user agents.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// blockingIndicators are body substrings that mark a bot challenge page.
var blockingIndicators = []string{
	"cloudflare",
	"access denied",
	"captcha",
	"bot detection",
	"rate limit",
	"too many requests",
	"suspicious activity",
	"security check",
}

// Config holds rotation and pacing policy.
type Config struct {
	MinDelay          time.Duration
	MaxDelay          time.Duration
	RequestsPerSecond float64
	Proxies           []string
	ExtraUserAgents   []string
}

// Rotator hands out identities round-robin and paces requests per retailer.
// Rotation state is an atomic counter so concurrent adapter tasks never
// reuse the same identity back to back; there is no package-level state,
// the rotator is constructed once and injected into every adapter.
type Rotator struct {
	userAgents []string
	proxies    []string
	next       atomic.Uint64
	nextProxy  atomic.Uint64

	cfg Config

	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewRotator creates a rotator from config, appending any extra user agents
// to the built-in pool.
func NewRotator(cfg Config) *Rotator {
	if cfg.MinDelay <= 0 {
		cfg.MinDelay = 500 * time.Millisecond
	}
	if cfg.MaxDelay < cfg.MinDelay {
		cfg.MaxDelay = cfg.MinDelay
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 0.5
	}

	agents := make([]string, 0, len(defaultUserAgents)+len(cfg.ExtraUserAgents))
	agents = append(agents, defaultUserAgents...)
	agents = append(agents, cfg.ExtraUserAgents...)

	return &Rotator{
		userAgents: agents,
		proxies:    cfg.Proxies,
		cfg:        cfg,
		limiters:   make(map[string]*rate.Limiter),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NextIdentity returns the next identity in rotation.
func (r *Rotator) NextIdentity() Identity {
	n := r.next.Add(1)
	ua := r.userAgents[int(n-1)%len(r.userAgents)]

	headers := map[string]string{
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.9",
		"DNT":                       "1",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "none",
		"Cache-Control":             "max-age=0",
	}

	return Identity{UserAgent: ua, Headers: headers}
}

// NextProxy returns the next egress proxy URL in rotation, or nil when no
// proxies are configured (direct egress).
func (r *Rotator) NextProxy() *url.URL {
	if len(r.proxies) == 0 {
		return nil
	}
	n := r.nextProxy.Add(1)
	u, err := url.Parse(r.proxies[int(n-1)%len(r.proxies)])
	if err != nil {
		return nil
	}
	return u
}

// Pace blocks until the retailer's rate limiter admits another request,
// then sleeps an extra randomized delay within the configured bounds.
// Returns early with the context error on cancellation.
func (r *Rotator) Pace(ctx context.Context, retailer string) error {
	if err := r.limiter(retailer).Wait(ctx); err != nil {
		return err
	}

	delay := r.jitter()
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// limiter returns the per-retailer rate limiter, creating it on first use.
func (r *Rotator) limiter(retailer string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.limiters[retailer]
	if !ok {
		l = rate.NewLimiter(rate.Limit(r.cfg.RequestsPerSecond), 1)
		r.limiters[retailer] = l
	}
	return l
}

// jitter picks a random delay in [MinDelay, MaxDelay].
func (r *Rotator) jitter() time.Duration {
	span := r.cfg.MaxDelay - r.cfg.MinDelay
	if span <= 0 {
		return r.cfg.MinDelay
	}
	r.rngMu.Lock()
	d := time.Duration(r.rng.Int63n(int64(span)))
	r.rngMu.Unlock()
	return r.cfg.MinDelay + d
}

// IsBlocked reports whether a response looks like an anti-bot wall rather
// than a real result page.
func IsBlocked(statusCode int, body string) bool {
	switch statusCode {
	case http.StatusForbidden, http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true
	}

	bodyLower := strings.ToLower(body)
	for _, indicator := range blockingIndicators {
		if strings.Contains(bodyLower, indicator) {
			return true
		}
	}
	return false
}
