package retailers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thamani/backend/internal/domain"
	"github.com/thamani/backend/internal/infrastructure/antibot"
)

const jumiaResultsPage = `<!DOCTYPE html>
<html><body>
<section>
  <article class="prd">
    <a class="core" href="/samsung-galaxy-a54-256gb.html">
      <img class="img" data-src="https://img.example/a54.jpg"/>
      <h3 class="name">Samsung Galaxy A54 8GB RAM 256GB KSh 45,000 (128)</h3>
      <div class="prc">KSh 45,000</div>
      <div class="stars _s">4.3 out of 5</div>
      <div class="rev">(128)</div>
    </a>
  </article>
  <article class="prd">
    <a class="core" href="/hp-elitebook-840.html">
      <h3 class="name">HP EliteBook 840 G8 Core i5</h3>
      <div class="prc">KSh 65,000</div>
      <div class="stk">Out of stock</div>
    </a>
  </article>
  <article class="prd">
    <a class="core" href="/mystery-item.html">
      <div class="prc">KSh 1,000</div>
    </a>
  </article>
</section>
</body></html>`

func testRotator() *antibot.Rotator {
	return antibot.NewRotator(antibot.Config{
		MinDelay:          time.Millisecond,
		MaxDelay:          2 * time.Millisecond,
		RequestsPerSecond: 1000,
	})
}

func TestJumiaSearch(t *testing.T) {
	t.Run("parses listings from a results page", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "samsung galaxy a54", r.URL.Query().Get("q"))
			if r.URL.Query().Get("page") != "" {
				fmt.Fprint(w, "<html><body></body></html>")
				return
			}
			fmt.Fprint(w, jumiaResultsPage)
		}))
		defer server.Close()

		adapter := NewJumia(testRotator(), Options{BaseURL: server.URL})

		listings, err := adapter.Search(context.Background(), domain.SearchQuery{Query: "samsung galaxy a54"})
		require.NoError(t, err)
		// the listing without a title is skipped, the others survive
		require.Len(t, listings, 2)

		first := listings[0]
		assert.Equal(t, "jumia", first.Retailer)
		assert.Equal(t, "Samsung Galaxy A54 8GB RAM 256GB", first.Title, "price and review fragments should be stripped from the title")
		assert.Equal(t, "KSh 45,000", first.PriceText)
		assert.Equal(t, "KES", first.Currency)
		assert.Equal(t, server.URL+"/samsung-galaxy-a54-256gb.html", first.URL)
		assert.Equal(t, "https://img.example/a54.jpg", first.ImageURL)
		assert.Equal(t, "4.3 out of 5", first.RatingText)
		assert.Equal(t, "(128)", first.ReviewText)
		assert.False(t, first.ScrapedAt.IsZero())

		second := listings[1]
		assert.Equal(t, "HP EliteBook 840 G8 Core i5", second.Title)
		assert.Equal(t, "Out of stock", second.StockText)
	})

	t.Run("stops paging when a page comes back empty", func(t *testing.T) {
		var requests atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
			if r.URL.Query().Get("page") == "" {
				fmt.Fprint(w, jumiaResultsPage)
				return
			}
			fmt.Fprint(w, "<html><body></body></html>")
		}))
		defer server.Close()

		adapter := NewJumia(testRotator(), Options{BaseURL: server.URL, DefaultMaxPages: 5})

		listings, err := adapter.Search(context.Background(), domain.SearchQuery{Query: "galaxy"})
		require.NoError(t, err)
		assert.Len(t, listings, 2)
		assert.Equal(t, int32(2), requests.Load(), "paging should stop after the first empty page")
	})

	t.Run("rejects an empty query without hitting the network", func(t *testing.T) {
		adapter := NewJumia(testRotator(), Options{BaseURL: "http://127.0.0.1:0"})
		_, err := adapter.Search(context.Background(), domain.SearchQuery{Query: "   "})
		assert.ErrorIs(t, err, domain.ErrInvalidQuery)
	})

	t.Run("persistent bot challenge yields ErrBlocked", func(t *testing.T) {
		var requests atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests.Add(1)
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		adapter := NewJumia(testRotator(), Options{BaseURL: server.URL})

		_, err := adapter.Search(context.Background(), domain.SearchQuery{Query: "galaxy"})
		assert.ErrorIs(t, err, domain.ErrBlocked)
		assert.Equal(t, int32(2), requests.Load(), "blocked search should retry exactly once")
	})

	t.Run("recovers from a challenge under a fresh identity", func(t *testing.T) {
		var requests atomic.Int32
		agents := make(chan string, 4)
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			agents <- r.Header.Get("User-Agent")
			if requests.Add(1) == 1 {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			if r.URL.Query().Get("page") != "" {
				fmt.Fprint(w, "<html><body></body></html>")
				return
			}
			fmt.Fprint(w, jumiaResultsPage)
		}))
		defer server.Close()

		adapter := NewJumia(testRotator(), Options{BaseURL: server.URL})

		listings, err := adapter.Search(context.Background(), domain.SearchQuery{Query: "galaxy"})
		require.NoError(t, err)
		assert.Len(t, listings, 2)

		first, second := <-agents, <-agents
		assert.NotEqual(t, first, second, "retry should run under a rotated user agent")
	})

	t.Run("challenge page body is detected even with status 200", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "<html><body>Please complete this captcha to continue</body></html>")
		}))
		defer server.Close()

		adapter := NewJumia(testRotator(), Options{BaseURL: server.URL})

		_, err := adapter.Search(context.Background(), domain.SearchQuery{Query: "galaxy"})
		assert.ErrorIs(t, err, domain.ErrBlocked)
	})

	t.Run("transient server error is retried with backoff", func(t *testing.T) {
		var requests atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if requests.Add(1) == 1 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			if r.URL.Query().Get("page") != "" {
				fmt.Fprint(w, "<html><body></body></html>")
				return
			}
			fmt.Fprint(w, jumiaResultsPage)
		}))
		defer server.Close()

		adapter := NewJumia(testRotator(), Options{BaseURL: server.URL})

		listings, err := adapter.Search(context.Background(), domain.SearchQuery{Query: "galaxy"})
		require.NoError(t, err)
		assert.Len(t, listings, 2)
	})

	t.Run("unreachable retailer yields ErrRetailerUnavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		adapter := NewJumia(testRotator(), Options{BaseURL: server.URL})

		_, err := adapter.Search(context.Background(), domain.SearchQuery{Query: "galaxy"})
		assert.ErrorIs(t, err, domain.ErrRetailerUnavailable)
	})
}

func TestJumiaFetchDetail(t *testing.T) {
	t.Run("parses a product page", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `<!DOCTYPE html>
<html><body>
  <h1 class="-fs20">Samsung Galaxy A54 8GB RAM 256GB</h1>
  <div class="-b -ltr -tal -fs24">KSh 44,500</div>
  <div class="-df -i-ctr -fs12">In stock</div>
  <div id="imgs"><img src="https://img.example/a54-large.jpg"/></div>
</body></html>`)
		}))
		defer server.Close()

		adapter := NewJumia(testRotator(), Options{})

		listing, err := adapter.FetchDetail(context.Background(), server.URL+"/samsung-galaxy-a54.html")
		require.NoError(t, err)
		assert.Equal(t, "jumia", listing.Retailer)
		assert.Equal(t, "Samsung Galaxy A54 8GB RAM 256GB", listing.Title)
		assert.Equal(t, "KSh 44,500", listing.PriceText)
		assert.Equal(t, "In stock", listing.StockText)
		assert.Equal(t, "https://img.example/a54-large.jpg", listing.ImageURL)
	})

	t.Run("blocked detail page yields ErrBlocked", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer server.Close()

		adapter := NewJumia(testRotator(), Options{})

		_, err := adapter.FetchDetail(context.Background(), server.URL+"/item.html")
		assert.ErrorIs(t, err, domain.ErrBlocked)
	})
}

func TestCleanJumiaTitle(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Samsung Galaxy A54 KSh 45,000", "Samsung Galaxy A54"},
		{"Samsung Galaxy A54 25% (300)", "Samsung Galaxy A54"},
		{"Samsung  Galaxy   A54", "Samsung Galaxy A54"},
		{"Samsung Galaxy A54 4 out of 5", "Samsung Galaxy A54"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanJumiaTitle(tt.input), "input %q", tt.input)
	}
}
