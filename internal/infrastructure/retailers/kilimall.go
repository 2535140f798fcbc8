package retailers

import (
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/thamani/backend/internal/domain"
	"github.com/thamani/backend/internal/infrastructure/antibot"
)

// NewKilimall creates the adapter for Kilimall Kenya.
func NewKilimall(rot *antibot.Rotator, opts Options) *Adapter {
	return newAdapter(site{
		name:    "kilimall",
		baseURL: "https://www.kilimall.co.ke",
		searchURL: func(base, query string, page int) string {
			u := fmt.Sprintf("%s/search?q=%s", base, url.QueryEscape(query))
			if page > 1 {
				u = fmt.Sprintf("%s&page=%d", u, page)
			}
			return u
		},
		// product cards link into /goods/ pages
		listingSelector: ".product-item, .listing-item, li[class*=product]",
		extract:         extractKilimallListing,
		extractDetail:   extractKilimallDetail,
	}, rot, opts)
}

func extractKilimallListing(e *colly.HTMLElement) (domain.RawListing, error) {
	s := e.DOM

	title := firstText(s, ".product-title", ".title", ".goods-name", "h3")
	if title == "" {
		return domain.RawListing{}, fmt.Errorf("listing without title")
	}

	href := firstAttr(s, "href", "a[href*=\"/goods/\"]", "a")
	if href == "" {
		return domain.RawListing{}, fmt.Errorf("listing %q without product link", title)
	}

	return domain.RawListing{
		Title:      title,
		PriceText:  firstText(s, ".product-price", ".price", ".sale-price", ".current-price"),
		Currency:   "KES",
		URL:        e.Request.AbsoluteURL(href),
		ImageURL:   imageSrc(s, ".product-image img", ".goods-img img", "img"),
		StockText:  firstText(s, ".stock", ".sold-out"),
		RatingText: firstText(s, ".rating", ".stars"),
		ReviewText: firstText(s, ".reviews", ".review-count"),
	}, nil
}

func extractKilimallDetail(doc *goquery.Document, pageURL string) (domain.RawListing, error) {
	s := doc.Selection

	title := firstText(s, "h1.product-title", "h1", ".goods-name")
	if title == "" {
		return domain.RawListing{}, fmt.Errorf("detail page without title: %s", pageURL)
	}

	return domain.RawListing{
		Title:      title,
		PriceText:  firstText(s, ".product-price", ".price", ".sale-price"),
		Currency:   "KES",
		URL:        pageURL,
		ImageURL:   imageSrc(s, ".product-gallery img", ".goods-img img", "img"),
		StockText:  firstText(s, ".stock-status", ".stock", ".sold-out"),
		RatingText: firstText(s, ".rating", ".stars"),
		ReviewText: firstText(s, ".reviews", ".review-count"),
	}, nil
}
