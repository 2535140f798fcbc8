package retailers

import (
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/thamani/backend/internal/domain"
	"github.com/thamani/backend/internal/infrastructure/antibot"
)

// NewMasoko creates the adapter for Masoko (Safaricom's Magento storefront).
func NewMasoko(rot *antibot.Rotator, opts Options) *Adapter {
	return newAdapter(site{
		name:    "masoko",
		baseURL: "https://www.masoko.com",
		searchURL: func(base, query string, page int) string {
			u := fmt.Sprintf("%s/catalogsearch/result/?q=%s", base, url.QueryEscape(query))
			if page > 1 {
				u = fmt.Sprintf("%s&p=%d", u, page)
			}
			return u
		},
		listingSelector: "li.product-item, .product-item",
		extract:         extractMasokoListing,
		extractDetail:   extractMasokoDetail,
	}, rot, opts)
}

func extractMasokoListing(e *colly.HTMLElement) (domain.RawListing, error) {
	s := e.DOM

	title := firstText(s, ".product-item-link", ".product-item-name", ".product-name")
	if title == "" {
		return domain.RawListing{}, fmt.Errorf("listing without title")
	}

	href := firstAttr(s, "href", "a.product-item-link", "a.product-item-photo", "a")
	if href == "" {
		return domain.RawListing{}, fmt.Errorf("listing %q without product link", title)
	}

	return domain.RawListing{
		Title:      title,
		PriceText:  firstText(s, "[data-price-type=\"finalPrice\"] .price", ".special-price .price", ".price"),
		Currency:   "KES",
		URL:        e.Request.AbsoluteURL(href),
		ImageURL:   imageSrc(s, ".product-image-photo", "img"),
		StockText:  firstText(s, ".stock.unavailable", ".stock"),
		RatingText: firstText(s, ".rating-result", ".rating"),
		ReviewText: firstText(s, ".reviews-actions", ".review-count"),
	}, nil
}

func extractMasokoDetail(doc *goquery.Document, pageURL string) (domain.RawListing, error) {
	s := doc.Selection

	title := firstText(s, ".page-title .base", "h1.page-title", "h1")
	if title == "" {
		return domain.RawListing{}, fmt.Errorf("detail page without title: %s", pageURL)
	}

	return domain.RawListing{
		Title:      title,
		PriceText:  firstText(s, "[data-price-type=\"finalPrice\"] .price", ".special-price .price", ".price"),
		Currency:   "KES",
		URL:        pageURL,
		ImageURL:   imageSrc(s, ".gallery-placeholder img", ".product.media img", "img"),
		StockText:  firstText(s, ".stock.unavailable", ".stock.available", ".stock"),
		RatingText: firstText(s, ".rating-result", ".rating"),
		ReviewText: firstText(s, ".reviews-actions", ".review-count"),
	}, nil
}
