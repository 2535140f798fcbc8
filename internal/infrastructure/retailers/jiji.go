package retailers

import (
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/thamani/backend/internal/domain"
	"github.com/thamani/backend/internal/infrastructure/antibot"
)

// NewJiji creates the adapter for Jiji Kenya. Jiji is a classifieds site:
// listings are individual ads, prices are frequently "Contact for price",
// and there are no ratings or review counts.
func NewJiji(rot *antibot.Rotator, opts Options) *Adapter {
	return newAdapter(site{
		name:    "jiji",
		baseURL: "https://jiji.co.ke",
		searchURL: func(base, query string, page int) string {
			u := fmt.Sprintf("%s/search?query=%s", base, url.QueryEscape(query))
			if page > 1 {
				u = fmt.Sprintf("%s&page=%d", u, page)
			}
			return u
		},
		listingSelector: ".b-list-advert-base, .b-list-advert__item, div[class*=advert]",
		extract:         extractJijiListing,
		extractDetail:   extractJijiDetail,
	}, rot, opts)
}

func extractJijiListing(e *colly.HTMLElement) (domain.RawListing, error) {
	s := e.DOM

	title := firstText(s, ".b-advert-title-inner", ".advert-title", ".title", "h3")
	if title == "" {
		return domain.RawListing{}, fmt.Errorf("ad without title")
	}

	href := firstAttr(s, "href", "a[href*=\"/ads/\"]", "a")
	if href == "" {
		return domain.RawListing{}, fmt.Errorf("ad %q without link", title)
	}

	return domain.RawListing{
		Title:     title,
		PriceText: firstText(s, ".qa-advert-price", ".b-advert-price", ".price", ".amount"),
		Currency:  "KES",
		URL:       e.Request.AbsoluteURL(href),
		ImageURL:  imageSrc(s, ".b-advert-image img", "img"),
		// an ad that is still listed is for sale
		StockText: "",
	}, nil
}

func extractJijiDetail(doc *goquery.Document, pageURL string) (domain.RawListing, error) {
	s := doc.Selection

	title := firstText(s, "h1", ".b-advert-title", "[data-testid=\"ad-title\"]")
	if title == "" {
		return domain.RawListing{}, fmt.Errorf("ad page without title: %s", pageURL)
	}

	return domain.RawListing{
		Title:     title,
		PriceText: firstText(s, ".qa-advert-price", ".b-advert-price", "[data-testid=\"ad-price\"]"),
		Currency:  "KES",
		URL:       pageURL,
		ImageURL:  imageSrc(s, ".b-slider-image img", ".gallery img", "img"),
	}, nil
}
