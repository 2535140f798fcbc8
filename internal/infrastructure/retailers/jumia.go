package retailers

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/thamani/backend/internal/domain"
	"github.com/thamani/backend/internal/infrastructure/antibot"
)

// NewJumia creates the adapter for Jumia Kenya.
func NewJumia(rot *antibot.Rotator, opts Options) *Adapter {
	return newAdapter(site{
		name:    "jumia",
		baseURL: "https://www.jumia.co.ke",
		searchURL: func(base, query string, page int) string {
			u := fmt.Sprintf("%s/catalog/?q=%s", base, url.QueryEscape(query))
			if page > 1 {
				u = fmt.Sprintf("%s&page=%d", u, page)
			}
			return u
		},
		listingSelector: "article.prd, article[data-catalog-id]",
		extract:         extractJumiaListing,
		extractDetail:   extractJumiaDetail,
	}, rot, opts)
}

func extractJumiaListing(e *colly.HTMLElement) (domain.RawListing, error) {
	s := e.DOM

	title := firstText(s, ".name", "h3.name", ".info h3")
	if title == "" {
		return domain.RawListing{}, fmt.Errorf("listing without title")
	}

	href := firstAttr(s, "href", "a.core", "a[href*=\".html\"]", "a")
	if href == "" {
		return domain.RawListing{}, fmt.Errorf("listing %q without product link", title)
	}

	return domain.RawListing{
		Title:      cleanJumiaTitle(title),
		PriceText:  firstText(s, ".prc", ".price", ".current-price"),
		Currency:   "KES",
		URL:        e.Request.AbsoluteURL(href),
		ImageURL:   imageSrc(s, "img.img", ".image img", "img"),
		StockText:  firstText(s, ".stk", ".out-of-stock"),
		RatingText: firstText(s, ".stars._s", ".stars", ".rating"),
		ReviewText: firstText(s, ".rev", ".reviews-count"),
	}, nil
}

func extractJumiaDetail(doc *goquery.Document, pageURL string) (domain.RawListing, error) {
	s := doc.Selection

	title := firstText(s, "h1.-fs20", "h1", ".name")
	if title == "" {
		return domain.RawListing{}, fmt.Errorf("detail page without title: %s", pageURL)
	}

	return domain.RawListing{
		Title:      cleanJumiaTitle(title),
		PriceText:  firstText(s, ".-b.-ltr.-tal.-fs24", ".prc", ".price"),
		Currency:   "KES",
		URL:        pageURL,
		ImageURL:   imageSrc(s, "#imgs img", ".gallery img", "img"),
		StockText:  firstText(s, ".-df.-i-ctr.-fs12", ".stock-status"),
		RatingText: firstText(s, ".stars._m._al", ".stars"),
		ReviewText: firstText(s, "a.-plxs._more", ".reviews-count"),
	}, nil
}

// cleanJumiaTitle strips price fragments, discount badges and review counts
// that Jumia sometimes folds into the listing title text.
func cleanJumiaTitle(title string) string {
	title = priceFragmentRegex.ReplaceAllString(title, "")
	title = percentFragmentRegex.ReplaceAllString(title, "")
	title = reviewFragmentRegex.ReplaceAllString(title, "")
	return strings.Join(strings.Fields(title), " ")
}
