package usecase

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/thamani/backend/internal/domain"
)

// Package-level compiled regex patterns for performance
var (
	currencyWordRegex = regexp.MustCompile(`(?i)\b(kshs?|kes)\.?`)
	firstFloatRegex   = regexp.MustCompile(`\d+(?:\.\d+)?`)
	firstIntRegex     = regexp.MustCompile(`\d+`)
)

// outOfStockCues mark a listing as unavailable; inStockCues as available.
// Matched against lowercased stock text.
var outOfStockCues = []string{"out of stock", "sold out", "unavailable", "currently not available"}
var inStockCues = []string{"in stock", "available", "ready to ship"}

// NormalizerConfig holds configuration for the normalizer
type NormalizerConfig struct {
	// AssumeInStock makes a listing with no stock cue count as available.
	// The cue is usually absent on listing cards, so filtering on absence
	// would drop most results; the trade-off is occasionally surfacing a
	// listing that is actually sold out.
	AssumeInStock bool
}

// Normalizer converts raw scrape results into canonical product records
type Normalizer struct {
	assumeInStock bool
}

// NewNormalizer creates a normalizer with the given configuration
func NewNormalizer(config NormalizerConfig) *Normalizer {
	return &Normalizer{assumeInStock: config.AssumeInStock}
}

// Normalize converts one raw listing into a normalized product.
// Listings with no plausible numeric price are dropped (ErrNoPrice), never
// defaulted to zero.
func (n *Normalizer) Normalize(raw domain.RawListing) (*domain.NormalizedProduct, error) {
	name := strings.Join(strings.Fields(raw.Title), " ")
	if name == "" {
		return nil, fmt.Errorf("listing from %s has no title", raw.Retailer)
	}

	price, err := ParsePrice(raw.PriceText)
	if err != nil {
		return nil, err
	}

	currency := raw.Currency
	if currency == "" {
		currency = "KES"
	}

	product := &domain.NormalizedProduct{
		Name:      name,
		Brand:     extractBrand(name),
		Price:     price,
		Currency:  currency,
		InStock:   n.parseStock(raw.StockText),
		URL:       raw.URL,
		ImageURL:  raw.ImageURL,
		Retailer:  raw.Retailer,
		ScrapedAt: raw.ScrapedAt,
	}

	if rating, ok := parseRating(raw.RatingText); ok {
		product.Rating = &rating
	}
	if reviews, ok := parseReviewCount(raw.ReviewText); ok {
		product.ReviewCount = &reviews
	}

	return product, nil
}

// NormalizeAll converts a batch of raw listings, silently dropping the ones
// that cannot be normalized. Site order is preserved.
func (n *Normalizer) NormalizeAll(raw []domain.RawListing) []domain.NormalizedProduct {
	products := make([]domain.NormalizedProduct, 0, len(raw))
	for _, listing := range raw {
		p, err := n.Normalize(listing)
		if err != nil {
			continue
		}
		products = append(products, *p)
	}
	return products
}

// ParsePrice extracts a numeric price from locale-formatted text like
// "KSh 45,000", "KES 55,000.50" or "45,000". Returns ErrNoPrice when no
// plausible number can be found.
func ParsePrice(text string) (float64, error) {
	if strings.TrimSpace(text) == "" {
		return 0, domain.ErrNoPrice
	}

	cleaned := currencyWordRegex.ReplaceAllString(text, "")
	// thousands separators
	cleaned = strings.ReplaceAll(cleaned, ",", "")

	match := firstFloatRegex.FindString(cleaned)
	if match == "" {
		return 0, fmt.Errorf("%w: %q", domain.ErrNoPrice, text)
	}

	price, err := strconv.ParseFloat(match, 64)
	if err != nil || price < 0 {
		return 0, fmt.Errorf("%w: %q", domain.ErrNoPrice, text)
	}

	return price, nil
}

// parseStock maps free-text stock cues to a boolean.
func (n *Normalizer) parseStock(text string) bool {
	cue := strings.ToLower(strings.TrimSpace(text))
	if cue == "" {
		return n.assumeInStock
	}
	for _, negative := range outOfStockCues {
		if strings.Contains(cue, negative) {
			return false
		}
	}
	for _, positive := range inStockCues {
		if strings.Contains(cue, positive) {
			return true
		}
	}
	return n.assumeInStock
}

// parseRating extracts a rating from text like "4.2 out of 5" or "4.5".
func parseRating(text string) (float64, bool) {
	match := firstFloatRegex.FindString(text)
	if match == "" {
		return 0, false
	}
	rating, err := strconv.ParseFloat(match, 64)
	if err != nil || rating < 0 || rating > 5 {
		return 0, false
	}
	return rating, true
}

// parseReviewCount extracts a count from text like "(123)" or "123 reviews".
func parseReviewCount(text string) (int, bool) {
	match := firstIntRegex.FindString(text)
	if match == "" {
		return 0, false
	}
	count, err := strconv.Atoi(match)
	if err != nil || count < 0 {
		return 0, false
	}
	return count, true
}
