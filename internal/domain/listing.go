package domain

import "time"

// RawListing is a retailer-specific scrape result before normalization.
// Fields hold the text exactly as extracted from the page; the normalizer
// is responsible for turning them into typed values.
type RawListing struct {
	Retailer   string    `json:"retailer"`
	Title      string    `json:"title"`
	PriceText  string    `json:"priceText"`
	Currency   string    `json:"currency,omitempty"` // hint only, e.g. "KES"
	URL        string    `json:"url"`
	ImageURL   string    `json:"imageUrl,omitempty"`
	StockText  string    `json:"stockText,omitempty"`
	RatingText string    `json:"ratingText,omitempty"`
	ReviewText string    `json:"reviewText,omitempty"`
	ScrapedAt  time.Time `json:"scrapedAt"`
}

// NormalizedProduct is the canonical representation of one listing.
// Derived from exactly one RawListing and immutable once created.
type NormalizedProduct struct {
	Name        string    `json:"name"`
	Brand       string    `json:"brand,omitempty"`
	Price       float64   `json:"price"`
	Currency    string    `json:"currency"`
	InStock     bool      `json:"inStock"`
	URL         string    `json:"url"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	Rating      *float64  `json:"rating,omitempty"`
	ReviewCount *int      `json:"reviewCount,omitempty"`
	Retailer    string    `json:"retailer"`
	ScrapedAt   time.Time `json:"scrapedAt"`
}
