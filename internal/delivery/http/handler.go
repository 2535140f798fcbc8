package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thamani/backend/internal/domain"
)

// SearchUsecase is the slice of the search service the handlers need.
type SearchUsecase interface {
	Search(ctx context.Context, query domain.SearchQuery) (*domain.SearchResult, error)
	Compare(ctx context.Context, query domain.SearchQuery) (*domain.SearchResult, error)
	Retailers() []string
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	search SearchUsecase
}

// NewHandler creates a new HTTP handler
func NewHandler(search SearchUsecase) *Handler {
	return &Handler{search: search}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "thamani-backend",
		"version": "1.0.0",
	})
}

// SearchProducts handles product search requests across all retailers.
func (h *Handler) SearchProducts(c *gin.Context) {
	var query domain.SearchQuery
	if err := c.ShouldBindJSON(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	result, err := h.search.Search(c.Request.Context(), query)
	if err != nil {
		h.writeSearchError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// CompareProducts returns only multi-retailer groups with savings data.
func (h *Handler) CompareProducts(c *gin.Context) {
	var query domain.SearchQuery
	if err := c.ShouldBindJSON(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	result, err := h.search.Compare(c.Request.Context(), query)
	if err != nil {
		h.writeSearchError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListRetailers returns the retailers this deployment searches.
func (h *Handler) ListRetailers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"retailers": h.search.Retailers(),
	})
}

// writeSearchError maps pipeline errors onto the API error surface.
// Total scrape failure is an explicit "no live data" payload, distinct
// from an empty result set, so clients can render "try again later".
func (h *Handler) writeSearchError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidQuery):
		c.JSON(http.StatusBadRequest, gin.H{"error": "query must not be empty"})
	case errors.Is(err, domain.ErrNoLiveData):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":             "no_live_data",
			"message":           "no retailer returned data, try again later",
			"retailersSearched": []string{},
			"retailersFailed":   h.search.Retailers(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
