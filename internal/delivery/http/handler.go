package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pricewatch/backend/internal/domain"
	"github.com/pricewatch/backend/internal/usecase"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	controller   *usecase.RefreshController
	matcher      *usecase.Matcher
	defaultLimit int
}

// NewHandler creates a new HTTP handler
func NewHandler(controller *usecase.RefreshController, matcher *usecase.Matcher, defaultLimit int) *Handler {
	if defaultLimit < 1 {
		defaultLimit = 5
	}
	return &Handler{
		controller:   controller,
		matcher:      matcher,
		defaultLimit: defaultLimit,
	}
}

// searchRequest is the body of a product search call
type searchRequest struct {
	Query        string   `json:"query" binding:"required"`
	Limit        int      `json:"limit"`
	MinScore     *float64 `json:"min_score"`
	ForceRefresh bool     `json:"force_refresh"`
}

// searchResult is one ranked match in the response payload
type searchResult struct {
	ProductKey  string              `json:"productKey"`
	ProductName string              `json:"productName"`
	Brand       string              `json:"brand,omitempty"`
	Package     string              `json:"package,omitempty"`
	Score       float64             `json:"score"`
	StoreRows   []domain.StoreQuote `json:"storeRows"`
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "pricewatch-backend",
		"version": "1.0.0",
	})
}

// SearchProducts handles fuzzy product search requests
func (h *Handler) SearchProducts(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	if req.Limit == 0 {
		req.Limit = h.defaultLimit
	}
	minScore := -1.0
	if req.MinScore != nil {
		minScore = *req.MinScore
	}

	ctx := c.Request.Context()
	if req.ForceRefresh {
		if _, err := h.controller.ForceRefresh(ctx); err != nil {
			writeError(c, err)
			return
		}
	}

	index, err := h.ensureIndex(c)
	if err != nil {
		writeError(c, err)
		return
	}

	results, err := h.matcher.Search(ctx, index, req.Query, req.Limit, minScore)
	if err != nil {
		writeError(c, err)
		return
	}

	payload := make([]searchResult, 0, len(results))
	for _, result := range results {
		payload = append(payload, searchResult{
			ProductKey:  result.ProductKey,
			ProductName: result.Record.Name,
			Brand:       result.Record.Brand,
			Package:     result.Record.Package,
			Score:       result.Score,
			StoreRows:   result.StoreRows,
		})
	}

	// Zero matches above threshold is a successful empty result, not an error
	c.JSON(http.StatusOK, gin.H{
		"query":   req.Query,
		"count":   len(payload),
		"results": payload,
	})
}

// DatasetColumns reports the detected schema of the current index
func (h *Handler) DatasetColumns(c *gin.Context) {
	index, err := h.ensureIndex(c)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": index.RecordCount(),
		"columns":  index.Columns(),
		"version":  index.Version(),
		"builtAt":  index.BuiltAt(),
	})
}

// RefreshDataset forces a re-download and index rebuild
func (h *Handler) RefreshDataset(c *gin.Context) {
	report, err := h.controller.ForceRefresh(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "refreshed",
		"report": report,
	})
}

// ensureIndex returns the live index, building it on first use
func (h *Handler) ensureIndex(c *gin.Context) (*usecase.Index, error) {
	index, err := h.controller.Current()
	if err == nil {
		return index, nil
	}
	if !errors.Is(err, domain.ErrIndexNotReady) {
		return nil, err
	}

	index, _, err = h.controller.MaybeRebuild(c.Request.Context())
	if err != nil {
		return nil, err
	}
	return index, nil
}

// writeError maps domain errors onto HTTP status codes
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidQuery):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrRebuildInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrSourceUnavailable),
		errors.Is(err, domain.ErrIndexNotReady),
		errors.Is(err, domain.ErrEmptyIndex):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
