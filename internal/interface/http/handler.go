package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/review-digest/internal/domain/review"
	"github.com/yanqian/review-digest/internal/infra/config"
	apperrors "github.com/yanqian/review-digest/pkg/errors"
	"github.com/yanqian/review-digest/pkg/util"
)

const apiVersion = "1.0.0"

// Handler wires the HTTP transport to the review service.
type Handler struct {
	reviewSvc   review.Service
	environment string
	now         util.Clock
	logger      *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(cfg *config.Config, reviewSvc review.Service, now util.Clock, logger *slog.Logger) *Handler {
	return &Handler{
		reviewSvc:   reviewSvc,
		environment: cfg.Environment,
		now:         now,
		logger:      logger.With("component", "http.handler"),
	}
}

type productURI struct {
	ID int64 `uri:"id" binding:"required,gt=0"`
}

// ListReviews returns the product's reviews and its live summary, if any.
func (h *Handler) ListReviews(c *gin.Context) {
	productID, ok := bindProductID(c)
	if !ok {
		return
	}

	resp, err := h.reviewSvc.ListReviews(c.Request.Context(), productID)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Summarize returns the cached summary or generates a new one.
func (h *Handler) Summarize(c *gin.Context) {
	productID, ok := bindProductID(c)
	if !ok {
		return
	}

	resp, err := h.reviewSvc.Summarize(c.Request.Context(), productID)
	if err != nil {
		abortWithError(c, fromDomainError(err))
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":          true,
		"timestamp":   h.now().Format(time.RFC3339),
		"environment": h.environment,
	})
}

// Index describes the available API endpoints.
func (h *Handler) Index(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Review Summarization API",
		"version": apiVersion,
		"endpoints": gin.H{
			"health":           "GET /api/health",
			"getReviews":       "GET /api/products/:id/reviews",
			"summarizeReviews": "POST /api/products/:id/reviews/summarize",
		},
	})
}

// NotFound answers unmatched routes.
func (h *Handler) NotFound(c *gin.Context) {
	h.logger.Warn("route not found", "method", c.Request.Method, "path", c.Request.URL.Path)
	c.JSON(http.StatusNotFound, gin.H{
		"error":  "Not Found",
		"path":   c.Request.URL.Path,
		"method": c.Request.Method,
	})
}

func bindProductID(c *gin.Context) (int64, bool) {
	var uri productURI
	if err := c.ShouldBindUri(&uri); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, apperrors.CodeInvalidInput, "invalid product id", err))
		return 0, false
	}
	return uri.ID, true
}
