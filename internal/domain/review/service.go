package review

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	apperrors "github.com/yanqian/review-digest/pkg/errors"
	"github.com/yanqian/review-digest/pkg/metrics"
)

const reviewSeparator = "\n\n"

// Service exposes the review listing and summary workflow.
type Service interface {
	ListReviews(ctx context.Context, productID int64) (ProductReviews, error)
	Summarize(ctx context.Context, productID int64) (SummaryResponse, error)
	GetOrCreateSummary(ctx context.Context, productID int64) (string, error)
}

type service struct {
	cfg        Config
	store      Store
	summarizer Summarizer
	metrics    *metrics.SummaryMetrics
	logger     *slog.Logger
	group      singleflight.Group
}

// NewService is a wire provider for the review domain.
func NewService(cfg Config, store Store, summarizer Summarizer, m *metrics.SummaryMetrics, logger *slog.Logger) Service {
	if cfg.ReviewLimit <= 0 {
		cfg.ReviewLimit = DefaultReviewLimit
	}
	return &service{
		cfg:        cfg,
		store:      store,
		summarizer: summarizer,
		metrics:    m,
		logger:     logger.With("component", "review.service"),
	}
}

func (s *service) ListReviews(ctx context.Context, productID int64) (ProductReviews, error) {
	if err := s.requireProduct(ctx, productID); err != nil {
		return ProductReviews{}, err
	}

	reviews, err := s.store.ListReviews(ctx, productID, 0)
	if err != nil {
		return ProductReviews{}, s.fail("list_reviews", productID, apperrors.CodeStoreFailure, "failed to fetch reviews", err)
	}
	if reviews == nil {
		reviews = []Review{}
	}

	out := ProductReviews{Reviews: reviews}
	summary, ok, err := s.store.GetValidSummary(ctx, productID)
	if err != nil {
		return ProductReviews{}, s.fail("get_summary", productID, apperrors.CodeStoreFailure, "failed to fetch summary", err)
	}
	if ok {
		out.Summary = &summary.Content
	}
	return out, nil
}

func (s *service) Summarize(ctx context.Context, productID int64) (SummaryResponse, error) {
	if err := s.requireProduct(ctx, productID); err != nil {
		return SummaryResponse{}, err
	}
	summary, err := s.GetOrCreateSummary(ctx, productID)
	if err != nil {
		return SummaryResponse{}, err
	}
	return SummaryResponse{Summary: summary}, nil
}

// GetOrCreateSummary returns the live cached summary or generates, stores and
// returns a new one. It requires at least one review and fails with
// no_content_to_summarize before calling the backend otherwise; callers do not
// need to check review counts themselves.
func (s *service) GetOrCreateSummary(ctx context.Context, productID int64) (string, error) {
	cached, ok, err := s.store.GetValidSummary(ctx, productID)
	if err != nil {
		return "", s.fail("get_summary", productID, apperrors.CodeStoreFailure, "failed to fetch summary", err)
	}
	s.metrics.ObserveCache(ok)
	if ok {
		s.logger.Debug("summary cache hit", "product_id", productID, "expires_at", cached.ExpiresAt)
		return cached.Content, nil
	}

	if !s.cfg.Coalesce {
		return s.generate(ctx, productID)
	}
	// The flight outlives any single caller; each caller still stops waiting
	// when its own context ends.
	flightCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(strconv.FormatInt(productID, 10), func() (any, error) {
		return s.generate(flightCtx, productID)
	})
	select {
	case <-ctx.Done():
		return "", apperrors.Wrap(apperrors.CodeBackendUnavailable, "summary request cancelled", ctx.Err())
	case res := <-ch:
		if res.Shared {
			s.logger.Debug("summary generation shared", "product_id", productID)
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (s *service) generate(ctx context.Context, productID int64) (summary string, err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveGeneration(time.Since(start), err)
	}()

	reviews, err := s.store.ListReviews(ctx, productID, s.cfg.ReviewLimit)
	if err != nil {
		return "", s.fail("list_reviews", productID, apperrors.CodeStoreFailure, "failed to fetch reviews", err)
	}
	if len(reviews) == 0 {
		return "", apperrors.Wrap(apperrors.CodeNoContentToSummarize, "there are no reviews to summarize", nil)
	}

	summary, err = s.summarizer.Summarize(ctx, s.cfg.Prompt, joinReviews(reviews))
	if err != nil {
		return "", s.fail("summarize", productID, apperrors.CodeBackendUnavailable, "failed to generate summary", err)
	}

	stored, err := s.store.UpsertSummary(ctx, productID, summary)
	if err != nil {
		return "", s.fail("upsert_summary", productID, apperrors.CodeStoreFailure, "failed to store summary", err)
	}

	s.logger.Info("summary generated",
		"product_id", productID,
		"reviews", len(reviews),
		"expires_at", stored.ExpiresAt,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return summary, nil
}

func (s *service) requireProduct(ctx context.Context, productID int64) error {
	if productID <= 0 {
		return apperrors.Wrap(apperrors.CodeInvalidInput, "invalid product id", nil)
	}
	exists, err := s.store.ProductExists(ctx, productID)
	if err != nil {
		return s.fail("product_exists", productID, apperrors.CodeStoreFailure, "failed to look up product", err)
	}
	if !exists {
		return apperrors.Wrap(apperrors.CodeNotFound, "product not found", nil)
	}
	return nil
}

// fail logs err and returns it with code attached. Errors that already carry
// an AppError pass through unchanged so adapter codes survive.
func (s *service) fail(op string, productID int64, code, message string, err error) error {
	s.logger.Error("review operation failed", "op", op, "product_id", productID, "error", err)
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Wrap(code, message, err)
}

func joinReviews(reviews []Review) string {
	parts := make([]string, 0, len(reviews))
	for _, r := range reviews {
		parts = append(parts, r.Content)
	}
	return strings.Join(parts, reviewSeparator)
}
