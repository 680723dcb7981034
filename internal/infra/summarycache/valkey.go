package summarycache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/review-digest/internal/domain/review"
	"github.com/yanqian/review-digest/pkg/util"
)

// Store puts a Valkey read-through cache for summaries in front of another
// review.Store. The wrapped store stays the source of truth; cache failures
// are logged and treated as misses.
type Store struct {
	next   review.Store
	client valkey.Client
	prefix string
	now    util.Clock
	logger *slog.Logger
}

// NewStore wraps next with a Valkey summary cache.
func NewStore(next review.Store, client valkey.Client, prefix string, now util.Clock, logger *slog.Logger) *Store {
	if prefix == "" {
		prefix = "reviews"
	}
	if now == nil {
		now = util.NowUTC
	}
	return &Store{
		next:   next,
		client: client,
		prefix: prefix,
		now:    now,
		logger: logger.With("component", "summarycache.store"),
	}
}

// ProductExists implements review.Store.
func (s *Store) ProductExists(ctx context.Context, productID int64) (bool, error) {
	return s.next.ProductExists(ctx, productID)
}

// ListReviews implements review.Store.
func (s *Store) ListReviews(ctx context.Context, productID int64, limit int) ([]review.Review, error) {
	return s.next.ListReviews(ctx, productID, limit)
}

// GetValidSummary implements review.Store.
func (s *Store) GetValidSummary(ctx context.Context, productID int64) (review.Summary, bool, error) {
	if summary, ok := s.lookup(ctx, productID); ok {
		return summary, true, nil
	}

	summary, ok, err := s.next.GetValidSummary(ctx, productID)
	if err != nil || !ok {
		return summary, ok, err
	}
	s.save(ctx, summary)
	return summary, true, nil
}

// UpsertSummary implements review.Store.
func (s *Store) UpsertSummary(ctx context.Context, productID int64, content string) (review.Summary, error) {
	summary, err := s.next.UpsertSummary(ctx, productID, content)
	if err != nil {
		return review.Summary{}, err
	}
	s.save(ctx, summary)
	return summary, nil
}

func (s *Store) lookup(ctx context.Context, productID int64) (review.Summary, bool) {
	payload, err := s.client.Do(ctx, s.client.B().Get().Key(s.key(productID)).Build()).ToString()
	if err != nil {
		if !valkey.IsValkeyNil(err) {
			s.logger.Warn("summary cache read failed", "product_id", productID, "error", err)
		}
		return review.Summary{}, false
	}
	var summary review.Summary
	if err := json.Unmarshal([]byte(payload), &summary); err != nil {
		s.logger.Warn("summary cache entry malformed", "product_id", productID, "error", err)
		return review.Summary{}, false
	}
	if !summary.ValidAt(s.now()) {
		return review.Summary{}, false
	}
	return summary, true
}

func (s *Store) save(ctx context.Context, summary review.Summary) {
	ttl := summary.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		s.logger.Warn("summary cache encode failed", "product_id", summary.ProductID, "error", err)
		return
	}
	if ttl < time.Millisecond {
		ttl = time.Millisecond
	}
	cmd := s.client.B().Set().Key(s.key(summary.ProductID)).Value(string(payload)).Px(ttl).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		s.logger.Warn("summary cache write failed", "product_id", summary.ProductID, "error", err)
	}
}

func (s *Store) key(productID int64) string {
	return fmt.Sprintf("%s:summary:%d", s.prefix, productID)
}

var _ review.Store = (*Store)(nil)
