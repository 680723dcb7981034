package reviewstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/yanqian/review-digest/internal/domain/review"
	"github.com/yanqian/review-digest/pkg/util"
)

// MemoryStore is an in-memory review.Store used for tests and local dev.
type MemoryStore struct {
	mu        sync.RWMutex
	now       util.Clock
	ttl       time.Duration
	nextID    int64
	products  map[int64]struct{}
	reviews   map[int64][]memoryReview
	summaries map[int64]review.Summary
}

type memoryReview struct {
	review review.Review
	seq    int64
}

// NewMemoryStore constructs a store backed by process memory.
func NewMemoryStore(ttl time.Duration, now util.Clock) *MemoryStore {
	if ttl <= 0 {
		ttl = review.DefaultSummaryTTL
	}
	if now == nil {
		now = util.NowUTC
	}
	return &MemoryStore{
		now:       now,
		ttl:       ttl,
		nextID:    1,
		products:  make(map[int64]struct{}),
		reviews:   make(map[int64][]memoryReview),
		summaries: make(map[int64]review.Summary),
	}
}

// AddProduct registers a product id.
func (s *MemoryStore) AddProduct(productID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[productID] = struct{}{}
}

// AddReview appends a review and assigns its id. The product is registered
// implicitly. A zero CreatedAt is stamped with the store clock.
func (s *MemoryStore) AddReview(productID int64, r review.Review) review.Review {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[productID] = struct{}{}
	r.ID = s.nextID
	r.ProductID = productID
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	s.reviews[productID] = append(s.reviews[productID], memoryReview{review: r, seq: s.nextID})
	s.nextID++
	return r
}

// PutSummary stores a summary row verbatim, including expired ones.
func (s *MemoryStore) PutSummary(summary review.Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaries[summary.ProductID] = summary
}

// Summary returns the raw stored row regardless of expiry.
func (s *MemoryStore) Summary(productID int64) (review.Summary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summary, ok := s.summaries[productID]
	return summary, ok
}

// SummaryCount reports how many summary rows exist.
func (s *MemoryStore) SummaryCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.summaries)
}

// ProductExists implements review.Store.
func (s *MemoryStore) ProductExists(_ context.Context, productID int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.products[productID]
	return ok, nil
}

// ListReviews implements review.Store. Equal timestamps keep the most
// recently inserted review first.
func (s *MemoryStore) ListReviews(_ context.Context, productID int64, limit int) ([]review.Review, error) {
	s.mu.RLock()
	items := make([]memoryReview, len(s.reviews[productID]))
	copy(items, s.reviews[productID])
	s.mu.RUnlock()

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].review.CreatedAt.Equal(items[j].review.CreatedAt) {
			return items[i].seq > items[j].seq
		}
		return items[i].review.CreatedAt.After(items[j].review.CreatedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	out := make([]review.Review, 0, len(items))
	for _, item := range items {
		out = append(out, item.review)
	}
	return out, nil
}

// GetValidSummary implements review.Store.
func (s *MemoryStore) GetValidSummary(_ context.Context, productID int64) (review.Summary, bool, error) {
	s.mu.RLock()
	summary, ok := s.summaries[productID]
	s.mu.RUnlock()
	if !ok || !summary.ValidAt(s.now()) {
		return review.Summary{}, false, nil
	}
	return summary, true, nil
}

// UpsertSummary implements review.Store.
func (s *MemoryStore) UpsertSummary(_ context.Context, productID int64, content string) (review.Summary, error) {
	now := s.now()
	summary := review.Summary{
		ProductID:   productID,
		Content:     content,
		GeneratedAt: now,
		ExpiresAt:   now.Add(s.ttl),
	}
	s.mu.Lock()
	s.summaries[productID] = summary
	s.mu.Unlock()
	return summary, nil
}

var _ review.Store = (*MemoryStore)(nil)
