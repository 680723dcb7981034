package reviewstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/review-digest/internal/domain/review"
)

func TestMemoryStore_ListReviewsNewestFirst(t *testing.T) {
	clock := fixedNow
	store := NewMemoryStore(0, func() time.Time { return clock })

	t1 := fixedNow.Add(-3 * time.Hour)
	t2 := fixedNow.Add(-2 * time.Hour)
	t3 := fixedNow.Add(-time.Hour)
	store.AddReview(1, review.Review{Author: "a", Content: "t1", Rating: 4, CreatedAt: t1})
	store.AddReview(1, review.Review{Author: "c", Content: "t3", Rating: 2, CreatedAt: t3})
	store.AddReview(1, review.Review{Author: "b", Content: "t2", Rating: 5, CreatedAt: t2})

	got, err := store.ListReviews(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "t3", got[0].Content)
	require.Equal(t, "t2", got[1].Content)

	all, err := store.ListReviews(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestMemoryStore_ListReviewsTieKeepsLatestInsertFirst(t *testing.T) {
	store := NewMemoryStore(0, nil)
	store.AddReview(1, review.Review{Content: "first", CreatedAt: fixedNow})
	store.AddReview(1, review.Review{Content: "second", CreatedAt: fixedNow})

	got, err := store.ListReviews(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Equal(t, "second", got[0].Content)
	require.Equal(t, "first", got[1].Content)
}

func TestMemoryStore_ListReviewsEmpty(t *testing.T) {
	store := NewMemoryStore(0, nil)
	store.AddProduct(3)

	got, err := store.ListReviews(context.Background(), 3, 10)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestMemoryStore_SummaryExpiryBoundary(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		wantValid bool
	}{
		{name: "future", expiresAt: fixedNow.Add(time.Second), wantValid: true},
		{name: "exactly now", expiresAt: fixedNow, wantValid: false},
		{name: "past", expiresAt: fixedNow.Add(-24 * time.Hour), wantValid: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := NewMemoryStore(0, func() time.Time { return fixedNow })
			store.PutSummary(review.Summary{ProductID: 1, Content: "digest", ExpiresAt: tt.expiresAt})

			summary, ok, err := store.GetValidSummary(context.Background(), 1)
			require.NoError(t, err)
			require.Equal(t, tt.wantValid, ok)
			if tt.wantValid {
				require.Equal(t, "digest", summary.Content)
			} else {
				require.Empty(t, summary.Content)
			}
		})
	}
}

func TestMemoryStore_UpsertSummaryOverwrites(t *testing.T) {
	now := fixedNow
	store := NewMemoryStore(7*24*time.Hour, func() time.Time { return now })

	_, err := store.UpsertSummary(context.Background(), 1, "first")
	require.NoError(t, err)

	now = fixedNow.Add(time.Hour)
	second, err := store.UpsertSummary(context.Background(), 1, "second")
	require.NoError(t, err)

	require.Equal(t, 1, store.SummaryCount())
	row, ok := store.Summary(1)
	require.True(t, ok)
	require.Equal(t, "second", row.Content)
	require.Equal(t, now, row.GeneratedAt)
	require.Equal(t, now.Add(7*24*time.Hour), row.ExpiresAt)
	require.Equal(t, second, row)
}

func TestSeedDemo(t *testing.T) {
	store := NewMemoryStore(0, func() time.Time { return fixedNow })
	SeedDemo(store)

	reviews, err := store.ListReviews(context.Background(), 2, 0)
	require.NoError(t, err)
	require.Len(t, reviews, 4)
	require.Equal(t, "Lee", reviews[0].Author)

	exists, err := store.ProductExists(context.Background(), 3)
	require.NoError(t, err)
	require.True(t, exists)

	empty, err := store.ListReviews(context.Background(), 3, 0)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestSeedDemoAssignsStableIDs(t *testing.T) {
	clock := func() time.Time { return fixedNow }
	first := NewMemoryStore(0, clock)
	second := NewMemoryStore(0, clock)
	SeedDemo(first)
	SeedDemo(second)

	for _, productID := range []int64{1, 2} {
		a, err := first.ListReviews(context.Background(), productID, 0)
		require.NoError(t, err)
		b, err := second.ListReviews(context.Background(), productID, 0)
		require.NoError(t, err)
		require.Equal(t, a, b)
	}

	one, err := first.ListReviews(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), one[0].ID)

	two, err := first.ListReviews(context.Background(), 2, 0)
	require.NoError(t, err)
	require.Equal(t, int64(5), two[0].ID)
}
