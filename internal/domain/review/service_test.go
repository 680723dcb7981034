package review_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/yanqian/review-digest/internal/domain/review"
	"github.com/yanqian/review-digest/internal/infra/reviewstore"
	apperrors "github.com/yanqian/review-digest/pkg/errors"
	"github.com/yanqian/review-digest/pkg/metrics"
)

var fixedNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

const week = 7 * 24 * time.Hour

type stubSummarizer struct {
	mu       sync.Mutex
	calls    int32
	prompt   string
	text     string
	result   string
	err      error
	release  chan struct{}
	entered  chan struct{}
	onceSent sync.Once
}

func (s *stubSummarizer) Summarize(ctx context.Context, prompt, reviewText string) (string, error) {
	atomic.AddInt32(&s.calls, 1)
	if s.entered != nil {
		s.onceSent.Do(func() { close(s.entered) })
	}
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	s.mu.Lock()
	s.prompt, s.text = prompt, reviewText
	s.mu.Unlock()
	return s.result, s.err
}

func (s *stubSummarizer) Calls() int {
	return int(atomic.LoadInt32(&s.calls))
}

type fixture struct {
	store      *reviewstore.MemoryStore
	summarizer *stubSummarizer
	metrics    *metrics.SummaryMetrics
	svc        review.Service
}

func newFixture(t *testing.T, cfg review.Config) *fixture {
	t.Helper()
	store := reviewstore.NewMemoryStore(week, func() time.Time { return fixedNow })
	summarizer := &stubSummarizer{result: "Mixed feedback."}
	m := metrics.NewSummaryMetrics(prometheus.NewRegistry())
	if cfg.Prompt == "" {
		cfg.Prompt = "Summarize the following customer reviews."
	}
	svc := review.NewService(cfg, store, summarizer, m, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return &fixture{store: store, summarizer: summarizer, metrics: m, svc: svc}
}

func TestGetOrCreateSummary_CacheHitSkipsBackend(t *testing.T) {
	f := newFixture(t, review.Config{})
	f.store.AddReview(1, review.Review{Content: "Great!", CreatedAt: fixedNow.Add(-time.Hour)})
	stored := review.Summary{ProductID: 1, Content: "cached digest", GeneratedAt: fixedNow.Add(-time.Hour), ExpiresAt: fixedNow.Add(time.Second)}
	f.store.PutSummary(stored)

	got, err := f.svc.GetOrCreateSummary(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "cached digest", got)
	require.Equal(t, 0, f.summarizer.Calls())

	row, ok := f.store.Summary(1)
	require.True(t, ok)
	require.Equal(t, stored, row)
	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CacheRequests().WithLabelValues("hit")))
}

func TestGetOrCreateSummary_ExpiryBoundaryIsMiss(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
	}{
		{name: "expires exactly now", expiresAt: fixedNow},
		{name: "expired yesterday", expiresAt: fixedNow.Add(-24 * time.Hour)},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, review.Config{})
			f.store.AddReview(5, review.Review{Content: "Solid.", CreatedAt: fixedNow.Add(-time.Hour)})
			f.store.PutSummary(review.Summary{ProductID: 5, Content: "old", ExpiresAt: tt.expiresAt})
			f.summarizer.result = "Fresh digest."

			got, err := f.svc.GetOrCreateSummary(context.Background(), 5)
			require.NoError(t, err)
			require.Equal(t, "Fresh digest.", got)
			require.Equal(t, 1, f.summarizer.Calls())

			row, ok := f.store.Summary(5)
			require.True(t, ok)
			require.Equal(t, "Fresh digest.", row.Content)
			require.Equal(t, fixedNow, row.GeneratedAt)
			require.Equal(t, fixedNow.Add(week), row.ExpiresAt)
			require.Equal(t, 1, f.store.SummaryCount())
		})
	}
}

func TestGetOrCreateSummary_UsesNewestTenReviewsJoined(t *testing.T) {
	f := newFixture(t, review.Config{Prompt: "PROMPT"})
	for i := 0; i < 12; i++ {
		f.store.AddReview(3, review.Review{
			Content:   fmt.Sprintf("review-%02d", i),
			CreatedAt: fixedNow.Add(time.Duration(i) * time.Minute),
		})
	}

	_, err := f.svc.GetOrCreateSummary(context.Background(), 3)
	require.NoError(t, err)

	want := "review-11\n\nreview-10\n\nreview-09\n\nreview-08\n\nreview-07\n\n" +
		"review-06\n\nreview-05\n\nreview-04\n\nreview-03\n\nreview-02"
	require.Equal(t, want, f.summarizer.text)
	require.Equal(t, "PROMPT", f.summarizer.prompt)
}

func TestGetOrCreateSummary_NoReviews(t *testing.T) {
	f := newFixture(t, review.Config{})
	f.store.AddProduct(4)

	_, err := f.svc.GetOrCreateSummary(context.Background(), 4)
	require.True(t, apperrors.IsCode(err, apperrors.CodeNoContentToSummarize))
	require.Equal(t, 0, f.summarizer.Calls())
	require.Equal(t, 0, f.store.SummaryCount())
}

func TestGetOrCreateSummary_BackendFailureWritesNothing(t *testing.T) {
	f := newFixture(t, review.Config{})
	f.store.AddReview(1, review.Review{Content: "Great!"})
	f.summarizer.err = errors.New("connection refused")

	_, err := f.svc.GetOrCreateSummary(context.Background(), 1)
	require.True(t, apperrors.IsCode(err, apperrors.CodeBackendUnavailable))
	require.Equal(t, 0, f.store.SummaryCount())
	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Generations().WithLabelValues("error")))
}

func TestGetOrCreateSummary_EmptyBackendResultIsStored(t *testing.T) {
	f := newFixture(t, review.Config{})
	f.store.AddReview(1, review.Review{Content: "Great!"})
	f.summarizer.result = ""

	got, err := f.svc.GetOrCreateSummary(context.Background(), 1)
	require.NoError(t, err)
	require.Empty(t, got)
	require.Equal(t, 1, f.store.SummaryCount())
}

func TestGetOrCreateSummary_CoalescesConcurrentMisses(t *testing.T) {
	f := newFixture(t, review.Config{Coalesce: true})
	f.store.AddReview(8, review.Review{Content: "Great!"})
	f.summarizer.release = make(chan struct{})
	f.summarizer.entered = make(chan struct{})

	const callers = 5
	var wg sync.WaitGroup
	results := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.GetOrCreateSummary(context.Background(), 8)
		}(i)
	}

	<-f.summarizer.entered
	time.Sleep(50 * time.Millisecond)
	close(f.summarizer.release)
	wg.Wait()

	require.Equal(t, 1, f.summarizer.Calls())
	for i, got := range results {
		require.NoError(t, errs[i])
		require.Equal(t, "Mixed feedback.", got)
	}
}

func TestGetOrCreateSummary_CoalescedCallerCancelDoesNotFailOthers(t *testing.T) {
	f := newFixture(t, review.Config{Coalesce: true})
	f.store.AddReview(9, review.Review{Content: "Great!"})
	f.summarizer.release = make(chan struct{})
	f.summarizer.entered = make(chan struct{})

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := f.svc.GetOrCreateSummary(firstCtx, 9)
		firstErr <- err
	}()
	<-f.summarizer.entered

	type result struct {
		summary string
		err     error
	}
	second := make(chan result, 1)
	go func() {
		got, err := f.svc.GetOrCreateSummary(context.Background(), 9)
		second <- result{got, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	select {
	case err := <-firstErr:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller kept waiting")
	}

	close(f.summarizer.release)
	res := <-second
	require.NoError(t, res.err)
	require.Equal(t, "Mixed feedback.", res.summary)
	require.Equal(t, 1, f.summarizer.Calls())

	row, ok := f.store.Summary(9)
	require.True(t, ok)
	require.Equal(t, "Mixed feedback.", row.Content)
}

func TestSummarize_Scenario(t *testing.T) {
	f := newFixture(t, review.Config{})
	f.store.AddReview(2, review.Review{Author: "ann", Content: "Great!", Rating: 5, CreatedAt: fixedNow.Add(-2 * time.Hour)})
	f.store.AddReview(2, review.Review{Author: "bo", Content: "Okay.", Rating: 3, CreatedAt: fixedNow.Add(-time.Hour)})

	resp, err := f.svc.Summarize(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, review.SummaryResponse{Summary: "Mixed feedback."}, resp)
	require.Equal(t, "Okay.\n\nGreat!", f.summarizer.text)

	list, err := f.svc.ListReviews(context.Background(), 2)
	require.NoError(t, err)
	require.NotNil(t, list.Summary)
	require.Equal(t, "Mixed feedback.", *list.Summary)
	require.Len(t, list.Reviews, 2)
	require.Equal(t, 1, f.summarizer.Calls())
}

func TestSummarize_Validation(t *testing.T) {
	f := newFixture(t, review.Config{})

	_, err := f.svc.Summarize(context.Background(), 0)
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))

	_, err = f.svc.Summarize(context.Background(), 9999)
	require.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
	require.Equal(t, 0, f.summarizer.Calls())
}

func TestListReviews_WithoutSummary(t *testing.T) {
	f := newFixture(t, review.Config{})
	f.store.AddProduct(6)

	list, err := f.svc.ListReviews(context.Background(), 6)
	require.NoError(t, err)
	require.Nil(t, list.Summary)
	require.NotNil(t, list.Reviews)
	require.Empty(t, list.Reviews)
	require.Equal(t, 0, f.summarizer.Calls())

	_, err = f.svc.ListReviews(context.Background(), 9999)
	require.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))
}

type failingStore struct {
	review.Store
	err error
}

func (s failingStore) ProductExists(context.Context, int64) (bool, error) { return true, nil }

func (s failingStore) GetValidSummary(context.Context, int64) (review.Summary, bool, error) {
	return review.Summary{}, false, s.err
}

func TestGetOrCreateSummary_StoreFailure(t *testing.T) {
	summarizer := &stubSummarizer{}
	svc := review.NewService(review.Config{}, failingStore{err: errors.New("pool closed")}, summarizer, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := svc.Summarize(context.Background(), 1)
	require.True(t, apperrors.IsCode(err, apperrors.CodeStoreFailure))
	require.Equal(t, 0, summarizer.Calls())
}
