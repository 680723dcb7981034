package reviewstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/yanqian/review-digest/internal/domain/review"
	apperrors "github.com/yanqian/review-digest/pkg/errors"
	"github.com/yanqian/review-digest/pkg/util"
)

// DBTX is the subset of pgxpool.Pool used by the store. pgxmock pools satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements review.Store using pgx.
type PostgresStore struct {
	db  DBTX
	ttl time.Duration
	now util.Clock
}

// NewPostgresStore constructs the store.
func NewPostgresStore(db DBTX, ttl time.Duration, now util.Clock) *PostgresStore {
	if ttl <= 0 {
		ttl = review.DefaultSummaryTTL
	}
	if now == nil {
		now = util.NowUTC
	}
	return &PostgresStore{db: db, ttl: ttl, now: now}
}

// ProductExists implements review.Store.
func (s *PostgresStore) ProductExists(ctx context.Context, productID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists)
	if err != nil {
		return false, storeError("product lookup", err)
	}
	return exists, nil
}

// ListReviews implements review.Store. Ties on created_at resolve to the
// higher id, i.e. the later insert.
func (s *PostgresStore) ListReviews(ctx context.Context, productID int64, limit int) ([]review.Review, error) {
	query := `
		SELECT id, product_id, author, content, rating, created_at
		FROM reviews
		WHERE product_id = $1
		ORDER BY created_at DESC, id DESC`
	args := []any{productID}
	if limit > 0 {
		query += `
		LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, storeError("list reviews", err)
	}
	defer rows.Close()

	reviews := []review.Review{}
	for rows.Next() {
		var r review.Review
		if err := rows.Scan(&r.ID, &r.ProductID, &r.Author, &r.Content, &r.Rating, &r.CreatedAt); err != nil {
			return nil, storeError("scan review row", err)
		}
		reviews = append(reviews, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("iterate review rows", err)
	}
	return reviews, nil
}

// GetValidSummary implements review.Store.
func (s *PostgresStore) GetValidSummary(ctx context.Context, productID int64) (review.Summary, bool, error) {
	summary := review.Summary{ProductID: productID}
	err := s.db.QueryRow(ctx, `
		SELECT content, generated_at, expires_at
		FROM summaries
		WHERE product_id = $1 AND expires_at > $2
	`, productID, s.now()).Scan(&summary.Content, &summary.GeneratedAt, &summary.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return review.Summary{}, false, nil
		}
		return review.Summary{}, false, storeError("get summary", err)
	}
	return summary, true, nil
}

// UpsertSummary implements review.Store.
func (s *PostgresStore) UpsertSummary(ctx context.Context, productID int64, content string) (review.Summary, error) {
	now := s.now()
	summary := review.Summary{
		ProductID:   productID,
		Content:     content,
		GeneratedAt: now,
		ExpiresAt:   now.Add(s.ttl),
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO summaries (product_id, content, generated_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (product_id) DO UPDATE
		SET content = EXCLUDED.content,
		    generated_at = EXCLUDED.generated_at,
		    expires_at = EXCLUDED.expires_at
	`, summary.ProductID, summary.Content, summary.GeneratedAt, summary.ExpiresAt)
	if err != nil {
		return review.Summary{}, storeError("upsert summary", err)
	}
	return summary, nil
}

func storeError(op string, err error) error {
	return apperrors.Wrap(apperrors.CodeStoreFailure, fmt.Sprintf("%s failed", op), err)
}

var _ review.Store = (*PostgresStore)(nil)
