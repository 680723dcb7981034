package review

import "context"

// Store is the persistence contract for products, reviews and summaries.
// Implementations own summary expiry: GetValidSummary must report absent for
// rows whose expiry is not after the current time, and UpsertSummary stamps
// generated/expiry times itself and overwrites all fields in one write.
type Store interface {
	ProductExists(ctx context.Context, productID int64) (bool, error)
	// ListReviews returns reviews newest first. limit <= 0 means no limit.
	ListReviews(ctx context.Context, productID int64, limit int) ([]Review, error)
	GetValidSummary(ctx context.Context, productID int64) (Summary, bool, error)
	UpsertSummary(ctx context.Context, productID int64, content string) (Summary, error)
}

// Summarizer turns a block of review text into a summary.
type Summarizer interface {
	Summarize(ctx context.Context, prompt, reviewText string) (string, error)
}
