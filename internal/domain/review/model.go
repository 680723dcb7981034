package review

import "time"

const (
	// DefaultReviewLimit bounds how many of the newest reviews feed one summary.
	DefaultReviewLimit = 10
	// DefaultSummaryTTL is how long a generated summary stays valid.
	DefaultSummaryTTL = 7 * 24 * time.Hour
)

// Config configures summary generation.
type Config struct {
	Prompt      string
	ReviewLimit int
	Coalesce    bool
}

// Review is a single user-submitted rating and text for a product.
type Review struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"-"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
}

// Summary is the cached digest stored for a product.
type Summary struct {
	ProductID   int64     `json:"productId"`
	Content     string    `json:"content"`
	GeneratedAt time.Time `json:"generatedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// ValidAt reports whether the summary is still live at now. Expiry is strict:
// a summary expiring exactly at now is no longer valid.
func (s Summary) ValidAt(now time.Time) bool {
	return s.ExpiresAt.After(now)
}

// ProductReviews is returned by the reviews listing endpoint.
type ProductReviews struct {
	Summary *string  `json:"summary"`
	Reviews []Review `json:"reviews"`
}

// SummaryResponse is returned by the summarize endpoint.
type SummaryResponse struct {
	Summary string `json:"summary"`
}
