package reviewstore

import (
	"time"

	"github.com/yanqian/review-digest/internal/domain/review"
)

// SeedDemo fills a memory store with a small catalogue so the UI has
// something to show when no database is configured. Product 2 is the page's
// default.
func SeedDemo(s *MemoryStore) {
	base := s.now().Add(-72 * time.Hour)
	demo := []struct {
		productID int64
		reviews   []review.Review
	}{
		{productID: 1, reviews: []review.Review{
			{Author: "Priya", Content: "Fits well and the fabric feels durable.", Rating: 4},
		}},
		{productID: 2, reviews: []review.Review{
			{Author: "Alex", Content: "Battery easily lasts two days. Charging is quick.", Rating: 5},
			{Author: "Sam", Content: "Screen scratches too easily and the case is sold separately.", Rating: 2},
			{Author: "Jordan", Content: "Good value overall, though the speaker is a bit quiet.", Rating: 4},
			{Author: "Lee", Content: "Setup took five minutes. Works as advertised.", Rating: 4},
		}},
		{productID: 3},
	}
	for _, p := range demo {
		s.AddProduct(p.productID)
		for i, r := range p.reviews {
			r.CreatedAt = base.Add(time.Duration(i) * time.Hour)
			s.AddReview(p.productID, r)
		}
	}
}
