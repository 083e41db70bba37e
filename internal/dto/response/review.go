package response

import (
	"time"

	"review-catalog/internal/data/entity"
)

type ReviewResponse struct {
	ID      string    `json:"id"`
	TitleID string    `json:"title_id"`
	Text    string    `json:"text"`
	Author  string    `json:"author"`
	Score   int       `json:"score"`
	PubDate time.Time `json:"pub_date"`
}

// Helper converter
func ReviewToResponse(review *entity.Review, author string) ReviewResponse {
	return ReviewResponse{
		ID:      review.ID.String(),
		TitleID: review.TitleID.String(),
		Text:    review.Text,
		Author:  author,
		Score:   review.Score,
		PubDate: review.CreatedAt,
	}
}
