package response

import (
	"time"

	"review-catalog/internal/data/entity"
)

type CommentResponse struct {
	ID       string    `json:"id"`
	ReviewID string    `json:"review_id"`
	Text     string    `json:"text"`
	Author   string    `json:"author"`
	PubDate  time.Time `json:"pub_date"`
}

func CommentToResponse(comment *entity.Comment, author string) CommentResponse {
	return CommentResponse{
		ID:       comment.ID.String(),
		ReviewID: comment.ReviewID.String(),
		Text:     comment.Text,
		Author:   author,
		PubDate:  comment.CreatedAt,
	}
}
