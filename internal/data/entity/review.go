package entity

import (
	"github.com/google/uuid"
)

type Review struct {
	BaseSimple
	TitleID  uuid.UUID `db:"title_id"`
	AuthorID uuid.UUID `db:"author_id"`
	Text     string    `db:"text"`
	Score    int       `db:"score"` // 1-10
}

// Rating is floor(mean(scores)), or nil for an empty set.
func Rating(scores []int) *int {
	if len(scores) == 0 {
		return nil
	}
	sum := 0
	for _, score := range scores {
		sum += score
	}
	// scores are positive, so integer division floors
	rating := sum / len(scores)
	return &rating
}
