package usecase

import (
	"context"
	"fmt"

	"review-catalog/internal/data/entity"
	"review-catalog/internal/data/repository"

	"github.com/google/uuid"
)

// recomputeRating rewrites the title's rating from its current review set.
// It must run inside the transaction that changed the reviews, after the
// title row was locked; any error aborts that transaction.
func recomputeRating(ctx context.Context, tx *repository.Repository, titleID uuid.UUID) error {
	scores, err := tx.Review.ScoresByTitleID(ctx, titleID)
	if err != nil {
		return fmt.Errorf("recompute rating of title %s: %w", titleID, err)
	}

	if err := tx.Title.UpdateRating(ctx, titleID, entity.Rating(scores)); err != nil {
		return fmt.Errorf("recompute rating of title %s: %w", titleID, err)
	}

	return nil
}

// authorNames resolves author ids to usernames with one lookup per distinct author.
func authorNames(ctx context.Context, users repository.UserRepository, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(ids))
	for _, id := range ids {
		if _, seen := names[id]; seen {
			continue
		}
		user, err := users.FindByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("find author %s: %w", id, err)
		}
		names[id] = ""
		if user != nil {
			names[id] = user.Username
		}
	}
	return names, nil
}
