package usecase

import (
	"context"
	"fmt"
	"time"

	"review-catalog/internal/data/entity"
	"review-catalog/internal/data/repository"
	"review-catalog/internal/dto/request"
	"review-catalog/internal/dto/response"
	"review-catalog/internal/policy"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// ReviewService manages reviews nested under a title. Every mutation locks the
// title, changes the review set and recomputes the rating before committing.
type ReviewService interface {
	ListReviews(ctx context.Context, titleID uuid.UUID, req *request.PaginatedRequest) (*response.PaginatedResponse[response.ReviewResponse], error)
	GetReview(ctx context.Context, titleID, reviewID uuid.UUID) (*response.ReviewResponse, error)
	CreateReview(ctx context.Context, actor policy.Actor, titleID uuid.UUID, req *request.CreateReviewRequest) (*response.ReviewResponse, error)
	UpdateReview(ctx context.Context, actor policy.Actor, titleID, reviewID uuid.UUID, req *request.UpdateReviewRequest) (*response.ReviewResponse, error)
	DeleteReview(ctx context.Context, actor policy.Actor, titleID, reviewID uuid.UUID) error

	// RecomputeRating rewrites the rating of one title from its reviews.
	RecomputeRating(ctx context.Context, titleID uuid.UUID) error
}

type reviewService struct {
	repo *repository.Repository
	now  func() time.Time
	log  *zap.Logger
}

func NewReviewService(repo *repository.Repository, log *zap.Logger) ReviewService {
	return &reviewService{
		repo: repo,
		now:  time.Now,
		log:  log.With(zap.String("service", "review")),
	}
}

func (s *reviewService) ListReviews(ctx context.Context, titleID uuid.UUID, req *request.PaginatedRequest) (*response.PaginatedResponse[response.ReviewResponse], error) {
	title, err := s.repo.Title.FindByID(ctx, titleID)
	if err != nil {
		return nil, fmt.Errorf("find title: %w", err)
	}
	if title == nil {
		return nil, notFound("title", titleID)
	}

	reviews, err := s.repo.Review.FindByTitleID(ctx, titleID, req.Limit(), req.Offset())
	if err != nil {
		s.log.Error("Failed to get title reviews",
			zap.Error(err),
			zap.String("title_id", titleID.String()),
			zap.Int("page", req.Page),
			zap.Int("per_page", req.PerPage),
		)
		return nil, fmt.Errorf("get title reviews: %w", err)
	}

	total, err := s.repo.Review.CountByTitleID(ctx, titleID)
	if err != nil {
		s.log.Error("Failed to count title reviews", zap.Error(err))
		return nil, fmt.Errorf("count title reviews: %w", err)
	}

	names, err := authorNames(ctx, s.repo.User, lo.Map(reviews, func(r *entity.Review, _ int) uuid.UUID {
		return r.AuthorID
	}))
	if err != nil {
		return nil, err
	}

	data := lo.Map(reviews, func(r *entity.Review, _ int) response.ReviewResponse {
		return response.ReviewToResponse(r, names[r.AuthorID])
	})

	return response.NewPaginatedResponse(data, req.Page, req.Limit(), total), nil
}

func (s *reviewService) GetReview(ctx context.Context, titleID, reviewID uuid.UUID) (*response.ReviewResponse, error) {
	review, err := findReview(ctx, s.repo, titleID, reviewID)
	if err != nil {
		return nil, err
	}
	return s.buildReviewResponse(ctx, review)
}

func (s *reviewService) CreateReview(ctx context.Context, actor policy.Actor, titleID uuid.UUID, req *request.CreateReviewRequest) (*response.ReviewResponse, error) {
	if err := authorize(actor, policy.ResourceReview, policy.ActionCreate, nil); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	review := &entity.Review{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: s.now(),
		},
		TitleID:  titleID,
		AuthorID: actor.ID,
		Text:     req.Text,
		Score:    req.Score,
	}

	err := s.mutate(ctx, titleID, func(tx *repository.Repository) error {
		existing, err := tx.Review.FindByAuthorAndTitle(ctx, actor.ID, titleID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fieldError(ErrConflict, "title", duplicateReviewMessage)
		}

		if err := tx.Review.Create(ctx, review); err != nil {
			return mapRepoErr(err, "title", duplicateReviewMessage)
		}
		return nil
	})
	if err != nil {
		return nil, s.mutationErr(err, "create review", titleID)
	}

	s.log.Info("Review created",
		zap.String("review_id", review.ID.String()),
		zap.String("author_id", actor.ID.String()),
		zap.String("title_id", titleID.String()),
		zap.Int("score", review.Score),
	)

	return s.buildReviewResponse(ctx, review)
}

func (s *reviewService) UpdateReview(ctx context.Context, actor policy.Actor, titleID, reviewID uuid.UUID, req *request.UpdateReviewRequest) (*response.ReviewResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	var review *entity.Review
	err := s.mutate(ctx, titleID, func(tx *repository.Repository) error {
		var err error
		review, err = findReview(ctx, tx, titleID, reviewID)
		if err != nil {
			return err
		}
		if err := authorize(actor, policy.ResourceReview, policy.ActionUpdate, &review.AuthorID); err != nil {
			return err
		}

		if req.Text != nil {
			review.Text = *req.Text
		}
		if req.Score != nil {
			review.Score = *req.Score
		}

		return tx.Review.Update(ctx, review)
	})
	if err != nil {
		return nil, s.mutationErr(err, "update review", titleID)
	}

	s.log.Info("Review updated",
		zap.String("review_id", reviewID.String()),
		zap.String("actor_id", actor.ID.String()),
	)

	return s.buildReviewResponse(ctx, review)
}

func (s *reviewService) DeleteReview(ctx context.Context, actor policy.Actor, titleID, reviewID uuid.UUID) error {
	err := s.mutate(ctx, titleID, func(tx *repository.Repository) error {
		review, err := findReview(ctx, tx, titleID, reviewID)
		if err != nil {
			return err
		}
		if err := authorize(actor, policy.ResourceReview, policy.ActionDelete, &review.AuthorID); err != nil {
			return err
		}
		return tx.Review.Delete(ctx, review.ID)
	})
	if err != nil {
		return s.mutationErr(err, "delete review", titleID)
	}

	s.log.Info("Review deleted",
		zap.String("review_id", reviewID.String()),
		zap.String("actor_id", actor.ID.String()),
		zap.String("title_id", titleID.String()),
	)

	return nil
}

func (s *reviewService) RecomputeRating(ctx context.Context, titleID uuid.UUID) error {
	err := s.mutate(ctx, titleID, func(*repository.Repository) error { return nil })
	if err != nil {
		return s.mutationErr(err, "recompute rating", titleID)
	}
	return nil
}

// ==================== HELPER METHODS ====================

const duplicateReviewMessage = "You have already reviewed this title"

// mutate runs change between locking the title and recomputing its rating,
// inside one transaction.
func (s *reviewService) mutate(ctx context.Context, titleID uuid.UUID, change func(tx *repository.Repository) error) error {
	return s.repo.Tx.WithTx(ctx, func(tx *repository.Repository) error {
		title, err := tx.Title.FindByIDForUpdate(ctx, titleID)
		if err != nil {
			return err
		}
		if title == nil {
			return notFound("title", titleID)
		}

		if err := change(tx); err != nil {
			return err
		}

		return recomputeRating(ctx, tx, titleID)
	})
}

func (s *reviewService) mutationErr(err error, op string, titleID uuid.UUID) error {
	if isKnown(err) {
		return err
	}
	s.log.Error("Review transaction failed",
		zap.Error(err),
		zap.String("op", op),
		zap.String("title_id", titleID.String()),
	)
	return fmt.Errorf("%s: %w", op, err)
}

func (s *reviewService) buildReviewResponse(ctx context.Context, review *entity.Review) (*response.ReviewResponse, error) {
	names, err := authorNames(ctx, s.repo.User, []uuid.UUID{review.AuthorID})
	if err != nil {
		return nil, err
	}
	resp := response.ReviewToResponse(review, names[review.AuthorID])
	return &resp, nil
}

// findReview loads a review and checks it belongs to titleID.
func findReview(ctx context.Context, repo *repository.Repository, titleID, reviewID uuid.UUID) (*entity.Review, error) {
	review, err := repo.Review.FindByID(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("find review: %w", err)
	}
	if review == nil || review.TitleID != titleID {
		return nil, notFound("review", reviewID)
	}
	return review, nil
}
