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

// CommentService manages comments under a review. The parent review must
// belong to the given title; comments never affect ratings.
type CommentService interface {
	ListComments(ctx context.Context, titleID, reviewID uuid.UUID, req *request.PaginatedRequest) (*response.PaginatedResponse[response.CommentResponse], error)
	GetComment(ctx context.Context, titleID, reviewID, commentID uuid.UUID) (*response.CommentResponse, error)
	CreateComment(ctx context.Context, actor policy.Actor, titleID, reviewID uuid.UUID, req *request.CommentRequest) (*response.CommentResponse, error)
	UpdateComment(ctx context.Context, actor policy.Actor, titleID, reviewID, commentID uuid.UUID, req *request.CommentRequest) (*response.CommentResponse, error)
	DeleteComment(ctx context.Context, actor policy.Actor, titleID, reviewID, commentID uuid.UUID) error
}

type commentService struct {
	repo *repository.Repository
	now  func() time.Time
	log  *zap.Logger
}

func NewCommentService(repo *repository.Repository, log *zap.Logger) CommentService {
	return &commentService{
		repo: repo,
		now:  time.Now,
		log:  log.With(zap.String("service", "comment")),
	}
}

func (s *commentService) ListComments(ctx context.Context, titleID, reviewID uuid.UUID, req *request.PaginatedRequest) (*response.PaginatedResponse[response.CommentResponse], error) {
	if _, err := findReview(ctx, s.repo, titleID, reviewID); err != nil {
		return nil, err
	}

	comments, err := s.repo.Comment.FindByReviewID(ctx, reviewID, req.Limit(), req.Offset())
	if err != nil {
		s.log.Error("Failed to get review comments", zap.Error(err), zap.String("review_id", reviewID.String()))
		return nil, fmt.Errorf("get review comments: %w", err)
	}

	total, err := s.repo.Comment.CountByReviewID(ctx, reviewID)
	if err != nil {
		s.log.Error("Failed to count review comments", zap.Error(err))
		return nil, fmt.Errorf("count review comments: %w", err)
	}

	names, err := authorNames(ctx, s.repo.User, lo.Map(comments, func(c *entity.Comment, _ int) uuid.UUID {
		return c.AuthorID
	}))
	if err != nil {
		return nil, err
	}

	data := lo.Map(comments, func(c *entity.Comment, _ int) response.CommentResponse {
		return response.CommentToResponse(c, names[c.AuthorID])
	})

	return response.NewPaginatedResponse(data, req.Page, req.Limit(), total), nil
}

func (s *commentService) GetComment(ctx context.Context, titleID, reviewID, commentID uuid.UUID) (*response.CommentResponse, error) {
	comment, err := findComment(ctx, s.repo, titleID, reviewID, commentID)
	if err != nil {
		return nil, err
	}
	return s.buildCommentResponse(ctx, comment)
}

func (s *commentService) CreateComment(ctx context.Context, actor policy.Actor, titleID, reviewID uuid.UUID, req *request.CommentRequest) (*response.CommentResponse, error) {
	if err := authorize(actor, policy.ResourceComment, policy.ActionCreate, nil); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	comment := &entity.Comment{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: s.now(),
		},
		ReviewID: reviewID,
		AuthorID: actor.ID,
		Text:     req.Text,
	}

	err := s.repo.Tx.WithTx(ctx, func(tx *repository.Repository) error {
		if _, err := findReview(ctx, tx, titleID, reviewID); err != nil {
			return err
		}
		return tx.Comment.Create(ctx, comment)
	})
	if err != nil {
		return nil, s.failed(err, "create comment", reviewID)
	}

	s.log.Info("Comment created",
		zap.String("comment_id", comment.ID.String()),
		zap.String("review_id", reviewID.String()),
		zap.String("author_id", actor.ID.String()),
	)

	return s.buildCommentResponse(ctx, comment)
}

func (s *commentService) UpdateComment(ctx context.Context, actor policy.Actor, titleID, reviewID, commentID uuid.UUID, req *request.CommentRequest) (*response.CommentResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	comment, err := findComment(ctx, s.repo, titleID, reviewID, commentID)
	if err != nil {
		return nil, err
	}
	if err := authorize(actor, policy.ResourceComment, policy.ActionUpdate, &comment.AuthorID); err != nil {
		return nil, err
	}

	comment.Text = req.Text
	if err := s.repo.Comment.Update(ctx, comment); err != nil {
		return nil, s.failed(mapRepoErr(err, "id", ""), "update comment", reviewID)
	}

	s.log.Info("Comment updated",
		zap.String("comment_id", commentID.String()),
		zap.String("actor_id", actor.ID.String()),
	)

	return s.buildCommentResponse(ctx, comment)
}

func (s *commentService) DeleteComment(ctx context.Context, actor policy.Actor, titleID, reviewID, commentID uuid.UUID) error {
	comment, err := findComment(ctx, s.repo, titleID, reviewID, commentID)
	if err != nil {
		return err
	}
	if err := authorize(actor, policy.ResourceComment, policy.ActionDelete, &comment.AuthorID); err != nil {
		return err
	}

	if err := s.repo.Comment.Delete(ctx, commentID); err != nil {
		return s.failed(mapRepoErr(err, "id", ""), "delete comment", reviewID)
	}

	s.log.Info("Comment deleted",
		zap.String("comment_id", commentID.String()),
		zap.String("actor_id", actor.ID.String()),
	)

	return nil
}

// ==================== HELPER METHODS ====================

func (s *commentService) failed(err error, op string, reviewID uuid.UUID) error {
	if isKnown(err) {
		return err
	}
	s.log.Error("Comment operation failed",
		zap.Error(err),
		zap.String("op", op),
		zap.String("review_id", reviewID.String()),
	)
	return fmt.Errorf("%s: %w", op, err)
}

func (s *commentService) buildCommentResponse(ctx context.Context, comment *entity.Comment) (*response.CommentResponse, error) {
	names, err := authorNames(ctx, s.repo.User, []uuid.UUID{comment.AuthorID})
	if err != nil {
		return nil, err
	}
	resp := response.CommentToResponse(comment, names[comment.AuthorID])
	return &resp, nil
}

// findComment resolves the full title -> review -> comment chain.
func findComment(ctx context.Context, repo *repository.Repository, titleID, reviewID, commentID uuid.UUID) (*entity.Comment, error) {
	if _, err := findReview(ctx, repo, titleID, reviewID); err != nil {
		return nil, err
	}

	comment, err := repo.Comment.FindByID(ctx, commentID)
	if err != nil {
		return nil, fmt.Errorf("find comment: %w", err)
	}
	if comment == nil || comment.ReviewID != reviewID {
		return nil, notFound("comment", commentID)
	}
	return comment, nil
}
