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

type GenreService interface {
	ListGenres(ctx context.Context, req *request.PaginatedRequest) (*response.PaginatedResponse[response.GenreResponse], error)
	CreateGenre(ctx context.Context, actor policy.Actor, req *request.GenreRequest) (*response.GenreResponse, error)
	UpdateGenre(ctx context.Context, actor policy.Actor, id uuid.UUID, req *request.GenreUpdateRequest) (*response.GenreResponse, error)
	// DeleteGenre removes the genre from every title that had it.
	DeleteGenre(ctx context.Context, actor policy.Actor, id uuid.UUID) error
}

type genreService struct {
	repo *repository.Repository
	now  func() time.Time
	log  *zap.Logger
}

func NewGenreService(repo *repository.Repository, log *zap.Logger) GenreService {
	return &genreService{
		repo: repo,
		now:  time.Now,
		log:  log.With(zap.String("service", "genre")),
	}
}

func (s *genreService) ListGenres(ctx context.Context, req *request.PaginatedRequest) (*response.PaginatedResponse[response.GenreResponse], error) {
	genres, err := s.repo.Genre.FindAll(ctx, req.Limit(), req.Offset())
	if err != nil {
		s.log.Error("Failed to list genres", zap.Error(err))
		return nil, fmt.Errorf("list genres: %w", err)
	}

	total, err := s.repo.Genre.CountAll(ctx)
	if err != nil {
		s.log.Error("Failed to count genres", zap.Error(err))
		return nil, fmt.Errorf("count genres: %w", err)
	}

	data := lo.Map(genres, func(c *entity.Genre, _ int) response.GenreResponse {
		return response.GenreToResponse(c)
	})
	return response.NewPaginatedResponse(data, req.Page, req.Limit(), total), nil
}

func (s *genreService) CreateGenre(ctx context.Context, actor policy.Actor, req *request.GenreRequest) (*response.GenreResponse, error) {
	if err := authorize(actor, policy.ResourceGenre, policy.ActionCreate, nil); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	genre := &entity.Genre{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: s.now(),
		},
		Name: req.Name,
		Slug: req.Slug,
	}

	if err := s.repo.Genre.Create(ctx, genre); err != nil {
		return nil, s.failed(mapRepoErr(err, "slug", duplicateSlugMessage), "create genre")
	}

	s.log.Info("Genre created",
		zap.String("genre_id", genre.ID.String()),
		zap.String("slug", genre.Slug))

	resp := response.GenreToResponse(genre)
	return &resp, nil
}

func (s *genreService) UpdateGenre(ctx context.Context, actor policy.Actor, id uuid.UUID, req *request.GenreUpdateRequest) (*response.GenreResponse, error) {
	if err := authorize(actor, policy.ResourceGenre, policy.ActionUpdate, nil); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	genre, err := s.repo.Genre.FindByID(ctx, id)
	if err != nil {
		return nil, s.failed(err, "find genre")
	}
	if genre == nil {
		return nil, notFound("genre", id)
	}

	if req.Name != nil {
		genre.Name = *req.Name
	}
	if req.Slug != nil {
		genre.Slug = *req.Slug
	}

	if err := s.repo.Genre.Update(ctx, genre); err != nil {
		return nil, s.failed(mapRepoErr(err, "slug", duplicateSlugMessage), "update genre")
	}

	s.log.Info("Genre updated", zap.String("genre_id", id.String()))

	resp := response.GenreToResponse(genre)
	return &resp, nil
}

func (s *genreService) DeleteGenre(ctx context.Context, actor policy.Actor, id uuid.UUID) error {
	if err := authorize(actor, policy.ResourceGenre, policy.ActionDelete, nil); err != nil {
		return err
	}

	if err := s.repo.Genre.Delete(ctx, id); err != nil {
		return s.failed(mapRepoErr(err, "id", ""), "delete genre")
	}

	s.log.Info("Genre deleted", zap.String("genre_id", id.String()))
	return nil
}

func (s *genreService) failed(err error, op string) error {
	if isKnown(err) {
		return err
	}
	s.log.Error("Genre operation failed", zap.Error(err), zap.String("op", op))
	return fmt.Errorf("%s: %w", op, err)
}
