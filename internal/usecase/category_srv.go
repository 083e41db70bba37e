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

const duplicateSlugMessage = "Slug is already in use"

type CategoryService interface {
	ListCategories(ctx context.Context, req *request.PaginatedRequest) (*response.PaginatedResponse[response.CategoryResponse], error)
	CreateCategory(ctx context.Context, actor policy.Actor, req *request.CategoryRequest) (*response.CategoryResponse, error)
	UpdateCategory(ctx context.Context, actor policy.Actor, id uuid.UUID, req *request.CategoryUpdateRequest) (*response.CategoryResponse, error)
	// DeleteCategory keeps the titles of the category and clears their category.
	DeleteCategory(ctx context.Context, actor policy.Actor, id uuid.UUID) error
}

type categoryService struct {
	repo *repository.Repository
	now  func() time.Time
	log  *zap.Logger
}

func NewCategoryService(repo *repository.Repository, log *zap.Logger) CategoryService {
	return &categoryService{
		repo: repo,
		now:  time.Now,
		log:  log.With(zap.String("service", "category")),
	}
}

func (s *categoryService) ListCategories(ctx context.Context, req *request.PaginatedRequest) (*response.PaginatedResponse[response.CategoryResponse], error) {
	categories, err := s.repo.Category.FindAll(ctx, req.Limit(), req.Offset())
	if err != nil {
		s.log.Error("Failed to list categories", zap.Error(err))
		return nil, fmt.Errorf("list categories: %w", err)
	}

	total, err := s.repo.Category.CountAll(ctx)
	if err != nil {
		s.log.Error("Failed to count categories", zap.Error(err))
		return nil, fmt.Errorf("count categories: %w", err)
	}

	data := lo.Map(categories, func(c *entity.Category, _ int) response.CategoryResponse {
		return response.CategoryToResponse(c)
	})
	return response.NewPaginatedResponse(data, req.Page, req.Limit(), total), nil
}

func (s *categoryService) CreateCategory(ctx context.Context, actor policy.Actor, req *request.CategoryRequest) (*response.CategoryResponse, error) {
	if err := authorize(actor, policy.ResourceCategory, policy.ActionCreate, nil); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	category := &entity.Category{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: s.now(),
		},
		Name: req.Name,
		Slug: req.Slug,
	}

	if err := s.repo.Category.Create(ctx, category); err != nil {
		return nil, s.failed(mapRepoErr(err, "slug", duplicateSlugMessage), "create category")
	}

	s.log.Info("Category created",
		zap.String("category_id", category.ID.String()),
		zap.String("slug", category.Slug))

	resp := response.CategoryToResponse(category)
	return &resp, nil
}

func (s *categoryService) UpdateCategory(ctx context.Context, actor policy.Actor, id uuid.UUID, req *request.CategoryUpdateRequest) (*response.CategoryResponse, error) {
	if err := authorize(actor, policy.ResourceCategory, policy.ActionUpdate, nil); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	category, err := s.repo.Category.FindByID(ctx, id)
	if err != nil {
		return nil, s.failed(err, "find category")
	}
	if category == nil {
		return nil, notFound("category", id)
	}

	if req.Name != nil {
		category.Name = *req.Name
	}
	if req.Slug != nil {
		category.Slug = *req.Slug
	}

	if err := s.repo.Category.Update(ctx, category); err != nil {
		return nil, s.failed(mapRepoErr(err, "slug", duplicateSlugMessage), "update category")
	}

	s.log.Info("Category updated", zap.String("category_id", id.String()))

	resp := response.CategoryToResponse(category)
	return &resp, nil
}

func (s *categoryService) DeleteCategory(ctx context.Context, actor policy.Actor, id uuid.UUID) error {
	if err := authorize(actor, policy.ResourceCategory, policy.ActionDelete, nil); err != nil {
		return err
	}

	if err := s.repo.Category.Delete(ctx, id); err != nil {
		return s.failed(mapRepoErr(err, "id", ""), "delete category")
	}

	s.log.Info("Category deleted", zap.String("category_id", id.String()))
	return nil
}

func (s *categoryService) failed(err error, op string) error {
	if isKnown(err) {
		return err
	}
	s.log.Error("Category operation failed", zap.Error(err), zap.String("op", op))
	return fmt.Errorf("%s: %w", op, err)
}
