package usecase

import (
	"context"
	"fmt"
	"strings"
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

type TitleService interface {
	ListTitles(ctx context.Context, req *request.PaginatedRequest) (*response.PaginatedResponse[response.TitleResponse], error)
	GetTitle(ctx context.Context, id uuid.UUID) (*response.TitleResponse, error)
	CreateTitle(ctx context.Context, actor policy.Actor, req *request.TitleRequest) (*response.TitleResponse, error)
	UpdateTitle(ctx context.Context, actor policy.Actor, id uuid.UUID, req *request.TitleUpdateRequest) (*response.TitleResponse, error)
	DeleteTitle(ctx context.Context, actor policy.Actor, id uuid.UUID) error
}

type titleService struct {
	repo *repository.Repository
	now  func() time.Time
	log  *zap.Logger
}

func NewTitleService(repo *repository.Repository, log *zap.Logger) TitleService {
	return &titleService{
		repo: repo,
		now:  time.Now,
		log:  log.With(zap.String("service", "title")),
	}
}

func (s *titleService) ListTitles(ctx context.Context, req *request.PaginatedRequest) (*response.PaginatedResponse[response.TitleResponse], error) {
	titles, err := s.repo.Title.FindAll(ctx, req.Limit(), req.Offset())
	if err != nil {
		s.log.Error("Failed to list titles", zap.Error(err))
		return nil, fmt.Errorf("list titles: %w", err)
	}

	total, err := s.repo.Title.CountAll(ctx)
	if err != nil {
		s.log.Error("Failed to count titles", zap.Error(err))
		return nil, fmt.Errorf("count titles: %w", err)
	}

	data := make([]response.TitleResponse, 0, len(titles))
	for _, title := range titles {
		resp, err := s.buildTitleResponse(ctx, s.repo, title)
		if err != nil {
			return nil, err
		}
		data = append(data, *resp)
	}

	return response.NewPaginatedResponse(data, req.Page, req.Limit(), total), nil
}

func (s *titleService) GetTitle(ctx context.Context, id uuid.UUID) (*response.TitleResponse, error) {
	title, err := s.repo.Title.FindByID(ctx, id)
	if err != nil {
		s.log.Error("Failed to find title", zap.Error(err), zap.String("title_id", id.String()))
		return nil, fmt.Errorf("find title: %w", err)
	}
	if title == nil {
		return nil, notFound("title", id)
	}

	return s.buildTitleResponse(ctx, s.repo, title)
}

func (s *titleService) CreateTitle(ctx context.Context, actor policy.Actor, req *request.TitleRequest) (*response.TitleResponse, error) {
	if err := authorize(actor, policy.ResourceTitle, policy.ActionCreate, nil); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}
	if err := s.checkYear(req.Year); err != nil {
		return nil, err
	}

	now := s.now()
	title := &entity.Title{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Name:        req.Name,
		Year:        req.Year,
		Description: req.Description,
	}

	var resp *response.TitleResponse
	err := s.repo.Tx.WithTx(ctx, func(tx *repository.Repository) error {
		if req.Category != nil {
			categoryID, err := resolveCategory(ctx, tx, *req.Category)
			if err != nil {
				return err
			}
			title.CategoryID = categoryID
		}

		genres, err := resolveGenres(ctx, tx, req.Genre)
		if err != nil {
			return err
		}

		if err := tx.Title.Create(ctx, title); err != nil {
			return err
		}
		if err := linkGenres(ctx, tx, title.ID, genres); err != nil {
			return err
		}

		resp, err = s.buildTitleResponse(ctx, tx, title)
		return err
	})
	if err != nil {
		return nil, s.failed(err, "create title")
	}

	s.log.Info("Title created",
		zap.String("title_id", title.ID.String()),
		zap.Int("genres", len(resp.Genre)))

	return resp, nil
}

func (s *titleService) UpdateTitle(ctx context.Context, actor policy.Actor, id uuid.UUID, req *request.TitleUpdateRequest) (*response.TitleResponse, error) {
	if err := authorize(actor, policy.ResourceTitle, policy.ActionUpdate, nil); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}
	if req.Year != nil {
		if err := s.checkYear(*req.Year); err != nil {
			return nil, err
		}
	}

	var resp *response.TitleResponse
	err := s.repo.Tx.WithTx(ctx, func(tx *repository.Repository) error {
		title, err := tx.Title.FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if title == nil {
			return notFound("title", id)
		}

		if req.Name != nil {
			title.Name = *req.Name
		}
		if req.Year != nil {
			title.Year = *req.Year
		}
		if req.Description != nil {
			title.Description = req.Description
		}
		if req.Category != nil {
			title.CategoryID = nil
			if *req.Category != "" {
				if title.CategoryID, err = resolveCategory(ctx, tx, *req.Category); err != nil {
					return err
				}
			}
		}
		title.UpdatedAt = s.now()

		if err := tx.Title.Update(ctx, title); err != nil {
			return err
		}

		if req.Genre != nil {
			genres, err := resolveGenres(ctx, tx, req.Genre)
			if err != nil {
				return err
			}
			if err := tx.TitleGenre.DeleteByTitleID(ctx, id); err != nil {
				return err
			}
			if err := linkGenres(ctx, tx, id, genres); err != nil {
				return err
			}
		}

		resp, err = s.buildTitleResponse(ctx, tx, title)
		return err
	})
	if err != nil {
		return nil, s.failed(err, "update title")
	}

	s.log.Info("Title updated", zap.String("title_id", id.String()))
	return resp, nil
}

// DeleteTitle removes the title with its reviews and their comments.
func (s *titleService) DeleteTitle(ctx context.Context, actor policy.Actor, id uuid.UUID) error {
	if err := authorize(actor, policy.ResourceTitle, policy.ActionDelete, nil); err != nil {
		return err
	}

	if err := s.repo.Title.Delete(ctx, id); err != nil {
		return s.failed(mapRepoErr(err, "id", ""), "delete title")
	}

	s.log.Info("Title deleted", zap.String("title_id", id.String()))
	return nil
}

// ==================== HELPER METHODS ====================

func (s *titleService) checkYear(year int) error {
	if current := s.now().Year(); year > current {
		return fieldError(ErrValidation, "year", fmt.Sprintf("Year cannot be later than %d", current))
	}
	return nil
}

func (s *titleService) failed(err error, op string) error {
	if isKnown(err) {
		return err
	}
	s.log.Error("Title operation failed", zap.Error(err), zap.String("op", op))
	return fmt.Errorf("%s: %w", op, err)
}

func (s *titleService) buildTitleResponse(ctx context.Context, repo *repository.Repository, title *entity.Title) (*response.TitleResponse, error) {
	var category *entity.Category
	if title.CategoryID != nil {
		var err error
		category, err = repo.Category.FindByID(ctx, *title.CategoryID)
		if err != nil {
			return nil, fmt.Errorf("find category of title %s: %w", title.ID, err)
		}
	}

	genres, err := repo.Genre.FindByTitleID(ctx, title.ID)
	if err != nil {
		return nil, fmt.Errorf("find genres of title %s: %w", title.ID, err)
	}

	resp := response.TitleToResponse(title, category, genres)
	return &resp, nil
}

func resolveCategory(ctx context.Context, tx *repository.Repository, slug string) (*uuid.UUID, error) {
	category, err := tx.Category.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, fieldError(ErrValidation, "category", fmt.Sprintf("Unknown category %q", slug))
	}
	return &category.ID, nil
}

// resolveGenres fails with ErrValidation naming every slug that does not exist.
func resolveGenres(ctx context.Context, tx *repository.Repository, slugs []string) ([]*entity.Genre, error) {
	slugs = lo.Uniq(slugs)
	if len(slugs) == 0 {
		return nil, nil
	}

	genres, err := tx.Genre.FindBySlugs(ctx, slugs)
	if err != nil {
		return nil, err
	}

	found := lo.Map(genres, func(g *entity.Genre, _ int) string { return g.Slug })
	if missing, _ := lo.Difference(slugs, found); len(missing) > 0 {
		return nil, fieldError(ErrValidation, "genre", "Unknown genre: "+strings.Join(missing, ", "))
	}

	return genres, nil
}

func linkGenres(ctx context.Context, tx *repository.Repository, titleID uuid.UUID, genres []*entity.Genre) error {
	if len(genres) == 0 {
		return nil
	}
	links := lo.Map(genres, func(g *entity.Genre, _ int) *entity.TitleGenre {
		return &entity.TitleGenre{TitleID: titleID, GenreID: g.ID}
	})
	return tx.TitleGenre.CreateBatch(ctx, links)
}
