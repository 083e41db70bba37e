package repository

import (
	"context"
	"errors"
	"fmt"

	"review-catalog/internal/data/entity"
	"review-catalog/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type TitleRepository interface {
	Create(ctx context.Context, title *entity.Title) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Title, error)
	// FindByIDForUpdate locks the title row; review mutations take this lock first
	// so that changes to one title's review set are serialized.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Title, error)
	FindAll(ctx context.Context, limit, offset int) ([]*entity.Title, error)
	CountAll(ctx context.Context) (int64, error)
	// Update writes every column except rating.
	Update(ctx context.Context, title *entity.Title) error
	Delete(ctx context.Context, id uuid.UUID) error

	UpdateRating(ctx context.Context, titleID uuid.UUID, rating *int) error
}

type titleRepository struct {
	db  database.DBTX
	log *zap.Logger
}

func NewTitleRepository(db database.DBTX, log *zap.Logger) TitleRepository {
	return &titleRepository{
		db:  db,
		log: log.With(zap.String("repository", "title")),
	}
}

const titleColumns = `id, name, year, description, category_id, rating, created_at, updated_at`

func scanTitle(row pgx.Row, title *entity.Title) error {
	return row.Scan(
		&title.ID,
		&title.Name,
		&title.Year,
		&title.Description,
		&title.CategoryID,
		&title.Rating,
		&title.CreatedAt,
		&title.UpdatedAt,
	)
}

func (r *titleRepository) Create(ctx context.Context, title *entity.Title) error {
	query := `
		INSERT INTO titles (id, name, year, description, category_id, rating,
		                    created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(ctx, query,
		title.ID,
		title.Name,
		title.Year,
		title.Description,
		title.CategoryID,
		title.Rating,
		title.CreatedAt,
		title.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create title",
			zap.Error(err),
			zap.String("name", title.Name),
		)
		return wrapWriteErr(err, "create title %s", title.Name)
	}

	return nil
}

func (r *titleRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Title, error) {
	return r.findOne(ctx, `SELECT `+titleColumns+` FROM titles WHERE id = $1`, id)
}

func (r *titleRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Title, error) {
	return r.findOne(ctx, `SELECT `+titleColumns+` FROM titles WHERE id = $1 FOR UPDATE`, id)
}

func (r *titleRepository) findOne(ctx context.Context, query string, id uuid.UUID) (*entity.Title, error) {
	var title entity.Title
	err := scanTitle(r.db.QueryRow(ctx, query, id), &title)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find title",
			zap.Error(err),
			zap.String("title_id", id.String()),
		)
		return nil, fmt.Errorf("find title %s: %w", id.String(), err)
	}

	return &title, nil
}

func (r *titleRepository) FindAll(ctx context.Context, limit, offset int) ([]*entity.Title, error) {
	query := `SELECT ` + titleColumns + `
		FROM titles
		ORDER BY created_at, id
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		r.log.Error("Failed to find titles",
			zap.Error(err),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
		)
		return nil, fmt.Errorf("find titles: %w", err)
	}
	defer rows.Close()

	var titles []*entity.Title
	for rows.Next() {
		var title entity.Title
		if err := scanTitle(rows, &title); err != nil {
			r.log.Error("Failed to scan title row", zap.Error(err))
			return nil, fmt.Errorf("scan title row: %w", err)
		}
		titles = append(titles, &title)
	}

	if err := rows.Err(); err != nil {
		r.log.Error("Rows iteration error", zap.Error(err))
		return nil, fmt.Errorf("iterate title rows: %w", err)
	}

	return titles, nil
}

func (r *titleRepository) CountAll(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM titles`).Scan(&total); err != nil {
		r.log.Error("Failed to count titles", zap.Error(err))
		return 0, fmt.Errorf("count titles: %w", err)
	}
	return total, nil
}

func (r *titleRepository) Update(ctx context.Context, title *entity.Title) error {
	query := `
		UPDATE titles
		SET name = $2, year = $3, description = $4, category_id = $5, updated_at = $6
		WHERE id = $1
	`

	result, err := r.db.Exec(ctx, query,
		title.ID,
		title.Name,
		title.Year,
		title.Description,
		title.CategoryID,
		title.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to update title",
			zap.Error(err),
			zap.String("title_id", title.ID.String()),
		)
		return wrapWriteErr(err, "update title %s", title.ID.String())
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("update title %s: %w", title.ID.String(), ErrNotFound)
	}

	return nil
}

// Delete removes the title together with its reviews, comments and genre links.
func (r *titleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM titles WHERE id = $1`, id)
	if err != nil {
		r.log.Error("Failed to delete title",
			zap.Error(err),
			zap.String("title_id", id.String()),
		)
		return fmt.Errorf("delete title %s: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("delete title %s: %w", id.String(), ErrNotFound)
	}

	r.log.Info("Title deleted", zap.String("title_id", id.String()))
	return nil
}

func (r *titleRepository) UpdateRating(ctx context.Context, titleID uuid.UUID, rating *int) error {
	query := `UPDATE titles SET rating = $2 WHERE id = $1`

	result, err := r.db.Exec(ctx, query, titleID, rating)
	if err != nil {
		r.log.Error("Failed to update title rating",
			zap.Error(err),
			zap.String("title_id", titleID.String()),
		)
		return fmt.Errorf("update rating of title %s: %w", titleID.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("update rating of title %s: %w", titleID.String(), ErrNotFound)
	}

	return nil
}
