package repository

import (
	"context"
	"fmt"

	"review-catalog/internal/data/entity"
	"review-catalog/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type TitleGenreRepository interface {
	// Bridge table operations
	DeleteByTitleID(ctx context.Context, titleID uuid.UUID) error
	CreateBatch(ctx context.Context, links []*entity.TitleGenre) error
}

type titleGenreRepository struct {
	db  database.DBTX
	log *zap.Logger
}

func NewTitleGenreRepository(db database.DBTX, log *zap.Logger) TitleGenreRepository {
	return &titleGenreRepository{
		db:  db,
		log: log.With(zap.String("repository", "title_genre")),
	}
}

func (r *titleGenreRepository) DeleteByTitleID(ctx context.Context, titleID uuid.UUID) error {
	query := `DELETE FROM title_genres WHERE title_id = $1`

	if _, err := r.db.Exec(ctx, query, titleID); err != nil {
		r.log.Error("Failed to delete title_genres by title ID",
			zap.Error(err),
			zap.String("title_id", titleID.String()),
		)
		return fmt.Errorf("delete title_genres of %s: %w", titleID.String(), err)
	}

	return nil
}

func (r *titleGenreRepository) CreateBatch(ctx context.Context, links []*entity.TitleGenre) error {
	if len(links) == 0 {
		return nil
	}

	// Build batch insert
	query := `INSERT INTO title_genres (title_id, genre_id) VALUES `
	args := make([]any, 0, len(links)*2)

	for i, link := range links {
		if i > 0 {
			query += ", "
		}
		query += fmt.Sprintf("($%d, $%d)", i*2+1, i*2+2)
		args = append(args, link.TitleID, link.GenreID)
	}
	query += ` ON CONFLICT DO NOTHING`

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		r.log.Error("Failed to create batch title_genres",
			zap.Error(err),
			zap.Int("count", len(links)),
		)
		return fmt.Errorf("create batch title_genres: %w", err)
	}

	return nil
}
