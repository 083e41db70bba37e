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

type GenreRepository interface {
	Create(ctx context.Context, genre *entity.Genre) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Genre, error)
	FindBySlugs(ctx context.Context, slugs []string) ([]*entity.Genre, error)
	FindByTitleID(ctx context.Context, titleID uuid.UUID) ([]*entity.Genre, error)
	FindAll(ctx context.Context, limit, offset int) ([]*entity.Genre, error)
	CountAll(ctx context.Context) (int64, error)
	Update(ctx context.Context, genre *entity.Genre) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type genreRepository struct {
	db  database.DBTX
	log *zap.Logger
}

func NewGenreRepository(db database.DBTX, log *zap.Logger) GenreRepository {
	return &genreRepository{
		db:  db,
		log: log.With(zap.String("repository", "genre")),
	}
}

func (r *genreRepository) Create(ctx context.Context, genre *entity.Genre) error {
	query := `INSERT INTO genres (id, name, slug, created_at) VALUES ($1, $2, $3, $4)`

	_, err := r.db.Exec(ctx, query, genre.ID, genre.Name, genre.Slug, genre.CreatedAt)
	if err != nil {
		r.log.Error("Failed to create genre",
			zap.Error(err),
			zap.String("slug", genre.Slug),
		)
		return wrapWriteErr(err, "create genre %s", genre.Slug)
	}

	return nil
}

func (r *genreRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Genre, error) {
	query := `SELECT id, name, slug, created_at FROM genres WHERE id = $1`

	var genre entity.Genre
	err := r.db.QueryRow(ctx, query, id).Scan(
		&genre.ID,
		&genre.Name,
		&genre.Slug,
		&genre.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find genre by ID",
			zap.Error(err),
			zap.String("genre_id", id.String()),
		)
		return nil, fmt.Errorf("find genre by id: %w", err)
	}

	return &genre, nil
}

// FindBySlugs returns the genres that exist among slugs; missing slugs are simply absent.
func (r *genreRepository) FindBySlugs(ctx context.Context, slugs []string) ([]*entity.Genre, error) {
	if len(slugs) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, name, slug, created_at
		FROM genres
		WHERE slug = ANY($1)
		ORDER BY name
	`

	rows, err := r.db.Query(ctx, query, slugs)
	if err != nil {
		r.log.Error("Failed to find genres by slugs",
			zap.Error(err),
			zap.Strings("slugs", slugs),
		)
		return nil, fmt.Errorf("find genres by slugs: %w", err)
	}

	return r.scanGenres(rows)
}

func (r *genreRepository) FindByTitleID(ctx context.Context, titleID uuid.UUID) ([]*entity.Genre, error) {
	query := `
		SELECT g.id, g.name, g.slug, g.created_at
		FROM genres g
		INNER JOIN title_genres tg ON g.id = tg.genre_id
		WHERE tg.title_id = $1
		ORDER BY g.name
	`

	rows, err := r.db.Query(ctx, query, titleID)
	if err != nil {
		r.log.Error("Failed to find genres by title ID",
			zap.Error(err),
			zap.String("title_id", titleID.String()),
		)
		return nil, fmt.Errorf("find genres by title id: %w", err)
	}

	return r.scanGenres(rows)
}

func (r *genreRepository) FindAll(ctx context.Context, limit, offset int) ([]*entity.Genre, error) {
	query := `
		SELECT id, name, slug, created_at
		FROM genres
		ORDER BY name, slug
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		r.log.Error("Failed to find genres",
			zap.Error(err),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
		)
		return nil, fmt.Errorf("find genres: %w", err)
	}

	return r.scanGenres(rows)
}

func (r *genreRepository) scanGenres(rows pgx.Rows) ([]*entity.Genre, error) {
	defer rows.Close()

	var genres []*entity.Genre
	for rows.Next() {
		var genre entity.Genre
		if err := rows.Scan(&genre.ID, &genre.Name, &genre.Slug, &genre.CreatedAt); err != nil {
			r.log.Error("Failed to scan genre row", zap.Error(err))
			return nil, fmt.Errorf("scan genre row: %w", err)
		}
		genres = append(genres, &genre)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate genre rows: %w", err)
	}

	return genres, nil
}

func (r *genreRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM genres`).Scan(&count); err != nil {
		r.log.Error("Failed to count genres", zap.Error(err))
		return 0, fmt.Errorf("count genres: %w", err)
	}
	return count, nil
}

func (r *genreRepository) Update(ctx context.Context, genre *entity.Genre) error {
	query := `UPDATE genres SET name = $2, slug = $3 WHERE id = $1`

	result, err := r.db.Exec(ctx, query, genre.ID, genre.Name, genre.Slug)
	if err != nil {
		r.log.Error("Failed to update genre",
			zap.Error(err),
			zap.String("genre_id", genre.ID.String()),
		)
		return wrapWriteErr(err, "update genre %s", genre.ID.String())
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("update genre %s: %w", genre.ID.String(), ErrNotFound)
	}

	return nil
}

func (r *genreRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM genres WHERE id = $1`, id)
	if err != nil {
		r.log.Error("Failed to delete genre",
			zap.Error(err),
			zap.String("genre_id", id.String()),
		)
		return fmt.Errorf("delete genre %s: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("delete genre %s: %w", id.String(), ErrNotFound)
	}

	r.log.Info("Genre deleted", zap.String("genre_id", id.String()))
	return nil
}
