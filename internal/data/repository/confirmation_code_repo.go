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

type ConfirmationCodeRepository interface {
	// Upsert stores code as the user's only live code, replacing any previous one.
	Upsert(ctx context.Context, code *entity.ConfirmationCode) error
	// FindByUserIDForUpdate locks the row until the surrounding transaction ends.
	FindByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*entity.ConfirmationCode, error)
	DeleteByUserID(ctx context.Context, userID uuid.UUID) error
}

type confirmationCodeRepository struct {
	db  database.DBTX
	log *zap.Logger
}

func NewConfirmationCodeRepository(db database.DBTX, log *zap.Logger) ConfirmationCodeRepository {
	return &confirmationCodeRepository{
		db:  db,
		log: log.With(zap.String("repository", "confirmation_code")),
	}
}

func (r *confirmationCodeRepository) Upsert(ctx context.Context, code *entity.ConfirmationCode) error {
	query := `
		INSERT INTO confirmation_codes (user_id, code_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET code_hash = EXCLUDED.code_hash,
		    expires_at = EXCLUDED.expires_at,
		    created_at = EXCLUDED.created_at
	`

	_, err := r.db.Exec(ctx, query,
		code.UserID,
		code.CodeHash,
		code.ExpiresAt,
		code.CreatedAt,
	)

	if err != nil {
		r.log.Error("Failed to store confirmation code",
			zap.Error(err),
			zap.String("user_id", code.UserID.String()),
		)
		return fmt.Errorf("store confirmation code for user %s: %w", code.UserID.String(), err)
	}

	return nil
}

func (r *confirmationCodeRepository) FindByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*entity.ConfirmationCode, error) {
	query := `
		SELECT user_id, code_hash, expires_at, created_at
		FROM confirmation_codes
		WHERE user_id = $1
		FOR UPDATE
	`

	var code entity.ConfirmationCode
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&code.UserID,
		&code.CodeHash,
		&code.ExpiresAt,
		&code.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find confirmation code",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return nil, fmt.Errorf("find confirmation code for user %s: %w", userID.String(), err)
	}

	return &code, nil
}

func (r *confirmationCodeRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) error {
	query := `DELETE FROM confirmation_codes WHERE user_id = $1`

	result, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		r.log.Error("Failed to delete confirmation code",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return fmt.Errorf("delete confirmation code for user %s: %w", userID.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("delete confirmation code for user %s: %w", userID.String(), ErrNotFound)
	}

	return nil
}
