package repository

import (
	"context"
	"errors"
	"fmt"

	"review-catalog/pkg/database"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned by writes that matched no row. Reads return (nil, nil).
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
)

const pgUniqueViolation = "23505"

// TxManager runs fn against repositories bound to a single transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
type TxManager interface {
	WithTx(ctx context.Context, fn func(tx *Repository) error) error
}

type Repository struct {
	User       UserRepository
	Code       ConfirmationCodeRepository
	Category   CategoryRepository
	Genre      GenreRepository
	Title      TitleRepository
	TitleGenre TitleGenreRepository
	Review     ReviewRepository
	Comment    CommentRepository

	Tx TxManager
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	repo := newRepository(db, log)
	repo.Tx = &pgTxManager{db: db, log: log.With(zap.String("repository", "tx"))}
	return repo
}

func newRepository(db database.DBTX, log *zap.Logger) *Repository {
	return &Repository{
		User:       NewUserRepository(db, log),
		Code:       NewConfirmationCodeRepository(db, log),
		Category:   NewCategoryRepository(db, log),
		Genre:      NewGenreRepository(db, log),
		Title:      NewTitleRepository(db, log),
		TitleGenre: NewTitleGenreRepository(db, log),
		Review:     NewReviewRepository(db, log),
		Comment:    NewCommentRepository(db, log),
	}
}

type pgTxManager struct {
	db  database.PgxIface
	log *zap.Logger
}

func (m *pgTxManager) WithTx(ctx context.Context, fn func(tx *Repository) error) (err error) {
	tx, err := m.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				m.log.Error("Failed to roll back transaction", zap.Error(rbErr))
			}
		}
	}()

	txRepo := newRepository(tx, m.log)
	txRepo.Tx = joinedTx{repo: txRepo}

	if err = fn(txRepo); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// joinedTx lets code that is already inside a transaction call WithTx again.
type joinedTx struct {
	repo *Repository
}

func (j joinedTx) WithTx(_ context.Context, fn func(tx *Repository) error) error {
	return fn(j.repo)
}

// wrapWriteErr maps unique violations to ErrDuplicate and keeps the cause.
func wrapWriteErr(err error, format string, args ...any) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf(format+": %w: %s", append(args, ErrDuplicate, pgErr.ConstraintName)...)
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
