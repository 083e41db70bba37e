//go:build integration

package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"review-catalog/internal/data/entity"
	"review-catalog/internal/data/repository"
	"review-catalog/internal/dto/request"
	"review-catalog/internal/policy"
	"review-catalog/pkg/database"
	"review-catalog/pkg/token"
	"review-catalog/pkg/utils"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

type pgEnv struct {
	repo     *repository.Repository
	svc      *Service
	notifier *recordingNotifier
}

// newPostgresEnv starts a throwaway Postgres, migrates it and wires the
// services to the real repositories.
// Run with: go test -tags=integration ./internal/usecase/...
func newPostgresEnv(t *testing.T) *pgEnv {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("catalog"),
		postgres.WithUsername("catalog"),
		postgres.WithPassword("catalog"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	db := database.NewFromPool(pool)
	t.Cleanup(db.Close)

	require.NoError(t, database.Migrate(ctx, db, zap.NewNop()))

	repo := repository.NewRepository(db, zap.NewNop())
	notify := &recordingNotifier{}
	config := &utils.Config{
		JWT:  utils.JWTConfig{Secret: testSecret, Issuer: "review-catalog", ExpiryHours: 1},
		Code: utils.CodeConfig{Length: 12, ExpiryMinutes: 60},
	}
	tokens := token.NewManager(testSecret, "review-catalog", time.Hour)

	return &pgEnv{
		repo:     repo,
		svc:      NewService(repo, tokens, notify, config, zap.NewNop()),
		notifier: notify,
	}
}

func (e *pgEnv) seedUser(t *testing.T, username string) policy.Actor {
	t.Helper()
	now := time.Now()
	user := &entity.User{
		Base:     entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Username: username,
		Email:    username + "@x.com",
		Role:     entity.RoleUser,
	}
	require.NoError(t, e.repo.User.Create(context.Background(), user))
	return policy.Actor{ID: user.ID, Role: user.Role}
}

func (e *pgEnv) seedTitle(t *testing.T) uuid.UUID {
	t.Helper()
	now := time.Now()
	title := &entity.Title{
		Base: entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Name: "Solaris",
		Year: 1972,
	}
	require.NoError(t, e.repo.Title.Create(context.Background(), title))
	return title.ID
}

func TestPostgres_ConcurrentReviewsKeepRatingConsistent(t *testing.T) {
	env := newPostgresEnv(t)
	ctx := context.Background()
	titleID := env.seedTitle(t)

	const n = 12
	actors := make([]policy.Actor, n)
	for i := range actors {
		actors[i] = env.seedUser(t, fmt.Sprintf("critic%d", i))
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range actors {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.Review.CreateReview(ctx, actors[i], titleID,
				&request.CreateReviewRequest{Text: "take", Score: i%10 + 1})
		}(i)
	}
	wg.Wait()

	sum := 0
	for i, err := range errs {
		require.NoError(t, err)
		sum += i%10 + 1
	}

	title, err := env.repo.Title.FindByID(ctx, titleID)
	require.NoError(t, err)
	require.NotNil(t, title.Rating)
	assert.Equal(t, sum/n, *title.Rating)
}

func TestPostgres_DuplicateReviewRace(t *testing.T) {
	env := newPostgresEnv(t)
	ctx := context.Background()
	titleID := env.seedTitle(t)
	alice := env.seedUser(t, "alice")

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.Review.CreateReview(ctx, alice, titleID,
				&request.CreateReviewRequest{Text: "mine", Score: 7})
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, ErrConflict)
	}
	assert.Equal(t, 1, created)

	count, err := env.repo.Review.CountByTitleID(ctx, titleID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	title, err := env.repo.Title.FindByID(ctx, titleID)
	require.NoError(t, err)
	require.NotNil(t, title.Rating)
	assert.Equal(t, 7, *title.Rating)
}

func TestPostgres_CodeRedeemedOnce(t *testing.T) {
	env := newPostgresEnv(t)
	ctx := context.Background()

	_, err := env.svc.Auth.RequestSignup(ctx, &request.SignupRequest{Username: "carol", Email: "c@x.com"})
	require.NoError(t, err)
	code := env.notifier.lastCode(t, "c@x.com")

	const attempts = 6
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.Auth.RedeemToken(ctx, &request.TokenRequest{Username: "carol", ConfirmationCode: code})
		}(i)
	}
	wg.Wait()

	issued := 0
	for _, err := range errs {
		if err == nil {
			issued++
			continue
		}
		assert.ErrorIs(t, err, ErrInvalidCredential)
	}
	assert.Equal(t, 1, issued)
}

func TestPostgres_DeleteUserRecomputesRatings(t *testing.T) {
	env := newPostgresEnv(t)
	ctx := context.Background()
	titleID := env.seedTitle(t)
	alice := env.seedUser(t, "alice")
	bob := env.seedUser(t, "bob")
	admin := policy.Actor{ID: uuid.New(), Role: entity.RoleAdmin}

	_, err := env.svc.Review.CreateReview(ctx, alice, titleID, &request.CreateReviewRequest{Text: "a", Score: 10})
	require.NoError(t, err)
	_, err = env.svc.Review.CreateReview(ctx, bob, titleID, &request.CreateReviewRequest{Text: "b", Score: 2})
	require.NoError(t, err)

	require.NoError(t, env.svc.User.DeleteUser(ctx, admin, "alice"))

	title, err := env.repo.Title.FindByID(ctx, titleID)
	require.NoError(t, err)
	require.NotNil(t, title.Rating)
	assert.Equal(t, 2, *title.Rating)
}
