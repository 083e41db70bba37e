package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"review-catalog/internal/data/entity"
	"review-catalog/internal/data/repository"
	"review-catalog/internal/dto/request"
	"review-catalog/internal/dto/response"
	"review-catalog/pkg/notifier"
	"review-catalog/pkg/token"
	"review-catalog/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// reservedUsername collides with the /users/me route.
const reservedUsername = "me"

const signupSubject = "Your confirmation code"

// SignupResult reports whether the confirmation code reached the user.
// A false Delivered still means the user and code were stored.
type SignupResult struct {
	User      response.SignupResponse
	Delivered bool
}

type AuthService interface {
	RequestSignup(ctx context.Context, req *request.SignupRequest) (*SignupResult, error)
	RedeemToken(ctx context.Context, req *request.TokenRequest) (*response.TokenResponse, error)
}

type authService struct {
	repo     *repository.Repository
	tokens   *token.Manager
	notifier notifier.Notifier
	config   *utils.Config
	now      func() time.Time
	log      *zap.Logger
}

func NewAuthService(
	repo *repository.Repository,
	tokens *token.Manager,
	notify notifier.Notifier,
	config *utils.Config,
	log *zap.Logger,
) AuthService {
	return &authService{
		repo:     repo,
		tokens:   tokens,
		notifier: notify,
		config:   config,
		now:      time.Now,
		log:      log.With(zap.String("service", "auth")),
	}
}

func (s *authService) RequestSignup(ctx context.Context, req *request.SignupRequest) (*SignupResult, error) {
	// 1. Validate input
	if err := validate(req); err != nil {
		s.log.Warn("Signup validation failed", zap.Error(err))
		return nil, err
	}
	if req.Username == reservedUsername {
		return nil, fieldError(ErrValidation, "username", `Using "me" as a username is not allowed`)
	}

	// 2. Generate the code; only its hash is stored
	code, err := utils.GenerateConfirmationCode(s.config.Code.Length)
	if err != nil {
		return nil, fmt.Errorf("generate confirmation code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash confirmation code: %w", err)
	}

	// 3. Find or create the user and replace any previous code
	var user *entity.User
	var created bool
	signup := func(tx *repository.Repository) error {
		u, c, err := createOrFetch(ctx, tx, req.Username, req.Email, s.now())
		if err != nil {
			return err
		}
		user, created = u, c

		now := s.now()
		return tx.Code.Upsert(ctx, &entity.ConfirmationCode{
			UserID:    user.ID,
			CodeHash:  string(hash),
			ExpiresAt: now.Add(time.Duration(s.config.Code.ExpiryMinutes) * time.Minute),
			CreatedAt: now,
		})
	}

	err = s.repo.Tx.WithTx(ctx, signup)
	if errors.Is(err, repository.ErrDuplicate) {
		// a concurrent signup inserted the same user first; the retry fetches it
		err = s.repo.Tx.WithTx(ctx, signup)
	}
	if err != nil {
		if !errors.Is(err, ErrConflict) {
			s.log.Error("Failed to register signup", zap.Error(err), zap.String("username", req.Username))
		}
		return nil, mapRepoErr(err, "username", "A user with that username or email already exists")
	}

	// 4. Dispatch the code; failure degrades the result instead of undoing the signup
	result := &SignupResult{User: response.SignupToResponse(user)}

	body := fmt.Sprintf("Hello %s,\n\nYour confirmation code is: %s\n\nExchange it at /auth/token. It expires in %d minutes.\n",
		user.Username, code, s.config.Code.ExpiryMinutes)
	if err := s.notifier.Notify(ctx, user.Email, signupSubject, body); err != nil {
		s.log.Error("Failed to deliver confirmation code",
			zap.Error(err),
			zap.String("user_id", user.ID.String()))
	} else {
		result.Delivered = true
	}

	s.log.Info("Signup requested",
		zap.String("user_id", user.ID.String()),
		zap.Bool("created", created),
		zap.Bool("delivered", result.Delivered))

	return result, nil
}

func (s *authService) RedeemToken(ctx context.Context, req *request.TokenRequest) (*response.TokenResponse, error) {
	// 1. Validate input
	if err := validate(req); err != nil {
		return nil, err
	}

	// 2. Find user
	user, err := s.repo.User.FindByUsername(ctx, req.Username)
	if err != nil {
		s.log.Error("Failed to find user", zap.Error(err), zap.String("username", req.Username))
		return nil, fmt.Errorf("find user %s: %w", req.Username, err)
	}
	if user == nil {
		return nil, notFound("user", req.Username)
	}

	// 3. Consume the code and sign the token atomically
	var resp *response.TokenResponse
	err = s.repo.Tx.WithTx(ctx, func(tx *repository.Repository) error {
		stored, err := tx.Code.FindByUserIDForUpdate(ctx, user.ID)
		if err != nil {
			return err
		}
		if stored == nil || stored.Expired(s.now()) ||
			bcrypt.CompareHashAndPassword([]byte(stored.CodeHash), []byte(req.ConfirmationCode)) != nil {
			return fieldError(ErrInvalidCredential, "confirmation_code", "Invalid or expired confirmation code")
		}

		if err := tx.Code.DeleteByUserID(ctx, user.ID); err != nil {
			return err
		}

		// the row lock makes this read current
		current, err := tx.User.FindByID(ctx, user.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return notFound("user", req.Username)
		}

		signed, expiresAt, err := s.tokens.Issue(token.Subject{
			ID:       current.ID,
			Username: current.Username,
			Role:     string(current.Role),
			Version:  current.TokenVersion,
		})
		if err != nil {
			return err
		}

		resp = &response.TokenResponse{Token: signed, ExpiresAt: expiresAt}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidCredential) {
			s.log.Warn("Confirmation code rejected", zap.String("user_id", user.ID.String()))
			return nil, err
		}
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		s.log.Error("Failed to redeem confirmation code", zap.Error(err), zap.String("user_id", user.ID.String()))
		return nil, fmt.Errorf("redeem confirmation code: %w", err)
	}

	s.log.Info("Token issued", zap.String("user_id", user.ID.String()))
	return resp, nil
}

// createOrFetch returns the user matching both username and email, creates
// one when neither is taken, and fails with ErrConflict when only one matches.
func createOrFetch(ctx context.Context, tx *repository.Repository, username, email string, now time.Time) (*entity.User, bool, error) {
	byName, err := tx.User.FindByUsername(ctx, username)
	if err != nil {
		return nil, false, err
	}
	byEmail, err := tx.User.FindByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}

	switch {
	case byName != nil && byEmail != nil && byName.ID == byEmail.ID:
		return byName, false, nil
	case byName != nil:
		return nil, false, fieldError(ErrConflict, "username", "Username is already taken")
	case byEmail != nil:
		return nil, false, fieldError(ErrConflict, "email", "Email is already registered")
	}

	user := &entity.User{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Username: username,
		Email:    email,
		Role:     entity.RoleUser,
	}
	if err := tx.User.Create(ctx, user); err != nil {
		return nil, false, err
	}

	return user, true, nil
}
