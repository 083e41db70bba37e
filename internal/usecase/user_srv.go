package usecase

import (
	"bytes"
	"context"
	"fmt"
	"sort"
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

type UserService interface {
	// Self service
	GetMe(ctx context.Context, actor policy.Actor) (*response.UserResponse, error)
	UpdateMe(ctx context.Context, actor policy.Actor, req *request.UpdateUserRequest) (*response.UserResponse, error)

	// Admin
	ListUsers(ctx context.Context, actor policy.Actor, req *request.PaginatedRequest) (*response.PaginatedResponse[response.UserResponse], error)
	CreateUser(ctx context.Context, actor policy.Actor, req *request.CreateUserRequest) (*response.UserResponse, error)
	GetUser(ctx context.Context, actor policy.Actor, username string) (*response.UserResponse, error)
	UpdateUser(ctx context.Context, actor policy.Actor, username string, req *request.UpdateUserRequest) (*response.UserResponse, error)
	DeleteUser(ctx context.Context, actor policy.Actor, username string) error
}

type userService struct {
	repo *repository.Repository
	now  func() time.Time
	log  *zap.Logger
}

func NewUserService(repo *repository.Repository, log *zap.Logger) UserService {
	return &userService{
		repo: repo,
		now:  time.Now,
		log:  log.With(zap.String("service", "user")),
	}
}

func (s *userService) GetMe(ctx context.Context, actor policy.Actor) (*response.UserResponse, error) {
	if err := authorize(actor, policy.ResourceUser, policy.ActionRead, &actor.ID); err != nil {
		return nil, err
	}

	user, err := s.findByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	resp := response.UserToResponse(user)
	return &resp, nil
}

// UpdateMe applies a partial profile update. A submitted role is dropped for
// non-admins and the stored role is kept.
func (s *userService) UpdateMe(ctx context.Context, actor policy.Actor, req *request.UpdateUserRequest) (*response.UserResponse, error) {
	if err := authorize(actor, policy.ResourceUser, policy.ActionUpdate, &actor.ID); err != nil {
		return nil, err
	}

	user, err := s.findByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	return s.update(ctx, actor, user, req)
}

func (s *userService) ListUsers(ctx context.Context, actor policy.Actor, req *request.PaginatedRequest) (*response.PaginatedResponse[response.UserResponse], error) {
	if err := authorize(actor, policy.ResourceUser, policy.ActionRead, nil); err != nil {
		return nil, err
	}

	users, err := s.repo.User.FindAll(ctx, req.Limit(), req.Offset())
	if err != nil {
		s.log.Error("Failed to list users", zap.Error(err))
		return nil, fmt.Errorf("list users: %w", err)
	}

	total, err := s.repo.User.CountAll(ctx)
	if err != nil {
		s.log.Error("Failed to count users", zap.Error(err))
		return nil, fmt.Errorf("count users: %w", err)
	}

	data := lo.Map(users, func(u *entity.User, _ int) response.UserResponse {
		return response.UserToResponse(u)
	})
	return response.NewPaginatedResponse(data, req.Page, req.Limit(), total), nil
}

func (s *userService) CreateUser(ctx context.Context, actor policy.Actor, req *request.CreateUserRequest) (*response.UserResponse, error) {
	if err := authorize(actor, policy.ResourceUser, policy.ActionCreate, nil); err != nil {
		return nil, err
	}
	if err := validate(req); err != nil {
		return nil, err
	}
	if req.Username == reservedUsername {
		return nil, fieldError(ErrValidation, "username", `Using "me" as a username is not allowed`)
	}

	role := entity.RoleUser
	if req.Role != nil {
		parsed, err := entity.ParseRole(*req.Role)
		if err != nil {
			return nil, fieldError(ErrValidation, "role", err.Error())
		}
		role = parsed
	}

	now := s.now()
	user := &entity.User{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Bio:       req.Bio,
		Role:      role,
	}

	if err := s.repo.User.Create(ctx, user); err != nil {
		return nil, mapRepoErr(err, "username", "A user with that username or email already exists")
	}

	s.log.Info("User created by admin",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)),
		zap.String("admin_id", actor.ID.String()))

	resp := response.UserToResponse(user)
	return &resp, nil
}

func (s *userService) GetUser(ctx context.Context, actor policy.Actor, username string) (*response.UserResponse, error) {
	if err := authorize(actor, policy.ResourceUser, policy.ActionRead, nil); err != nil {
		return nil, err
	}

	user, err := s.findByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	resp := response.UserToResponse(user)
	return &resp, nil
}

func (s *userService) UpdateUser(ctx context.Context, actor policy.Actor, username string, req *request.UpdateUserRequest) (*response.UserResponse, error) {
	if err := authorize(actor, policy.ResourceUser, policy.ActionUpdate, nil); err != nil {
		return nil, err
	}

	user, err := s.findByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	return s.update(ctx, actor, user, req)
}

// DeleteUser removes the user with their reviews and comments and recomputes
// the rating of every title they had reviewed, all in one transaction.
func (s *userService) DeleteUser(ctx context.Context, actor policy.Actor, username string) error {
	if err := authorize(actor, policy.ResourceUser, policy.ActionDelete, nil); err != nil {
		return err
	}

	var deleted *entity.User
	var titleIDs []uuid.UUID
	err := s.repo.Tx.WithTx(ctx, func(tx *repository.Repository) error {
		user, err := tx.User.FindByUsername(ctx, username)
		if err != nil {
			return err
		}
		if user == nil {
			return notFound("user", username)
		}

		titleIDs, err = tx.Review.TitleIDsByAuthor(ctx, user.ID)
		if err != nil {
			return err
		}

		// lock in a fixed order so concurrent deletes cannot deadlock
		sort.Slice(titleIDs, func(i, j int) bool {
			return bytes.Compare(titleIDs[i][:], titleIDs[j][:]) < 0
		})
		for _, id := range titleIDs {
			if _, err := tx.Title.FindByIDForUpdate(ctx, id); err != nil {
				return err
			}
		}

		if err := tx.User.Delete(ctx, user.ID); err != nil {
			return err
		}

		for _, id := range titleIDs {
			if err := recomputeRating(ctx, tx, id); err != nil {
				return err
			}
		}

		deleted = user
		return nil
	})
	if err != nil {
		if isKnown(err) {
			return err
		}
		s.log.Error("Failed to delete user", zap.Error(err), zap.String("username", username))
		return fmt.Errorf("delete user %s: %w", username, err)
	}

	s.log.Info("User deleted",
		zap.String("user_id", deleted.ID.String()),
		zap.Int("titles_recomputed", len(titleIDs)),
		zap.String("admin_id", actor.ID.String()))

	return nil
}

// ==================== HELPER METHODS ====================

func (s *userService) update(ctx context.Context, actor policy.Actor, user *entity.User, req *request.UpdateUserRequest) (*response.UserResponse, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	if req.Username != nil {
		if *req.Username == reservedUsername {
			return nil, fieldError(ErrValidation, "username", `Using "me" as a username is not allowed`)
		}
		user.Username = *req.Username
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}

	if req.Role != nil && policy.CanChangeRole(actor) {
		role, err := entity.ParseRole(*req.Role)
		if err != nil {
			return nil, fieldError(ErrValidation, "role", err.Error())
		}
		if role != user.Role {
			user.Role = role
			// tokens issued under the old role stop working
			user.TokenVersion++
		}
	}

	user.UpdatedAt = s.now()

	if err := s.repo.User.Update(ctx, user); err != nil {
		if mapped := mapRepoErr(err, "username", "A user with that username or email already exists"); isKnown(mapped) {
			return nil, mapped
		}
		s.log.Error("Failed to update user", zap.Error(err), zap.String("user_id", user.ID.String()))
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.log.Info("User updated",
		zap.String("user_id", user.ID.String()),
		zap.String("actor_id", actor.ID.String()),
		zap.Bool("role_submitted", req.Role != nil))

	resp := response.UserToResponse(user)
	return &resp, nil
}

func (s *userService) findByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	user, err := s.repo.User.FindByID(ctx, id)
	if err != nil {
		s.log.Error("Failed to find user", zap.Error(err), zap.String("user_id", id.String()))
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, notFound("user", id)
	}
	return user, nil
}

func (s *userService) findByUsername(ctx context.Context, username string) (*entity.User, error) {
	user, err := s.repo.User.FindByUsername(ctx, username)
	if err != nil {
		s.log.Error("Failed to find user", zap.Error(err), zap.String("username", username))
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, notFound("user", username)
	}
	return user, nil
}
