package usecase

import (
	"testing"

	"review-catalog/internal/data/entity"
	"review-catalog/internal/dto/request"
	"review-catalog/internal/policy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateMe_DropsRoleForNonAdmins(t *testing.T) {
	env := newTestEnv(t)

	for _, role := range []entity.Role{entity.RoleUser, entity.RoleModerator} {
		actor := env.seedUser(t, "someone_"+string(role), role)

		resp, err := env.svc.User.UpdateMe(env.ctx, actor, &request.UpdateUserRequest{
			Bio:  strPtr("hello"),
			Role: strPtr("admin"),
		})
		require.NoError(t, err)
		assert.Equal(t, "hello", resp.Bio)
		assert.Equal(t, role, resp.Role)

		stored, err := env.repo.User.FindByID(env.ctx, actor.ID)
		require.NoError(t, err)
		assert.Equal(t, role, stored.Role)
		assert.Equal(t, "hello", stored.Bio)
		assert.Zero(t, stored.TokenVersion)
	}
}

func TestUpdateMe_Anonymous(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.User.GetMe(env.ctx, policy.Anonymous())
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = env.svc.User.UpdateMe(env.ctx, policy.Anonymous(), &request.UpdateUserRequest{Bio: strPtr("x")})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestUpdateMe_UsernameRules(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "alice", entity.RoleUser)
	env.seedUser(t, "bob", entity.RoleUser)

	_, err := env.svc.User.UpdateMe(env.ctx, alice, &request.UpdateUserRequest{Username: strPtr("me")})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.svc.User.UpdateMe(env.ctx, alice, &request.UpdateUserRequest{Username: strPtr("bob")})
	assert.ErrorIs(t, err, ErrConflict)

	resp, err := env.svc.User.GetMe(env.ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "alice", resp.Username)
}

func TestAdminUpdateUser_ChangesRoleAndRevokesTokens(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedUser(t, "root", entity.RoleAdmin)
	alice := env.seedUser(t, "alice", entity.RoleUser)

	resp, err := env.svc.User.UpdateUser(env.ctx, admin, "alice", &request.UpdateUserRequest{Role: strPtr("moderator")})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleModerator, resp.Role)

	stored, err := env.repo.User.FindByID(env.ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleModerator, stored.Role)
	assert.Equal(t, 1, stored.TokenVersion)

	// same role again does not bump
	_, err = env.svc.User.UpdateUser(env.ctx, admin, "alice", &request.UpdateUserRequest{Role: strPtr("moderator")})
	require.NoError(t, err)
	stored, err = env.repo.User.FindByID(env.ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.TokenVersion)

	_, err = env.svc.User.UpdateUser(env.ctx, admin, "alice", &request.UpdateUserRequest{Role: strPtr("anonymous")})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAdminEndpoints_DenyNonAdmins(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "alice", entity.RoleUser)
	mod := env.seedUser(t, "mod", entity.RoleModerator)

	for _, actor := range []policy.Actor{alice, mod, policy.Anonymous()} {
		_, err := env.svc.User.ListUsers(env.ctx, actor, &request.PaginatedRequest{Page: 1, PerPage: 10})
		assert.ErrorIs(t, err, ErrPermissionDenied)

		_, err = env.svc.User.GetUser(env.ctx, actor, "alice")
		assert.ErrorIs(t, err, ErrPermissionDenied)

		_, err = env.svc.User.UpdateUser(env.ctx, actor, "alice", &request.UpdateUserRequest{Role: strPtr("admin")})
		assert.ErrorIs(t, err, ErrPermissionDenied)

		assert.ErrorIs(t, env.svc.User.DeleteUser(env.ctx, actor, "alice"), ErrPermissionDenied)
	}
}

func TestAdminCreateAndListUsers(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedUser(t, "root", entity.RoleAdmin)

	created, err := env.svc.User.CreateUser(env.ctx, admin, &request.CreateUserRequest{
		Username: "carol",
		Email:    "c@x.com",
		Role:     strPtr("moderator"),
	})
	require.NoError(t, err)
	assert.Equal(t, entity.RoleModerator, created.Role)

	_, err = env.svc.User.CreateUser(env.ctx, admin, &request.CreateUserRequest{Username: "carol", Email: "c2@x.com"})
	assert.ErrorIs(t, err, ErrConflict)

	page, err := env.svc.User.ListUsers(env.ctx, admin, &request.PaginatedRequest{Page: 1, PerPage: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Pagination.Total)
	assert.Equal(t, "carol", page.Data[0].Username)

	_, err = env.svc.User.GetUser(env.ctx, admin, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteUser_RecomputesRatings(t *testing.T) {
	env := newTestEnv(t)
	admin := env.seedUser(t, "root", entity.RoleAdmin)
	alice := env.seedUser(t, "alice", entity.RoleUser)
	bob := env.seedUser(t, "bob", entity.RoleUser)
	first := env.seedTitle(t, "First")
	second := env.seedTitle(t, "Second")

	review, err := env.svc.Review.CreateReview(env.ctx, alice, first, &request.CreateReviewRequest{Text: "x", Score: 10})
	require.NoError(t, err)
	_, err = env.svc.Review.CreateReview(env.ctx, bob, first, &request.CreateReviewRequest{Text: "x", Score: 2})
	require.NoError(t, err)
	_, err = env.svc.Review.CreateReview(env.ctx, alice, second, &request.CreateReviewRequest{Text: "x", Score: 9})
	require.NoError(t, err)
	_, err = env.svc.Comment.CreateComment(env.ctx, bob, first, mustUUID(t, review.ID), &request.CommentRequest{Text: "agree"})
	require.NoError(t, err)

	assert.Equal(t, intPtr(6), env.rating(t, first))

	require.NoError(t, env.svc.User.DeleteUser(env.ctx, admin, "alice"))

	assert.Equal(t, intPtr(2), env.rating(t, first))
	assert.Nil(t, env.rating(t, second))
	assert.Equal(t, 1, env.store.ReviewCount())
	// bob's comment went with alice's review
	assert.Zero(t, env.store.CommentCount())

	assert.ErrorIs(t, env.svc.User.DeleteUser(env.ctx, admin, "alice"), ErrNotFound)
}
