package usecase

import (
	"testing"

	"review-catalog/internal/data/entity"
	"review-catalog/internal/dto/request"
	"review-catalog/internal/policy"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComments_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "alice", entity.RoleUser)
	bob := env.seedUser(t, "bob", entity.RoleUser)
	mod := env.seedUser(t, "mod", entity.RoleModerator)
	title := env.seedTitle(t, "Persona")

	review, err := env.svc.Review.CreateReview(env.ctx, alice, title, &request.CreateReviewRequest{Text: "x", Score: 8})
	require.NoError(t, err)
	reviewID := mustUUID(t, review.ID)

	comment, err := env.svc.Comment.CreateComment(env.ctx, bob, title, reviewID, &request.CommentRequest{Text: "agreed"})
	require.NoError(t, err)
	assert.Equal(t, "bob", comment.Author)
	commentID := mustUUID(t, comment.ID)

	_, err = env.svc.Comment.CreateComment(env.ctx, policy.Anonymous(), title, reviewID, &request.CommentRequest{Text: "hi"})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = env.svc.Comment.CreateComment(env.ctx, bob, title, reviewID, &request.CommentRequest{})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.svc.Comment.UpdateComment(env.ctx, alice, title, reviewID, commentID, &request.CommentRequest{Text: "hijack"})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	updated, err := env.svc.Comment.UpdateComment(env.ctx, bob, title, reviewID, commentID, &request.CommentRequest{Text: "strongly agreed"})
	require.NoError(t, err)
	assert.Equal(t, "strongly agreed", updated.Text)

	page, err := env.svc.Comment.ListComments(env.ctx, title, reviewID, &request.PaginatedRequest{Page: 1, PerPage: 10})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)

	require.NoError(t, env.svc.Comment.DeleteComment(env.ctx, mod, title, reviewID, commentID))
	assert.Zero(t, env.store.CommentCount())

	// comments never touch the rating
	assert.Equal(t, intPtr(8), env.rating(t, title))
}

func TestComments_ParentScoping(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "alice", entity.RoleUser)
	first := env.seedTitle(t, "First")
	second := env.seedTitle(t, "Second")

	r1, err := env.svc.Review.CreateReview(env.ctx, alice, first, &request.CreateReviewRequest{Text: "x", Score: 5})
	require.NoError(t, err)
	r2, err := env.svc.Review.CreateReview(env.ctx, alice, second, &request.CreateReviewRequest{Text: "y", Score: 5})
	require.NoError(t, err)

	comment, err := env.svc.Comment.CreateComment(env.ctx, alice, first, mustUUID(t, r1.ID), &request.CommentRequest{Text: "c"})
	require.NoError(t, err)

	// review exists but under another title
	_, err = env.svc.Comment.CreateComment(env.ctx, alice, first, mustUUID(t, r2.ID), &request.CommentRequest{Text: "c"})
	assert.ErrorIs(t, err, ErrNotFound)

	// comment exists but under another review
	_, err = env.svc.Comment.GetComment(env.ctx, second, mustUUID(t, r2.ID), mustUUID(t, comment.ID))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.svc.Comment.ListComments(env.ctx, first, uuid.New(), &request.PaginatedRequest{Page: 1, PerPage: 10})
	assert.ErrorIs(t, err, ErrNotFound)
}
