package usecase

import (
	"errors"
	"sync"
	"testing"
	"time"

	"review-catalog/internal/data/entity"
	"review-catalog/internal/dto/request"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestSignup_RejectsReservedUsername(t *testing.T) {
	env := newTestEnv(t)

	for _, tc := range []struct{ username, email string }{
		{"me", "a@x.com"},
		{"me", "other@y.org"},
	} {
		_, err := env.svc.Auth.RequestSignup(env.ctx, &request.SignupRequest{Username: tc.username, Email: tc.email})
		require.ErrorIs(t, err, ErrValidation, tc)

		var fe *FieldError
		require.ErrorAs(t, err, &fe)
		assert.Contains(t, fe.Fields, "username")
	}

	count, err := env.repo.User.CountAll(env.ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, env.notifier.sent)
}

func TestRequestSignup_ReservedNameIsExact(t *testing.T) {
	env := newTestEnv(t)

	for _, username := range []string{"ME", "Me", "meg", "me2"} {
		result, err := env.svc.Auth.RequestSignup(env.ctx, &request.SignupRequest{Username: username, Email: username + "@x.com"})
		require.NoError(t, err, username)
		assert.Equal(t, username, result.User.Username)
	}
}

func TestRequestSignup_Validation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Auth.RequestSignup(env.ctx, &request.SignupRequest{Username: "bad name!", Email: "not-an-email"})
	require.ErrorIs(t, err, ErrValidation)

	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe.Fields, "username")
	assert.Contains(t, fe.Fields, "email")
}

func TestRequestSignup_CreatesUserAndSendsCode(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.svc.Auth.RequestSignup(env.ctx, &request.SignupRequest{Username: "alice", Email: "a@x.com"})
	require.NoError(t, err)
	assert.True(t, result.Delivered)
	assert.Equal(t, "alice", result.User.Username)
	assert.Equal(t, "a@x.com", result.User.Email)

	user, err := env.repo.User.FindByUsername(env.ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, entity.RoleUser, user.Role)
	assert.True(t, env.store.HasCode(user.ID))

	require.Len(t, env.notifier.sent, 1)
	assert.Equal(t, "a@x.com", env.notifier.sent[0].to)
	assert.Len(t, env.notifier.lastCode(t, "a@x.com"), 12)
}

func TestRequestSignup_ExistingPairIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	req := &request.SignupRequest{Username: "alice", Email: "a@x.com"}

	_, err := env.svc.Auth.RequestSignup(env.ctx, req)
	require.NoError(t, err)
	firstCode := env.notifier.lastCode(t, "a@x.com")

	_, err = env.svc.Auth.RequestSignup(env.ctx, req)
	require.NoError(t, err)
	secondCode := env.notifier.lastCode(t, "a@x.com")

	count, err := env.repo.User.CountAll(env.ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	// the new code replaced the old one
	_, err = env.svc.Auth.RedeemToken(env.ctx, &request.TokenRequest{Username: "alice", ConfirmationCode: firstCode})
	assert.ErrorIs(t, err, ErrInvalidCredential)

	_, err = env.svc.Auth.RedeemToken(env.ctx, &request.TokenRequest{Username: "alice", ConfirmationCode: secondCode})
	assert.NoError(t, err)
}

func TestRequestSignup_PartialMatchConflicts(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Auth.RequestSignup(env.ctx, &request.SignupRequest{Username: "alice", Email: "a@x.com"})
	require.NoError(t, err)

	_, err = env.svc.Auth.RequestSignup(env.ctx, &request.SignupRequest{Username: "alice", Email: "other@x.com"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = env.svc.Auth.RequestSignup(env.ctx, &request.SignupRequest{Username: "alicia", Email: "a@x.com"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestRequestSignup_NotifyFailureDegrades(t *testing.T) {
	env := newTestEnv(t)
	env.notifier.err = errors.New("smtp down")

	result, err := env.svc.Auth.RequestSignup(env.ctx, &request.SignupRequest{Username: "alice", Email: "a@x.com"})
	require.NoError(t, err)
	assert.False(t, result.Delivered)

	user, err := env.repo.User.FindByUsername(env.ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.True(t, env.store.HasCode(user.ID))
}

func TestRedeemToken_SingleUse(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Auth.RequestSignup(env.ctx, &request.SignupRequest{Username: "alice", Email: "a@x.com"})
	require.NoError(t, err)
	code := env.notifier.lastCode(t, "a@x.com")

	resp, err := env.svc.Auth.RedeemToken(env.ctx, &request.TokenRequest{Username: "alice", ConfirmationCode: code})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)

	claims, err := env.tokens.Parse(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "user", claims.Role)

	_, err = env.svc.Auth.RedeemToken(env.ctx, &request.TokenRequest{Username: "alice", ConfirmationCode: code})
	require.ErrorIs(t, err, ErrInvalidCredential)

	var fe *FieldError
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe.Fields, "confirmation_code")
}

func TestRedeemToken_Failures(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Auth.RequestSignup(env.ctx, &request.SignupRequest{Username: "alice", Email: "a@x.com"})
	require.NoError(t, err)
	code := env.notifier.lastCode(t, "a@x.com")

	t.Run("unknown user", func(t *testing.T) {
		_, err := env.svc.Auth.RedeemToken(env.ctx, &request.TokenRequest{Username: "nobody", ConfirmationCode: code})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("wrong code", func(t *testing.T) {
		_, err := env.svc.Auth.RedeemToken(env.ctx, &request.TokenRequest{Username: "alice", ConfirmationCode: "WRONGCODE123"})
		assert.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("missing code", func(t *testing.T) {
		_, err := env.svc.Auth.RedeemToken(env.ctx, &request.TokenRequest{Username: "alice"})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("expired code", func(t *testing.T) {
		auth := env.svc.Auth.(*authService)
		auth.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { auth.now = time.Now }()

		_, err := env.svc.Auth.RedeemToken(env.ctx, &request.TokenRequest{Username: "alice", ConfirmationCode: code})
		assert.ErrorIs(t, err, ErrInvalidCredential)
	})

	t.Run("wrong attempts do not burn the code", func(t *testing.T) {
		_, err := env.svc.Auth.RedeemToken(env.ctx, &request.TokenRequest{Username: "alice", ConfirmationCode: code})
		assert.NoError(t, err)
	})
}

func TestRedeemToken_ConcurrentRedemptionSucceedsOnce(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Auth.RequestSignup(env.ctx, &request.SignupRequest{Username: "alice", Email: "a@x.com"})
	require.NoError(t, err)
	code := env.notifier.lastCode(t, "a@x.com")

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		rejected  int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.svc.Auth.RedeemToken(env.ctx, &request.TokenRequest{Username: "alice", ConfirmationCode: code})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrInvalidCredential):
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, rejected)
}

func TestRedeemToken_CarriesCurrentRoleAndVersion(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.Auth.RequestSignup(env.ctx, &request.SignupRequest{Username: "mod", Email: "m@x.com"})
	require.NoError(t, err)

	user, err := env.repo.User.FindByUsername(env.ctx, "mod")
	require.NoError(t, err)
	user.Role = entity.RoleModerator
	user.TokenVersion = 4
	require.NoError(t, env.repo.User.Update(env.ctx, user))

	resp, err := env.svc.Auth.RedeemToken(env.ctx, &request.TokenRequest{
		Username:         "mod",
		ConfirmationCode: env.notifier.lastCode(t, "m@x.com"),
	})
	require.NoError(t, err)

	claims, err := env.tokens.Parse(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "moderator", claims.Role)
	assert.Equal(t, 4, claims.Version)
}
