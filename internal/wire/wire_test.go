package wire

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"review-catalog/internal/data/entity"
	"review-catalog/internal/data/repository"
	"review-catalog/internal/data/repository/repotest"
	"review-catalog/pkg/middleware"
	"review-catalog/pkg/ratelimit"
	"review-catalog/pkg/token"
	"review-catalog/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type inbox struct {
	mu     sync.Mutex
	bodies map[string]string
	err    error
}

func (n *inbox) Notify(_ context.Context, to, _, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.bodies[to] = body
	return nil
}

func (n *inbox) code(t *testing.T, to string) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	_, rest, ok := strings.Cut(n.bodies[to], "Your confirmation code is: ")
	require.True(t, ok, "no code sent to %s", to)
	code, _, _ := strings.Cut(rest, "\n")
	return code
}

type server struct {
	handler http.Handler
	repo    *repository.Repository
	tokens  *token.Manager
	inbox   *inbox
}

func newServer(t *testing.T, limiter middleware.Limiter) *server {
	t.Helper()

	if limiter == nil {
		kl := ratelimit.New(1000, 1000, time.Minute)
		t.Cleanup(kl.Stop)
		limiter = kl
	}

	repo := repotest.New().Repository()
	tokens := token.NewManager(testSecret, "review-catalog", time.Hour)
	notify := &inbox{bodies: map[string]string{}}
	config := &utils.Config{
		JWT:  utils.JWTConfig{Secret: testSecret, Issuer: "review-catalog", ExpiryHours: 1},
		Code: utils.CodeConfig{Length: 12, ExpiryMinutes: 60},
		CORS: utils.CORSConfig{AllowedOrigins: []string{"*"}},
	}

	app := Wiring(repo, tokens, notify, limiter, config, zap.NewNop())
	return &server{handler: app.Router, repo: repo, tokens: tokens, inbox: notify}
}

func (s *server) do(t *testing.T, method, path string, body any, bearer string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	r := httptest.NewRequest(method, path, reader)
	r.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		r.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, r)
	return w
}

// seed stores a user with role and returns a bearer token for it.
func (s *server) seed(t *testing.T, username string, role entity.Role) string {
	t.Helper()
	now := time.Now()
	user := &entity.User{
		Base:     entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Username: username,
		Email:    username + "@x.com",
		Role:     role,
	}
	require.NoError(t, s.repo.User.Create(context.Background(), user))

	tok, _, err := s.tokens.Issue(token.Subject{ID: user.ID, Username: username, Role: string(role)})
	require.NoError(t, err)
	return tok
}

type envelope struct {
	Status  bool              `json:"status"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func TestHealth(t *testing.T) {
	s := newServer(t, nil)
	w := s.do(t, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestSignupTokenAndProfile(t *testing.T) {
	s := newServer(t, nil)

	w := s.do(t, http.MethodPost, "/auth/signup", map[string]string{"username": "alice", "email": "a@x.com"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var signup map[string]string
	decode(t, w, &signup)
	assert.Equal(t, map[string]string{"username": "alice", "email": "a@x.com"}, signup)

	w = s.do(t, http.MethodPost, "/auth/token", map[string]string{
		"username":          "alice",
		"confirmation_code": s.inbox.code(t, "a@x.com"),
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var tok struct {
		Token string `json:"token"`
	}
	decode(t, w, &tok)
	require.NotEmpty(t, tok.Token)

	w = s.do(t, http.MethodGet, "/users/me", nil, tok.Token)
	require.Equal(t, http.StatusOK, w.Code)
	var me map[string]any
	decode(t, w, &me)
	assert.Equal(t, "alice", me["username"])
	assert.Equal(t, "user", me["role"])

	// role is silently kept, the rest applies
	w = s.do(t, http.MethodPatch, "/users/me", map[string]string{"role": "admin", "bio": "film nerd"}, tok.Token)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &me)
	assert.Equal(t, "user", me["role"])
	assert.Equal(t, "film nerd", me["bio"])

	// the code was single use
	w = s.do(t, http.MethodPost, "/auth/token", map[string]string{
		"username":          "alice",
		"confirmation_code": s.inbox.code(t, "a@x.com"),
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignup_Rejections(t *testing.T) {
	s := newServer(t, nil)

	w := s.do(t, http.MethodPost, "/auth/signup", map[string]string{"username": "me", "email": "me@x.com"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w, nil)
	assert.Contains(t, env.Errors, "username")

	w = s.do(t, http.MethodPost, "/auth/signup", map[string]string{"username": "bob", "email": "not-an-email"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	r := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, r)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignup_UndeliveredCodeIsAccepted(t *testing.T) {
	s := newServer(t, nil)
	s.inbox.err = errors.New("smtp down")

	w := s.do(t, http.MethodPost, "/auth/signup", map[string]string{"username": "alice", "email": "a@x.com"}, "")
	assert.Equal(t, http.StatusAccepted, w.Code)
	env := decode(t, w, nil)
	assert.True(t, env.Status)
}

func TestToken_WrongCode(t *testing.T) {
	s := newServer(t, nil)
	require.Equal(t, http.StatusOK,
		s.do(t, http.MethodPost, "/auth/signup", map[string]string{"username": "alice", "email": "a@x.com"}, "").Code)

	w := s.do(t, http.MethodPost, "/auth/token", map[string]string{"username": "alice", "confirmation_code": "wrong"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w, nil)
	assert.Contains(t, env.Errors, "confirmation_code")

	w = s.do(t, http.MethodPost, "/auth/token", map[string]string{"username": "ghost", "confirmation_code": "x"}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUserAdministration(t *testing.T) {
	s := newServer(t, nil)
	admin := s.seed(t, "root", entity.RoleAdmin)
	bob := s.seed(t, "bob", entity.RoleUser)

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/users", nil, "").Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/users", nil, bob).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/users/me", nil, "").Code)

	w := s.do(t, http.MethodGet, "/users", nil, admin)
	require.Equal(t, http.StatusOK, w.Code)
	var page struct {
		Pagination struct {
			Total int64 `json:"total"`
		} `json:"pagination"`
	}
	decode(t, w, &page)
	assert.Equal(t, int64(2), page.Pagination.Total)

	w = s.do(t, http.MethodPost, "/users", map[string]string{"username": "carol", "email": "c@x.com", "role": "moderator"}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/users", map[string]string{"username": "carol", "email": "other@x.com"}, admin)
	assert.Equal(t, http.StatusConflict, w.Code)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/users/nobody", nil, admin).Code)

	// changing bob's role revokes his outstanding token
	w = s.do(t, http.MethodPatch, "/users/bob", map[string]string{"role": "moderator"}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/users/me", nil, bob).Code)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/users/carol", nil, admin).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/users/carol", nil, admin).Code)
}

func TestCatalogReviewsAndComments(t *testing.T) {
	s := newServer(t, nil)
	admin := s.seed(t, "root", entity.RoleAdmin)
	alice := s.seed(t, "alice", entity.RoleUser)
	bob := s.seed(t, "bob", entity.RoleUser)
	mod := s.seed(t, "mod", entity.RoleModerator)

	// catalog writes are admin only
	assert.Equal(t, http.StatusForbidden,
		s.do(t, http.MethodPost, "/categories", map[string]string{"name": "Films", "slug": "films"}, mod).Code)
	require.Equal(t, http.StatusCreated,
		s.do(t, http.MethodPost, "/categories", map[string]string{"name": "Films", "slug": "films"}, admin).Code)
	assert.Equal(t, http.StatusConflict,
		s.do(t, http.MethodPost, "/categories", map[string]string{"name": "Movies", "slug": "films"}, admin).Code)
	require.Equal(t, http.StatusCreated,
		s.do(t, http.MethodPost, "/genres", map[string]string{"name": "Drama", "slug": "drama"}, admin).Code)

	w := s.do(t, http.MethodPost, "/titles", map[string]any{
		"name": "Heat", "year": 1995, "category": "films", "genre": []string{"drama"},
	}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var title struct {
		ID       string  `json:"id"`
		Rating   *int    `json:"rating"`
		Category *struct {
			Slug string `json:"slug"`
		} `json:"category"`
		Genre []struct {
			Slug string `json:"slug"`
		} `json:"genre"`
	}
	decode(t, w, &title)
	require.NotNil(t, title.Category)
	assert.Equal(t, "films", title.Category.Slug)
	require.Len(t, title.Genre, 1)
	assert.Nil(t, title.Rating)

	reviews := "/titles/" + title.ID + "/reviews"

	assert.Equal(t, http.StatusUnauthorized,
		s.do(t, http.MethodPost, reviews, map[string]any{"text": "anon", "score": 5}, "").Code)
	assert.Equal(t, http.StatusBadRequest,
		s.do(t, http.MethodPost, reviews, map[string]any{"text": "x", "score": 11}, alice).Code)

	w = s.do(t, http.MethodPost, reviews, map[string]any{"text": "great", "score": 8}, alice)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var aliceReview struct {
		ID     string `json:"id"`
		Author string `json:"author"`
	}
	decode(t, w, &aliceReview)
	assert.Equal(t, "alice", aliceReview.Author)

	w = s.do(t, http.MethodPost, reviews, map[string]any{"text": "meh", "score": 4}, bob)
	require.Equal(t, http.StatusCreated, w.Code)
	var bobReview struct {
		ID string `json:"id"`
	}
	decode(t, w, &bobReview)

	decode(t, s.do(t, http.MethodGet, "/titles/"+title.ID, nil, ""), &title)
	require.NotNil(t, title.Rating)
	assert.Equal(t, 6, *title.Rating)

	assert.Equal(t, http.StatusConflict,
		s.do(t, http.MethodPost, reviews, map[string]any{"text": "again", "score": 1}, alice).Code)

	// owners only, moderators may delete anything
	assert.Equal(t, http.StatusForbidden,
		s.do(t, http.MethodPatch, reviews+"/"+aliceReview.ID, map[string]any{"score": 1}, bob).Code)
	assert.Equal(t, http.StatusNoContent,
		s.do(t, http.MethodDelete, reviews+"/"+aliceReview.ID, nil, mod).Code)

	decode(t, s.do(t, http.MethodGet, "/titles/"+title.ID, nil, ""), &title)
	require.NotNil(t, title.Rating)
	assert.Equal(t, 4, *title.Rating)

	comments := reviews + "/" + bobReview.ID + "/comments"
	w = s.do(t, http.MethodPost, comments, map[string]string{"text": "agreed"}, alice)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var comment struct {
		ID string `json:"id"`
	}
	decode(t, w, &comment)

	assert.Equal(t, http.StatusForbidden,
		s.do(t, http.MethodPatch, comments+"/"+comment.ID, map[string]string{"text": "edited"}, bob).Code)
	assert.Equal(t, http.StatusOK,
		s.do(t, http.MethodPatch, comments+"/"+comment.ID, map[string]string{"text": "edited"}, alice).Code)

	w = s.do(t, http.MethodGet, comments, nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Data []struct {
			Text string `json:"text"`
		} `json:"data"`
	}
	decode(t, w, &list)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "edited", list.Data[0].Text)

	// deleting the title takes its reviews along
	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/titles/"+title.ID, nil, admin).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, reviews, nil, "").Code)
}

func TestUnknownIDs(t *testing.T) {
	s := newServer(t, nil)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/titles/not-a-uuid", nil, "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/titles/"+uuid.NewString(), nil, "").Code)
	assert.Equal(t, http.StatusNotFound,
		s.do(t, http.MethodGet, "/titles/"+uuid.NewString()+"/reviews/"+uuid.NewString(), nil, "").Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/nowhere", nil, "").Code)
}

func TestBadBearerIsRejected(t *testing.T) {
	s := newServer(t, nil)
	// a broken token is an error even on public routes
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/titles", nil, "garbage").Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/titles", nil, "").Code)
}

func TestAuthRoutesAreRateLimited(t *testing.T) {
	limiter := ratelimit.New(0.001, 2, time.Minute)
	t.Cleanup(limiter.Stop)
	s := newServer(t, limiter)

	body := map[string]string{"username": "alice", "email": "a@x.com"}
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/auth/signup", body, "").Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/auth/signup", body, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, s.do(t, http.MethodPost, "/auth/signup", body, "").Code)

	// other routes are not limited
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/titles", nil, "").Code)
}

func TestTitlePatchClearsCategory(t *testing.T) {
	s := newServer(t, nil)
	admin := s.seed(t, "root", entity.RoleAdmin)
	require.Equal(t, http.StatusCreated,
		s.do(t, http.MethodPost, "/categories", map[string]string{"name": "Films", "slug": "films"}, admin).Code)

	w := s.do(t, http.MethodPost, "/titles", map[string]any{"name": "Ran", "year": 1985, "category": "films"}, admin)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var title struct {
		ID       string          `json:"id"`
		Name     string          `json:"name"`
		Category *struct {
			Slug string `json:"slug"`
		} `json:"category"`
	}
	decode(t, w, &title)
	require.NotNil(t, title.Category)

	// null leaves the category alone
	w = s.do(t, http.MethodPatch, "/titles/"+title.ID, map[string]any{"category": nil, "name": "Ran (1985)"}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &title)
	assert.Equal(t, "Ran (1985)", title.Name)
	require.NotNil(t, title.Category)
	assert.Equal(t, "films", title.Category.Slug)

	// an empty string detaches it
	w = s.do(t, http.MethodPatch, "/titles/"+title.ID, map[string]any{"category": ""}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &title)
	assert.Nil(t, title.Category)

	assert.Equal(t, http.StatusBadRequest,
		s.do(t, http.MethodPatch, "/titles/"+title.ID, map[string]any{"category": "no spaces"}, admin).Code)
}
