package usecase

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"review-catalog/internal/data/entity"
	"review-catalog/internal/data/repository"
	"review-catalog/internal/data/repository/repotest"
	"review-catalog/internal/policy"
	"review-catalog/pkg/token"
	"review-catalog/pkg/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type sentMessage struct {
	to, subject, body string
}

// recordingNotifier keeps every message and fails while err is set.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentMessage{to: to, subject: subject, body: body})
	return nil
}

// lastCode extracts the confirmation code from the latest message to addr.
func (n *recordingNotifier) lastCode(t *testing.T, addr string) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()

	for i := len(n.sent) - 1; i >= 0; i-- {
		if n.sent[i].to != addr {
			continue
		}
		_, rest, ok := strings.Cut(n.sent[i].body, "Your confirmation code is: ")
		require.True(t, ok, "message has no code")
		code, _, _ := strings.Cut(rest, "\n")
		return code
	}
	t.Fatalf("no message sent to %s", addr)
	return ""
}

type testEnv struct {
	store    *repotest.Store
	repo     *repository.Repository
	svc      *Service
	tokens   *token.Manager
	notifier *recordingNotifier
	ctx      context.Context
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := repotest.New()
	repo := store.Repository()
	tokens := token.NewManager(testSecret, "review-catalog", time.Hour)
	notify := &recordingNotifier{}
	config := &utils.Config{
		JWT:  utils.JWTConfig{Secret: testSecret, Issuer: "review-catalog", ExpiryHours: 1},
		Code: utils.CodeConfig{Length: 12, ExpiryMinutes: 60},
	}

	return &testEnv{
		store:    store,
		repo:     repo,
		svc:      NewService(repo, tokens, notify, config, zap.NewNop()),
		tokens:   tokens,
		notifier: notify,
		ctx:      context.Background(),
	}
}

// seedUser stores a user and returns the matching actor.
func (e *testEnv) seedUser(t *testing.T, username string, role entity.Role) policy.Actor {
	t.Helper()
	now := time.Now()
	user := &entity.User{
		Base:     entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Username: username,
		Email:    username + "@x.com",
		Role:     role,
	}
	require.NoError(t, e.repo.User.Create(e.ctx, user))
	return policy.Actor{ID: user.ID, Role: role}
}

func (e *testEnv) seedTitle(t *testing.T, name string) uuid.UUID {
	t.Helper()
	now := time.Now()
	title := &entity.Title{
		Base: entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Name: name,
		Year: 1999,
	}
	require.NoError(t, e.repo.Title.Create(e.ctx, title))
	return title.ID
}

func (e *testEnv) rating(t *testing.T, titleID uuid.UUID) *int {
	t.Helper()
	rating, ok := e.store.TitleRating(titleID)
	require.True(t, ok, "title %s missing", titleID)
	return rating
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }
