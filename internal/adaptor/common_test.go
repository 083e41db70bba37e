package adaptor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"review-catalog/internal/usecase"
	"review-catalog/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type envelope struct {
	Status  bool              `json:"status"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

func TestWriteServiceError(t *testing.T) {
	signedIn := utils.SetUserContext(context.Background(), uuid.New(), "alice", "user")

	tests := []struct {
		name       string
		err        error
		ctx        context.Context
		wantStatus int
		wantFields map[string]string
		wantLevel  string
	}{
		{
			name:       "validation keeps field messages",
			err:        &usecase.FieldError{Kind: usecase.ErrValidation, Fields: map[string]string{"username": "reserved"}},
			ctx:        signedIn,
			wantStatus: http.StatusBadRequest,
			wantFields: map[string]string{"username": "reserved"},
			wantLevel:  "warn",
		},
		{
			name:       "invalid credential",
			err:        &usecase.FieldError{Kind: usecase.ErrInvalidCredential, Fields: map[string]string{"confirmation_code": "invalid"}},
			ctx:        context.Background(),
			wantStatus: http.StatusBadRequest,
			wantFields: map[string]string{"confirmation_code": "invalid"},
			wantLevel:  "warn",
		},
		{
			name:       "wrapped not found",
			err:        fmt.Errorf("get title: %w", usecase.ErrNotFound),
			ctx:        context.Background(),
			wantStatus: http.StatusNotFound,
			wantLevel:  "warn",
		},
		{
			name:       "conflict",
			err:        &usecase.FieldError{Kind: usecase.ErrConflict, Fields: map[string]string{"slug": "taken"}},
			ctx:        signedIn,
			wantStatus: http.StatusConflict,
			wantFields: map[string]string{"slug": "taken"},
			wantLevel:  "warn",
		},
		{
			name:       "denied for a signed in actor",
			err:        usecase.ErrPermissionDenied,
			ctx:        signedIn,
			wantStatus: http.StatusForbidden,
			wantLevel:  "warn",
		},
		{
			name:       "denied for an anonymous actor",
			err:        usecase.ErrPermissionDenied,
			ctx:        context.Background(),
			wantStatus: http.StatusUnauthorized,
			wantLevel:  "warn",
		},
		{
			name:       "unknown error",
			err:        errors.New("connection reset"),
			ctx:        signedIn,
			wantStatus: http.StatusInternalServerError,
			wantLevel:  "error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.DebugLevel)
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(tt.ctx)

			writeServiceError(zap.New(core), w, r, tt.err, "do thing")

			assert.Equal(t, tt.wantStatus, w.Code)
			var body envelope
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.False(t, body.Status)
			assert.Equal(t, tt.wantFields, body.Errors)

			require.Equal(t, 1, logs.Len())
			assert.Equal(t, tt.wantLevel, logs.All()[0].Level.String())
		})
	}
}

func TestUUIDParam_MalformedIsNotFound(t *testing.T) {
	router := chi.NewRouter()
	var got uuid.UUID
	router.Get("/titles/{title_id}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := uuidParam(w, r, "title_id", "Title")
		if ok {
			got = id
			w.WriteHeader(http.StatusOK)
		}
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/titles/not-a-uuid", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	id := uuid.New()
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/titles/"+id.String(), nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, got)
}

func TestPageFrom(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/titles?page=3&per_page=25", nil)
	page := pageFrom(r)
	assert.Equal(t, 3, page.Page)
	assert.Equal(t, 25, page.PerPage)

	r = httptest.NewRequest(http.MethodGet, "/titles?page=abc", nil)
	page = pageFrom(r)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.PerPage)
}

func TestActorFrom(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.True(t, actorFrom(r).IsAnonymous())

	id := uuid.New()
	r = r.WithContext(utils.SetUserContext(r.Context(), id, "mod", "moderator"))
	actor := actorFrom(r)
	assert.Equal(t, id, actor.ID)
	assert.Equal(t, "moderator", string(actor.Role))
}
