package adaptor

import (
	"encoding/json"
	"errors"
	"net/http"

	"review-catalog/internal/data/entity"
	"review-catalog/internal/dto/request"
	"review-catalog/internal/policy"
	"review-catalog/internal/usecase"
	"review-catalog/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// actorFrom builds the policy actor from what Authenticate stored.
func actorFrom(r *http.Request) policy.Actor {
	id, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		return policy.Anonymous()
	}
	role, _ := utils.GetRoleFromContext(r.Context())
	return policy.Actor{ID: id, Role: entity.Role(role)}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return false
	}
	return true
}

func pageFrom(r *http.Request) *request.PaginatedRequest {
	query := r.URL.Query()
	return &request.PaginatedRequest{
		Page:    utils.ParseInt(query.Get("page"), 1),
		PerPage: utils.ParseInt(query.Get("per_page"), 10),
	}
}

// uuidParam reads a path id. A malformed id cannot exist, so it is a 404.
func uuidParam(w http.ResponseWriter, r *http.Request, name, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		utils.ResponseNotFound(w, what+" not found")
		return uuid.Nil, false
	}
	return id, true
}

// writeServiceError maps the service error kinds onto status codes.
func writeServiceError(log *zap.Logger, w http.ResponseWriter, r *http.Request, err error, operation string) {
	var fields map[string]string
	var fe *usecase.FieldError
	if errors.As(err, &fe) {
		fields = fe.Fields
	}

	warn := func(msg string) {
		log.Warn(operation+" failed - "+msg, zap.Error(err), zap.String("operation", operation))
	}

	switch {
	case errors.Is(err, usecase.ErrValidation):
		warn("validation")
		utils.ResponseBadRequest(w, "Validation failed", fields)

	case errors.Is(err, usecase.ErrInvalidCredential):
		warn("invalid credential")
		utils.ResponseBadRequest(w, "Invalid credentials", fields)

	case errors.Is(err, usecase.ErrNotFound):
		warn("not found")
		utils.ResponseNotFound(w, "Resource not found")

	case errors.Is(err, usecase.ErrConflict):
		warn("conflict")
		utils.ResponseConflict(w, "Conflict", fields)

	case errors.Is(err, usecase.ErrPermissionDenied):
		if actorFrom(r).IsAnonymous() {
			warn("unauthenticated")
			utils.ResponseUnauthorized(w, "Authentication required")
			return
		}
		warn("permission denied")
		utils.ResponseForbidden(w, "You do not have permission to perform this action")

	default:
		log.Error("Failed to "+operation, zap.Error(err), zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
