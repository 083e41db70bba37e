package adaptor

import (
	"net/http"

	"review-catalog/internal/dto/request"
	"review-catalog/internal/usecase"
	"review-catalog/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type UserHandler struct {
	service usecase.UserService
	log     *zap.Logger
}

func NewUserHandler(service usecase.UserService, log *zap.Logger) *UserHandler {
	return &UserHandler{
		service: service,
		log:     log.With(zap.String("handler", "user")),
	}
}

// GetMe handles GET /users/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetMe(r.Context(), actorFrom(r))
	if err != nil {
		h.handleServiceError(w, r, err, "get profile")
		return
	}

	utils.ResponseSuccess(w, "success", user)
}

// UpdateMe handles PATCH /users/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req request.UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.service.UpdateMe(r.Context(), actorFrom(r), &req)
	if err != nil {
		h.handleServiceError(w, r, err, "update profile")
		return
	}

	utils.ResponseSuccess(w, "Profile updated", user)
}

// ListUsers handles GET /users (admin)
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context(), actorFrom(r), pageFrom(r))
	if err != nil {
		h.handleServiceError(w, r, err, "list users")
		return
	}

	utils.ResponseSuccess(w, "success", users)
}

// CreateUser handles POST /users (admin)
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req request.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.service.CreateUser(r.Context(), actorFrom(r), &req)
	if err != nil {
		h.handleServiceError(w, r, err, "create user")
		return
	}

	utils.ResponseCreated(w, "User created", user)
}

// GetUser handles GET /users/{username} (admin)
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), actorFrom(r), chi.URLParam(r, "username"))
	if err != nil {
		h.handleServiceError(w, r, err, "get user")
		return
	}

	utils.ResponseSuccess(w, "success", user)
}

// UpdateUser handles PATCH /users/{username} (admin)
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req request.UpdateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.service.UpdateUser(r.Context(), actorFrom(r), chi.URLParam(r, "username"), &req)
	if err != nil {
		h.handleServiceError(w, r, err, "update user")
		return
	}

	utils.ResponseSuccess(w, "User updated", user)
}

// DeleteUser handles DELETE /users/{username} (admin)
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteUser(r.Context(), actorFrom(r), chi.URLParam(r, "username")); err != nil {
		h.handleServiceError(w, r, err, "delete user")
		return
	}

	utils.ResponseNoContent(w)
}

func (h *UserHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	writeServiceError(h.log, w, r, err, operation)
}
