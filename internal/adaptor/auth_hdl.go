package adaptor

import (
	"net/http"

	"review-catalog/internal/dto/request"
	"review-catalog/internal/usecase"
	"review-catalog/pkg/utils"

	"go.uber.org/zap"
)

type AuthHandler struct {
	service usecase.AuthService
	log     *zap.Logger
}

func NewAuthHandler(service usecase.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		log:     log.With(zap.String("handler", "auth")),
	}
}

// Signup handles POST /auth/signup. A code that could not be delivered is
// reported with 202 so the client knows to retry the signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req request.SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.service.RequestSignup(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, r, err, "signup")
		return
	}

	if !result.Delivered {
		utils.ResponseAccepted(w, "Signup registered but the confirmation code could not be sent; request it again", result.User)
		return
	}

	utils.ResponseSuccess(w, "Confirmation code sent", result.User)
}

// Token handles POST /auth/token
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req request.TokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	token, err := h.service.RedeemToken(r.Context(), &req)
	if err != nil {
		h.handleServiceError(w, r, err, "redeem token")
		return
	}

	utils.ResponseSuccess(w, "success", token)
}

func (h *AuthHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	writeServiceError(h.log, w, r, err, operation)
}
