package response

import (
	"time"

	"review-catalog/internal/data/entity"
)

// SignupResponse never carries the confirmation code.
type SignupResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func SignupToResponse(user *entity.User) SignupResponse {
	return SignupResponse{
		Username: user.Username,
		Email:    user.Email,
	}
}
