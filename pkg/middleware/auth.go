package middleware

import (
	"context"
	"net/http"
	"strings"

	"review-catalog/internal/data/entity"
	"review-catalog/pkg/token"
	"review-catalog/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserFinder is the part of the user repository the auth middleware needs.
type UserFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
}

// Authenticate resolves an optional bearer token into the request context.
// Requests without an Authorization header continue as anonymous. A header
// that is present but invalid, expired or revoked is rejected with 401.
// The stored user is reloaded so the role in context is the current one.
func Authenticate(tokens *token.Manager, users UserFinder, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			scheme, raw, found := strings.Cut(authHeader, " ")
			if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
				utils.ResponseUnauthorized(w, "Invalid token format. Use: Bearer <token>")
				return
			}

			claims, err := tokens.Parse(strings.TrimSpace(raw))
			if err != nil {
				logger.Warn("Rejected bearer token", zap.Error(err), zap.String("path", r.URL.Path))
				utils.ResponseUnauthorized(w, "Invalid or expired token")
				return
			}

			// Parse already validated the subject
			userID, _ := claims.UserID()

			user, err := users.FindByID(r.Context(), userID)
			if err != nil {
				logger.Error("Failed to load token subject",
					zap.Error(err),
					zap.String("user_id", userID.String()))
				utils.ResponseInternalError(w, "Internal server error")
				return
			}

			if user == nil || user.TokenVersion != claims.Version {
				logger.Warn("Revoked token presented",
					zap.String("user_id", userID.String()),
					zap.Bool("user_exists", user != nil))
				utils.ResponseUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx := utils.SetUserContext(r.Context(), user.ID, user.Username, string(user.Role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects anonymous requests.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := utils.GetUserIDFromContext(r.Context()); !ok {
			utils.ResponseUnauthorized(w, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects authenticated users whose role is not in roles.
func RequireRole(logger *zap.Logger, roles ...entity.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, _ := utils.GetRoleFromContext(r.Context())
			for _, allowed := range roles {
				if entity.Role(role) == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}

			userID, _ := utils.GetUserIDFromContext(r.Context())
			logger.Warn("Role check failed",
				zap.String("user_id", userID.String()),
				zap.String("role", role),
				zap.String("path", r.URL.Path))
			utils.ResponseForbidden(w, "You do not have permission to perform this action")
		}))
	}
}
