package wire

import (
	"review-catalog/internal/adaptor"
	"review-catalog/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireAuth(
	r chi.Router,
	authHandler *adaptor.AuthHandler,
	limiter middleware.Limiter,
	log *zap.Logger,
) {
	r.Route("/auth", func(r chi.Router) {
		r.Use(middleware.RateLimit(limiter, log))

		r.Post("/signup", authHandler.Signup)
		r.Post("/token", authHandler.Token)
	})
}
