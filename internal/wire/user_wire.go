package wire

import (
	"review-catalog/internal/adaptor"
	"review-catalog/internal/data/entity"
	"review-catalog/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireUser(
	r chi.Router,
	userHandler *adaptor.UserHandler,
	log *zap.Logger,
) {
	r.Route("/users", func(r chi.Router) {
		// Self service, any authenticated role
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Get("/me", userHandler.GetMe)
			r.Patch("/me", userHandler.UpdateMe)
		})

		// Admin
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(log, entity.RoleAdmin))
			r.Get("/", userHandler.ListUsers)
			r.Post("/", userHandler.CreateUser)
			r.Get("/{username}", userHandler.GetUser)
			r.Patch("/{username}", userHandler.UpdateUser)
			r.Delete("/{username}", userHandler.DeleteUser)
		})
	})
}
