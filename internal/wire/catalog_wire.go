package wire

import (
	"review-catalog/internal/adaptor"
	"review-catalog/internal/data/entity"
	"review-catalog/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireCatalog(
	r chi.Router,
	categoryHandler *adaptor.CategoryHandler,
	genreHandler *adaptor.GenreHandler,
	log *zap.Logger,
) {
	admin := middleware.RequireRole(log, entity.RoleAdmin)

	r.Route("/categories", func(r chi.Router) {
		r.Get("/", categoryHandler.ListCategories)
		r.With(admin).Post("/", categoryHandler.CreateCategory)
		r.With(admin).Patch("/{id}", categoryHandler.UpdateCategory)
		r.With(admin).Delete("/{id}", categoryHandler.DeleteCategory)
	})

	r.Route("/genres", func(r chi.Router) {
		r.Get("/", genreHandler.ListGenres)
		r.With(admin).Post("/", genreHandler.CreateGenre)
		r.With(admin).Patch("/{id}", genreHandler.UpdateGenre)
		r.With(admin).Delete("/{id}", genreHandler.DeleteGenre)
	})
}
