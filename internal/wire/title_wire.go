package wire

import (
	"review-catalog/internal/adaptor"
	"review-catalog/internal/data/entity"
	"review-catalog/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// wireTitle mounts titles with their nested reviews and comments. Owner
// checks for reviews and comments happen in the services.
func wireTitle(
	r chi.Router,
	titleHandler *adaptor.TitleHandler,
	reviewHandler *adaptor.ReviewHandler,
	commentHandler *adaptor.CommentHandler,
	log *zap.Logger,
) {
	admin := middleware.RequireRole(log, entity.RoleAdmin)
	auth := middleware.RequireAuth

	r.Route("/titles", func(r chi.Router) {
		r.Get("/", titleHandler.ListTitles)
		r.With(admin).Post("/", titleHandler.CreateTitle)

		r.Route("/{title_id}", func(r chi.Router) {
			r.Get("/", titleHandler.GetTitle)
			r.With(admin).Patch("/", titleHandler.UpdateTitle)
			r.With(admin).Delete("/", titleHandler.DeleteTitle)

			r.Route("/reviews", func(r chi.Router) {
				r.Get("/", reviewHandler.ListReviews)
				r.With(auth).Post("/", reviewHandler.CreateReview)

				r.Route("/{review_id}", func(r chi.Router) {
					r.Get("/", reviewHandler.GetReview)
					r.With(auth).Patch("/", reviewHandler.UpdateReview)
					r.With(auth).Delete("/", reviewHandler.DeleteReview)

					r.Route("/comments", func(r chi.Router) {
						r.Get("/", commentHandler.ListComments)
						r.With(auth).Post("/", commentHandler.CreateComment)
						r.Get("/{comment_id}", commentHandler.GetComment)
						r.With(auth).Patch("/{comment_id}", commentHandler.UpdateComment)
						r.With(auth).Delete("/{comment_id}", commentHandler.DeleteComment)
					})
				})
			})
		})
	})
}
