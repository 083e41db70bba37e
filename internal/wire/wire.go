package wire

import (
	"net/http"

	"review-catalog/internal/adaptor"
	"review-catalog/internal/data/repository"
	"review-catalog/internal/usecase"
	"review-catalog/pkg/middleware"
	"review-catalog/pkg/notifier"
	"review-catalog/pkg/token"
	"review-catalog/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// App holds the wired router and the services behind it.
type App struct {
	Router  *chi.Mux
	Service *usecase.Service
}

// Wiring builds services, handlers and routes.
func Wiring(
	repo *repository.Repository,
	tokens *token.Manager,
	notify notifier.Notifier,
	limiter middleware.Limiter,
	config *utils.Config,
	logger *zap.Logger,
) *App {
	service := usecase.NewService(repo, tokens, notify, config, logger)
	handler := adaptor.NewHandler(service, logger)

	router := setupRouter(handler, repo, tokens, limiter, config, logger)

	return &App{
		Router:  router,
		Service: service,
	}
}

func setupRouter(
	handler *adaptor.Handler,
	repo *repository.Repository,
	tokens *token.Manager,
	limiter middleware.Limiter,
	config *utils.Config,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS(config.CORS.AllowedOrigins))
	r.Use(middleware.Authenticate(tokens, repo.User, logger))

	wireAuth(r, handler.Auth, limiter, logger)
	wireUser(r, handler.User, logger)
	wireCatalog(r, handler.Category, handler.Genre, logger)
	wireTitle(r, handler.Title, handler.Review, handler.Comment, logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.ResponseNotFound(w, "Resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.ResponseJSON(w, http.StatusMethodNotAllowed, false, "Method not allowed", nil, nil)
	})

	return r
}
