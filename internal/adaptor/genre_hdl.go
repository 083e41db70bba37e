package adaptor

import (
	"net/http"

	"review-catalog/internal/dto/request"
	"review-catalog/internal/usecase"
	"review-catalog/pkg/utils"

	"go.uber.org/zap"
)

type GenreHandler struct {
	service usecase.GenreService
	log     *zap.Logger
}

func NewGenreHandler(service usecase.GenreService, log *zap.Logger) *GenreHandler {
	return &GenreHandler{
		service: service,
		log:     log.With(zap.String("handler", "genre")),
	}
}

// ListGenres handles GET /genres (public)
func (h *GenreHandler) ListGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := h.service.ListGenres(r.Context(), pageFrom(r))
	if err != nil {
		h.handleServiceError(w, r, err, "list genres")
		return
	}

	utils.ResponseSuccess(w, "success", genres)
}

// CreateGenre handles POST /genres (admin)
func (h *GenreHandler) CreateGenre(w http.ResponseWriter, r *http.Request) {
	var req request.GenreRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	genre, err := h.service.CreateGenre(r.Context(), actorFrom(r), &req)
	if err != nil {
		h.handleServiceError(w, r, err, "create genre")
		return
	}

	utils.ResponseCreated(w, "Genre created", genre)
}

// UpdateGenre handles PATCH /genres/{id} (admin)
func (h *GenreHandler) UpdateGenre(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "Genre")
	if !ok {
		return
	}

	var req request.GenreUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	genre, err := h.service.UpdateGenre(r.Context(), actorFrom(r), id, &req)
	if err != nil {
		h.handleServiceError(w, r, err, "update genre")
		return
	}

	utils.ResponseSuccess(w, "Genre updated", genre)
}

// DeleteGenre handles DELETE /genres/{id} (admin)
func (h *GenreHandler) DeleteGenre(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "Genre")
	if !ok {
		return
	}

	if err := h.service.DeleteGenre(r.Context(), actorFrom(r), id); err != nil {
		h.handleServiceError(w, r, err, "delete genre")
		return
	}

	utils.ResponseNoContent(w)
}

func (h *GenreHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	writeServiceError(h.log, w, r, err, operation)
}
