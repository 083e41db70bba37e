package adaptor

import (
	"net/http"

	"review-catalog/internal/dto/request"
	"review-catalog/internal/usecase"
	"review-catalog/pkg/utils"

	"go.uber.org/zap"
)

type TitleHandler struct {
	service usecase.TitleService
	log     *zap.Logger
}

func NewTitleHandler(service usecase.TitleService, log *zap.Logger) *TitleHandler {
	return &TitleHandler{
		service: service,
		log:     log.With(zap.String("handler", "title")),
	}
}

// ListTitles handles GET /titles (public)
func (h *TitleHandler) ListTitles(w http.ResponseWriter, r *http.Request) {
	titles, err := h.service.ListTitles(r.Context(), pageFrom(r))
	if err != nil {
		h.handleServiceError(w, r, err, "list titles")
		return
	}

	utils.ResponseSuccess(w, "success", titles)
}

// GetTitle handles GET /titles/{title_id} (public)
func (h *TitleHandler) GetTitle(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "title_id", "Title")
	if !ok {
		return
	}

	title, err := h.service.GetTitle(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err, "get title")
		return
	}

	utils.ResponseSuccess(w, "success", title)
}

// CreateTitle handles POST /titles (admin)
func (h *TitleHandler) CreateTitle(w http.ResponseWriter, r *http.Request) {
	var req request.TitleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	title, err := h.service.CreateTitle(r.Context(), actorFrom(r), &req)
	if err != nil {
		h.handleServiceError(w, r, err, "create title")
		return
	}

	utils.ResponseCreated(w, "Title created", title)
}

// UpdateTitle handles PATCH /titles/{title_id} (admin)
func (h *TitleHandler) UpdateTitle(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "title_id", "Title")
	if !ok {
		return
	}

	var req request.TitleUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	title, err := h.service.UpdateTitle(r.Context(), actorFrom(r), id, &req)
	if err != nil {
		h.handleServiceError(w, r, err, "update title")
		return
	}

	utils.ResponseSuccess(w, "Title updated", title)
}

// DeleteTitle handles DELETE /titles/{title_id} (admin)
func (h *TitleHandler) DeleteTitle(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "title_id", "Title")
	if !ok {
		return
	}

	if err := h.service.DeleteTitle(r.Context(), actorFrom(r), id); err != nil {
		h.handleServiceError(w, r, err, "delete title")
		return
	}

	utils.ResponseNoContent(w)
}

func (h *TitleHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	writeServiceError(h.log, w, r, err, operation)
}
