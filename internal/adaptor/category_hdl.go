package adaptor

import (
	"net/http"

	"review-catalog/internal/dto/request"
	"review-catalog/internal/usecase"
	"review-catalog/pkg/utils"

	"go.uber.org/zap"
)

type CategoryHandler struct {
	service usecase.CategoryService
	log     *zap.Logger
}

func NewCategoryHandler(service usecase.CategoryService, log *zap.Logger) *CategoryHandler {
	return &CategoryHandler{
		service: service,
		log:     log.With(zap.String("handler", "category")),
	}
}

// ListCategories handles GET /categories (public)
func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context(), pageFrom(r))
	if err != nil {
		h.handleServiceError(w, r, err, "list categories")
		return
	}

	utils.ResponseSuccess(w, "success", categories)
}

// CreateCategory handles POST /categories (admin)
func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req request.CategoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	category, err := h.service.CreateCategory(r.Context(), actorFrom(r), &req)
	if err != nil {
		h.handleServiceError(w, r, err, "create category")
		return
	}

	utils.ResponseCreated(w, "Category created", category)
}

// UpdateCategory handles PATCH /categories/{id} (admin)
func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "Category")
	if !ok {
		return
	}

	var req request.CategoryUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	category, err := h.service.UpdateCategory(r.Context(), actorFrom(r), id, &req)
	if err != nil {
		h.handleServiceError(w, r, err, "update category")
		return
	}

	utils.ResponseSuccess(w, "Category updated", category)
}

// DeleteCategory handles DELETE /categories/{id} (admin)
func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "Category")
	if !ok {
		return
	}

	if err := h.service.DeleteCategory(r.Context(), actorFrom(r), id); err != nil {
		h.handleServiceError(w, r, err, "delete category")
		return
	}

	utils.ResponseNoContent(w)
}

func (h *CategoryHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	writeServiceError(h.log, w, r, err, operation)
}
