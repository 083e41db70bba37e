package adaptor

import (
	"net/http"

	"review-catalog/internal/dto/request"
	"review-catalog/internal/usecase"
	"review-catalog/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReviewHandler struct {
	service usecase.ReviewService
	log     *zap.Logger
}

func NewReviewHandler(service usecase.ReviewService, log *zap.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: service,
		log:     log.With(zap.String("handler", "review")),
	}
}

func reviewPath(w http.ResponseWriter, r *http.Request) (titleID, reviewID uuid.UUID, ok bool) {
	if titleID, ok = uuidParam(w, r, "title_id", "Title"); !ok {
		return
	}
	reviewID, ok = uuidParam(w, r, "review_id", "Review")
	return
}

// ListReviews handles GET /titles/{title_id}/reviews (public)
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	titleID, ok := uuidParam(w, r, "title_id", "Title")
	if !ok {
		return
	}

	reviews, err := h.service.ListReviews(r.Context(), titleID, pageFrom(r))
	if err != nil {
		h.handleServiceError(w, r, err, "list reviews")
		return
	}

	utils.ResponseSuccess(w, "success", reviews)
}

// GetReview handles GET /titles/{title_id}/reviews/{review_id} (public)
func (h *ReviewHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	titleID, reviewID, ok := reviewPath(w, r)
	if !ok {
		return
	}

	review, err := h.service.GetReview(r.Context(), titleID, reviewID)
	if err != nil {
		h.handleServiceError(w, r, err, "get review")
		return
	}

	utils.ResponseSuccess(w, "success", review)
}

// CreateReview handles POST /titles/{title_id}/reviews (authenticated)
func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	titleID, ok := uuidParam(w, r, "title_id", "Title")
	if !ok {
		return
	}

	var req request.CreateReviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	review, err := h.service.CreateReview(r.Context(), actorFrom(r), titleID, &req)
	if err != nil {
		h.handleServiceError(w, r, err, "create review")
		return
	}

	utils.ResponseCreated(w, "Review created", review)
}

// UpdateReview handles PATCH /titles/{title_id}/reviews/{review_id}
func (h *ReviewHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	titleID, reviewID, ok := reviewPath(w, r)
	if !ok {
		return
	}

	var req request.UpdateReviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	review, err := h.service.UpdateReview(r.Context(), actorFrom(r), titleID, reviewID, &req)
	if err != nil {
		h.handleServiceError(w, r, err, "update review")
		return
	}

	utils.ResponseSuccess(w, "Review updated", review)
}

// DeleteReview handles DELETE /titles/{title_id}/reviews/{review_id}
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	titleID, reviewID, ok := reviewPath(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteReview(r.Context(), actorFrom(r), titleID, reviewID); err != nil {
		h.handleServiceError(w, r, err, "delete review")
		return
	}

	utils.ResponseNoContent(w)
}

func (h *ReviewHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	writeServiceError(h.log, w, r, err, operation)
}
