package adaptor

import (
	"net/http"

	"review-catalog/internal/dto/request"
	"review-catalog/internal/usecase"
	"review-catalog/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CommentHandler struct {
	service usecase.CommentService
	log     *zap.Logger
}

func NewCommentHandler(service usecase.CommentService, log *zap.Logger) *CommentHandler {
	return &CommentHandler{
		service: service,
		log:     log.With(zap.String("handler", "comment")),
	}
}

func commentPath(w http.ResponseWriter, r *http.Request) (titleID, reviewID, commentID uuid.UUID, ok bool) {
	if titleID, reviewID, ok = reviewPath(w, r); !ok {
		return
	}
	commentID, ok = uuidParam(w, r, "comment_id", "Comment")
	return
}

// ListComments handles GET .../reviews/{review_id}/comments (public)
func (h *CommentHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	titleID, reviewID, ok := reviewPath(w, r)
	if !ok {
		return
	}

	comments, err := h.service.ListComments(r.Context(), titleID, reviewID, pageFrom(r))
	if err != nil {
		h.handleServiceError(w, r, err, "list comments")
		return
	}

	utils.ResponseSuccess(w, "success", comments)
}

// GetComment handles GET .../comments/{comment_id} (public)
func (h *CommentHandler) GetComment(w http.ResponseWriter, r *http.Request) {
	titleID, reviewID, commentID, ok := commentPath(w, r)
	if !ok {
		return
	}

	comment, err := h.service.GetComment(r.Context(), titleID, reviewID, commentID)
	if err != nil {
		h.handleServiceError(w, r, err, "get comment")
		return
	}

	utils.ResponseSuccess(w, "success", comment)
}

// CreateComment handles POST .../reviews/{review_id}/comments (authenticated)
func (h *CommentHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	titleID, reviewID, ok := reviewPath(w, r)
	if !ok {
		return
	}

	var req request.CommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	comment, err := h.service.CreateComment(r.Context(), actorFrom(r), titleID, reviewID, &req)
	if err != nil {
		h.handleServiceError(w, r, err, "create comment")
		return
	}

	utils.ResponseCreated(w, "Comment created", comment)
}

// UpdateComment handles PATCH .../comments/{comment_id}
func (h *CommentHandler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	titleID, reviewID, commentID, ok := commentPath(w, r)
	if !ok {
		return
	}

	var req request.CommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	comment, err := h.service.UpdateComment(r.Context(), actorFrom(r), titleID, reviewID, commentID, &req)
	if err != nil {
		h.handleServiceError(w, r, err, "update comment")
		return
	}

	utils.ResponseSuccess(w, "Comment updated", comment)
}

// DeleteComment handles DELETE .../comments/{comment_id}
func (h *CommentHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	titleID, reviewID, commentID, ok := commentPath(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteComment(r.Context(), actorFrom(r), titleID, reviewID, commentID); err != nil {
		h.handleServiceError(w, r, err, "delete comment")
		return
	}

	utils.ResponseNoContent(w)
}

func (h *CommentHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	writeServiceError(h.log, w, r, err, operation)
}
