package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/conduit/internal/service"
)

type CommentHandler struct {
	comments *service.CommentService
	logger   *slog.Logger
}

func NewCommentHandler(comments *service.CommentService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{comments: comments, logger: logger}
}

// HandleList: GET /api/articles/{id}/comments
func (h *CommentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	comments, err := h.comments.List(r.Context(), viewerID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newCommentListResponse(comments))
}

// HandleCreate: POST /api/articles/{id}/comments
// REQUEST BODY: {"comment":{"body":"..."}}
func (h *CommentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}

	var req commentRequest
	if !bind(w, r, h.logger, &req) {
		return
	}

	c, err := h.comments.Create(r.Context(), id.User, chi.URLParam(r, "id"), req.Comment.Body)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, commentResponse{Comment: newCommentView(*c)})
}

// HandleDelete: DELETE /api/articles/{id}/comments/{commentID}
// Only the comment's author may delete it.
func (h *CommentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}

	err := h.comments.Delete(r.Context(), id.User.ID, chi.URLParam(r, "id"), chi.URLParam(r, "commentID"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
