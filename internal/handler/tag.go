package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/conduit/internal/service"
)

type TagHandler struct {
	articles *service.ArticleService
	logger   *slog.Logger
}

func NewTagHandler(articles *service.ArticleService, logger *slog.Logger) *TagHandler {
	return &TagHandler{articles: articles, logger: logger}
}

// HandleList: GET /api/tags
func (h *TagHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	tags, err := h.articles.Tags(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if tags == nil {
		tags = []string{}
	}
	writeJSON(w, r, http.StatusOK, tagListResponse{Tags: tags})
}
