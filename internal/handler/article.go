package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/conduit/internal/apperror"
	"github.com/sakif/conduit/internal/model"
	"github.com/sakif/conduit/internal/service"
)

// ArticleHandler serves article listing, the feed, article CRUD and
// favorites. Routes take {id}, which may be an article id or its slug.
type ArticleHandler struct {
	articles *service.ArticleService
	logger   *slog.Logger
}

func NewArticleHandler(articles *service.ArticleService, logger *slog.Logger) *ArticleHandler {
	return &ArticleHandler{articles: articles, logger: logger}
}

// HandleList returns a filtered page of articles.
//
// HTTP: GET /api/articles?tag=&author=&favorited=&limit=&offset=
//
// Filters combine with AND. articlesCount is the total number of matches,
// independent of limit and offset.
func (h *ArticleHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pageParams(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	q := r.URL.Query()
	page, err := h.articles.List(r.Context(), viewerID(r), service.ListQuery{
		Tag:       q.Get("tag"),
		Author:    q.Get("author"),
		Favorited: q.Get("favorited"),
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newArticleListResponse(page.Articles, page.Count))
}

// HandleFeed returns articles by authors the caller follows.
//
// HTTP: GET /api/articles/feed?limit=&offset=
func (h *ArticleHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pageParams(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	page, err := h.articles.Feed(r.Context(), viewerID(r), limit, offset)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newArticleListResponse(page.Articles, page.Count))
}

// HandleGet: GET /api/articles/{id}
func (h *ArticleHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	d, err := h.articles.Get(r.Context(), viewerID(r), chi.URLParam(r, "id"))
	h.respond(w, r, http.StatusOK, d, err)
}

// HandleCreate publishes an article owned by the caller.
//
// HTTP: POST /api/articles
// REQUEST BODY: {"article":{"title":"...","description":"...","body":"...","tagList":["go"]}}
func (h *ArticleHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}

	var req createArticleRequest
	if !bind(w, r, h.logger, &req) {
		return
	}

	d, err := h.articles.Create(r.Context(), id.User.ID, service.ArticleInput{
		Title:       req.Article.Title,
		Description: req.Article.Description,
		Body:        req.Article.Body,
		Tags:        req.Article.TagList,
	})
	h.respond(w, r, http.StatusCreated, d, err)
}

// HandleUpdate: PUT /api/articles/{id}
//
// Absent fields are left unchanged. A present tagList, even an empty one,
// replaces the article's tags.
func (h *ArticleHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}

	var req updateArticleRequest
	if !bind(w, r, h.logger, &req) {
		return
	}

	upd := model.ArticleUpdate{
		Title:       req.Article.Title,
		Description: req.Article.Description,
		Body:        req.Article.Body,
	}
	if req.Article.TagList != nil {
		upd.Tags = *req.Article.TagList
		if upd.Tags == nil {
			upd.Tags = []string{}
		}
	}

	d, err := h.articles.Update(r.Context(), id.User.ID, chi.URLParam(r, "id"), upd)
	h.respond(w, r, http.StatusOK, d, err)
}

// HandleDelete: DELETE /api/articles/{id}
func (h *ArticleHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	if err := h.articles.Delete(r.Context(), id.User.ID, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleFavorite: POST /api/articles/{id}/favorites
func (h *ArticleHandler) HandleFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	d, err := h.articles.Favorite(r.Context(), id.User.ID, chi.URLParam(r, "id"))
	h.respond(w, r, http.StatusOK, d, err)
}

// HandleUnfavorite: DELETE /api/articles/{id}/favorites
func (h *ArticleHandler) HandleUnfavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	d, err := h.articles.Unfavorite(r.Context(), id.User.ID, chi.URLParam(r, "id"))
	h.respond(w, r, http.StatusOK, d, err)
}

func (h *ArticleHandler) respond(w http.ResponseWriter, r *http.Request, status int, d *model.ArticleDetail, err error) {
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, status, articleResponse{Article: newArticleView(*d)})
}

// pageParams parses limit and offset. Missing values are 0 and get the
// service defaults; non-integers are rejected. Range clamping is left to
// the service.
func pageParams(r *http.Request) (limit, offset int, err error) {
	q := r.URL.Query()
	if limit, err = intParam(q.Get("limit"), "limit"); err != nil {
		return 0, 0, err
	}
	if offset, err = intParam(q.Get("offset"), "offset"); err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.ValidationFailed(name, name+" must be an integer")
	}
	return n, nil
}
