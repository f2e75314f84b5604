package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/conduit/internal/model"
	"github.com/sakif/conduit/internal/service"
)

type ProfileHandler struct {
	profiles *service.ProfileService
	logger   *slog.Logger
}

func NewProfileHandler(profiles *service.ProfileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

// HandleGet: GET /api/profiles/{username}
func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.profiles.Get(r.Context(), viewerID(r), chi.URLParam(r, "username"))
	h.respond(w, r, p, err)
}

// HandleFollow: POST /api/profiles/{username}/follow
func (h *ProfileHandler) HandleFollow(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	p, err := h.profiles.Follow(r.Context(), id.User.ID, chi.URLParam(r, "username"))
	h.respond(w, r, p, err)
}

// HandleUnfollow: DELETE /api/profiles/{username}/follow
func (h *ProfileHandler) HandleUnfollow(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	p, err := h.profiles.Unfollow(r.Context(), id.User.ID, chi.URLParam(r, "username"))
	h.respond(w, r, p, err)
}

func (h *ProfileHandler) respond(w http.ResponseWriter, r *http.Request, p *model.Profile, err error) {
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusOK, profileResponse{Profile: newProfileView(*p)})
}
