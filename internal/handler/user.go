package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/conduit/internal/apperror"
	"github.com/sakif/conduit/internal/auth"
	"github.com/sakif/conduit/internal/model"
	"github.com/sakif/conduit/internal/service"
)

// UserHandler serves registration, login and the current-user endpoints.
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// HandleSignup registers an account.
//
// HTTP: POST /api/users
// REQUEST BODY: {"user":{"username":"jake","email":"jake@jake.jake","password":"jakejake"}}
func (h *UserHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !h.bind(w, r, &req) {
		return
	}

	res, err := h.users.Signup(r.Context(), req.User.Email, req.User.Username, req.User.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, newUserResponse(*res.User, res.Token))
}

// HandleLogin exchanges credentials for a token.
//
// HTTP: POST /api/users/login
func (h *UserHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.bind(w, r, &req) {
		return
	}

	res, err := h.users.Login(r.Context(), req.User.Email, req.User.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newUserResponse(*res.User, res.Token))
}

// HandleCurrent returns the authenticated user with the token it presented.
//
// HTTP: GET /api/user
func (h *UserHandler) HandleCurrent(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, newUserResponse(id.User, id.Token))
}

// HandleUpdate applies a partial update to the authenticated user.
//
// HTTP: PUT /api/user
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r, h.logger)
	if !ok {
		return
	}

	var req updateUserRequest
	if !h.bind(w, r, &req) {
		return
	}

	user, err := h.users.Update(r.Context(), id.User.ID, model.UserUpdate{
		Email:    req.User.Email,
		Username: req.User.Username,
		Password: req.User.Password,
		Bio:      req.User.Bio,
		Image:    req.User.Image,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newUserResponse(*user, id.Token))
}

func (h *UserHandler) bind(w http.ResponseWriter, r *http.Request, v any) bool {
	return bind(w, r, h.logger, v)
}

// bind decodes and validates a request body, answering the request itself
// when that fails.
func bind(w http.ResponseWriter, r *http.Request, logger *slog.Logger, v any) bool {
	err := decode(r, v)
	if err == nil {
		return true
	}
	if errors.Is(err, errMalformedBody) {
		logger.Warn("invalid request body",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeBadRequest(w, r, "request body must be a JSON object")
		return false
	}
	writeError(w, r, logger, err)
	return false
}

// identity returns the caller set by the auth gate. Routes behind the gate
// always have one; a missing identity means the route was mounted wrong.
func identity(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (auth.Identity, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, logger, apperror.Unauthorized("Unauthorized"))
	}
	return id, ok
}

// viewerID is the caller's user id, or "" for an anonymous request.
func viewerID(r *http.Request) string {
	if id, ok := auth.IdentityFromContext(r.Context()); ok {
		return id.User.ID
	}
	return ""
}
