// Package handler is the HTTP layer: it decodes requests, calls the
// services, and renders the Conduit JSON envelopes.
package handler

// RESPONSE HELPERS:
// Every response goes through writeJSON or writeError so status codes and
// the error envelope stay consistent:
//
//	{"errors": {"<field or body>": ["message"]}}
//
// Rendering uses github.com/go-chi/render, which sets the Content-Type and
// status from the request context.

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/sakif/conduit/internal/apperror"
)

// ErrResponse is the Conduit error envelope. It implements render.Renderer
// so the status code travels with the payload.
type ErrResponse struct {
	HTTPStatusCode int                 `json:"-"`
	Errors         map[string][]string `json:"errors"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func newErrResponse(status int, field, message string) *ErrResponse {
	if field == "" {
		field = "body"
	}
	return &ErrResponse{
		HTTPStatusCode: status,
		Errors:         map[string][]string{field: {message}},
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	render.Status(r, status)
	render.JSON(w, r, data)
}

// statusFor maps an apperror kind to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperror.ErrInvalidCredentials), errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperror.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps a domain error to a status code and renders the error
// envelope. Only AppError.Message reaches the client; causes and unknown
// errors are logged and replaced by a generic message.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := statusFor(err)

	var appErr *apperror.AppError
	if status == http.StatusInternalServerError || !errors.As(err, &appErr) {
		logger.Error("unhandled error",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("error", err.Error()),
		)
		_ = render.Render(w, r, newErrResponse(http.StatusInternalServerError, "", "an internal error occurred"))
		return
	}

	if status == http.StatusServiceUnavailable {
		logger.Error("store unavailable",
			slog.String("path", r.URL.Path),
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("error", err.Error()),
		)
	}

	_ = render.Render(w, r, newErrResponse(status, appErr.Field, appErr.Message))
}

// writeBadRequest answers a body that could not be decoded at all.
func writeBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	_ = render.Render(w, r, newErrResponse(http.StatusBadRequest, "body", message))
}
