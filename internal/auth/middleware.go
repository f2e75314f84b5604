package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/sakif/conduit/internal/model"
)

// contextKey is an unexported type used for context keys in this package.
// Only this package can create a key of this type, so no other package can
// read or shadow the identity stored under it.
type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated caller attached to a request.
type Identity struct {
	User  model.User
	Token string // the bearer token as presented, echoed back in user responses
}

// UserResolver loads the account a token refers to.
// *sqlite.DB and service.UserService both satisfy it.
type UserResolver interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the caller's identity, or false for a request
// that passed the gate anonymously through a public path.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.User.ID != ""
}

// unauthorizedBody is the Conduit error envelope for a rejected request.
var unauthorizedBody = map[string]map[string][]string{
	"errors": {"body": {"Unauthorized"}},
}

// Authenticate is the gate every request passes through.
//
// Per request:
//
//	OPTIONS or public path ─────────────► next (anonymous)
//	missing / non-Bearer header ────────► 401
//	token fails Parse ──────────────────► 401
//	subject cannot be loaded (any err) ─► 401
//	otherwise ──────────────────────────► next, with Identity in context
//
// A store failure while loading the subject rejects the request rather
// than letting it through anonymously.
//
// publicPrefixes match a whole path segment: "/api/users" admits
// "/api/users" and "/api/users/login" but not "/api/usersx".
func Authenticate(tokens *TokenService, users UserResolver, logger *slog.Logger, publicPrefixes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || isPublic(r.URL.Path, publicPrefixes) {
				next.ServeHTTP(w, r)
				return
			}

			reject := func(reason string, attrs ...any) {
				attrs = append(attrs,
					"reason", reason,
					"method", r.Method,
					"path", r.URL.Path,
					"request_id", middleware.GetReqID(r.Context()),
				)
				logger.Warn("request rejected by auth gate", attrs...)
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, unauthorizedBody)
			}

			token, ok := bearerToken(r)
			if !ok {
				reject("missing bearer token")
				return
			}

			claims, err := tokens.Parse(token)
			if err != nil {
				reject("invalid token", "error", err)
				return
			}

			user, err := users.GetUserByID(r.Context(), claims.UserID)
			if err != nil {
				reject("token subject not resolvable", "user_id", claims.UserID, "error", err)
				return
			}

			ctx := WithIdentity(r.Context(), Identity{User: *user, Token: token})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func isPublic(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
