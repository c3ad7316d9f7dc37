package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/taskguard/taskguard/internal/auth"
	"github.com/taskguard/taskguard/internal/model"
	"github.com/taskguard/taskguard/internal/service"
)

// BearerResolver resolves a bearer token to a user.
type BearerResolver interface {
	ResolveBearer(ctx context.Context, token string) (*model.User, error)
}

// SessionResolver resolves a decoded session claim to a user.
type SessionResolver interface {
	ResolveSession(ctx context.Context, userID int64, ok bool) (*model.User, error)
}

// SessionReader decodes the session cookie of a request.
type SessionReader interface {
	UserID(r *http.Request) (int64, bool)
}

// BearerAuthConfig holds configuration for the bearer auth middleware.
type BearerAuthConfig struct {
	Logger   *slog.Logger
	Resolver BearerResolver
}

// BearerAuth returns a middleware that authenticates API requests from the
// "Authorization: Bearer <token>" header and stores the user in the context.
// Every authentication failure gets the same 401 body.
func BearerAuth(cfg BearerAuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)

			user, err := cfg.Resolver.ResolveBearer(r.Context(), token)
			if err != nil {
				if errors.Is(err, service.ErrUnauthenticated) {
					cfg.Logger.Warn("authentication failed",
						slog.String("reason", bearerFailureReason(token, err)),
						slog.String("endpoint", r.Method+" "+r.URL.Path),
						slog.String("request_id", GetRequestID(r.Context())),
					)
					writeAuthError(w)
					return
				}

				cfg.Logger.Error("identity lookup failed",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				WriteJSONError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
				return
			}

			ctx := auth.ContextWithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionAuthConfig holds configuration for the session auth middleware.
type SessionAuthConfig struct {
	Logger    *slog.Logger
	Sessions  SessionReader
	Resolver  SessionResolver
	LoginPath string
}

// SessionAuth returns a middleware that requires a signed-in web session.
// Without one the browser is sent to LoginPath with 303 See Other.
func SessionAuth(cfg SessionAuthConfig) func(http.Handler) http.Handler {
	loginPath := cfg.LoginPath
	if loginPath == "" {
		loginPath = "/login"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := cfg.Sessions.UserID(r)

			user, err := cfg.Resolver.ResolveSession(r.Context(), userID, ok)
			if err != nil {
				cfg.Logger.Error("session lookup failed",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}

			if user == nil {
				if ok {
					cfg.Logger.Info("stale session",
						slog.String("reason", "unknown_user"),
						slog.String("request_id", GetRequestID(r.Context())),
					)
				}
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}

			ctx := auth.ContextWithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearerToken returns the token of an "Authorization: Bearer" header.
// The scheme is matched case-insensitively.
func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func bearerFailureReason(token string, err error) string {
	switch {
	case token == "":
		return "missing_token"
	case errors.Is(err, auth.ErrExpiredToken):
		return "expired_token"
	case errors.Is(err, auth.ErrInvalidToken):
		return "invalid_token"
	default:
		return "unknown_user"
	}
}

// writeAuthError writes a 401 Unauthorized response.
// Uses the same message for all auth failures to prevent enumeration.
func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="taskguard"`)
	WriteJSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Could not validate credentials")
}
