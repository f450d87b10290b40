package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"huddle/internal/auth"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func newSlogMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)
			duration := time.Since(start)
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.status,
				"duration", duration.String(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

type requestAuthenticator interface {
	Authenticate(r *http.Request) (*auth.Identity, error)
}

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const identityContextKey contextKey = "identity"

// IdentityFromContext extracts the verified caller from the request context.
// Returns nil if the auth middleware hasn't populated the context.
func IdentityFromContext(ctx context.Context) *auth.Identity {
	identity, _ := ctx.Value(identityContextKey).(*auth.Identity)
	return identity
}

// UserFromContext extracts the authenticated user from the request context.
func UserFromContext(ctx context.Context) *auth.User {
	if identity := IdentityFromContext(ctx); identity != nil {
		return identity.User
	}
	return nil
}

func newAuthMiddleware(authenticator requestAuthenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := authenticator.Authenticate(r)
			if err != nil {
				if isAuthFailure(err) {
					unauthorized(w)
					return
				}
				logger.Error("request authentication error", "error", err)
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func isAuthFailure(err error) bool {
	return errors.Is(err, auth.ErrNoAuthorizationHeader) || errors.Is(err, auth.ErrInvalidOrExpiredToken)
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeError(w, http.StatusUnauthorized, "authentication required")
}

func newSecurityHeadersMiddleware(isDev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Permissions-Policy", "geolocation=(), camera=(), microphone=()")
			w.Header().Set("Cache-Control", "no-store")

			if !isDev {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}
