package http

import (
	"context"
	"log/slog"
	"net/http"

	"huddle/internal/auth"
)

type sessionRevoker interface {
	RevokeSession(ctx context.Context, token string) error
}

// SessionHandler reports and ends bearer sessions.
type SessionHandler struct {
	sessions      sessionRevoker
	authenticator requestAuthenticator
	logger        *slog.Logger
}

// NewSessionHandler returns a SessionHandler.
func NewSessionHandler(sessions sessionRevoker, authenticator requestAuthenticator, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, authenticator: authenticator, logger: logger}
}

// Logout revokes the presented session token. Revoking an unknown or already
// revoked token still succeeds.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, err := auth.BearerToken(r)
	if err != nil {
		unauthorized(w)
		return
	}

	if err := h.sessions.RevokeSession(r.Context(), token); err != nil {
		h.logger.Error("revoke session", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to log out")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Status reports whether the request carries a valid credential.
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	identity, err := h.authenticator.Authenticate(r)
	if err != nil {
		if isAuthFailure(err) {
			unauthorized(w)
			return
		}
		h.logger.Error("session status", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"credential":    identity.Kind.String(),
		"user":          newUserResponse(identity.User),
	})
}
