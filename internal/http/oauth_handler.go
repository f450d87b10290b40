package http

import (
	"errors"
	"log/slog"
	"net/http"

	"huddle/internal/auth"
)

type oauthFlow interface {
	Provider() string
	Begin(r *http.Request) (*auth.Redirect, error)
	Callback(r *http.Request) (*auth.Redirect, error)
}

// OAuthHandler handles OAuth authentication endpoints.
type OAuthHandler struct {
	flow   oauthFlow
	logger *slog.Logger
}

// NewOAuthHandler creates a new OAuthHandler.
func NewOAuthHandler(flow oauthFlow, logger *slog.Logger) *OAuthHandler {
	return &OAuthHandler{flow: flow, logger: logger}
}

// Initiate handles GET /api/auth/{provider}
// Redirects the user to the provider's consent screen.
func (h *OAuthHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	redirect, err := h.flow.Begin(r)
	if err != nil {
		h.writeFlowError(w, "oauth initiate failed", err)
		return
	}
	h.follow(w, r, redirect)
}

// Callback handles GET /api/auth/{provider}/callback
// Completes the code exchange and sends the browser back to the frontend.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	redirect, err := h.flow.Callback(r)
	if err != nil {
		h.writeFlowError(w, "oauth callback failed", err)
		return
	}
	h.follow(w, r, redirect)
}

func (h *OAuthHandler) follow(w http.ResponseWriter, r *http.Request, redirect *auth.Redirect) {
	for _, cookie := range redirect.Cookies {
		http.SetCookie(w, cookie)
	}
	http.Redirect(w, r, redirect.URL, http.StatusTemporaryRedirect)
}

func (h *OAuthHandler) writeFlowError(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, "provider", h.flow.Provider(), "error", err)
	if errors.Is(err, auth.ErrFrontendURLNotConfigured) {
		writeError(w, http.StatusInternalServerError, auth.ErrorCode(err))
		return
	}
	writeError(w, http.StatusInternalServerError, "internal error")
}
