package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"huddle/internal/auth"
)

type credentialService interface {
	Register(ctx context.Context, email, password string) (*auth.User, error)
	Login(ctx context.Context, email, password string, meta auth.SessionMetadata) (*auth.LoginResult, error)
}

type userUpdater interface {
	UpdateUser(ctx context.Context, id uuid.UUID, update auth.UserUpdate) error
}

type verificationIssuer interface {
	Issue(email, purpose string) (string, error)
}

// AuthHandler exposes email/password registration and login.
type AuthHandler struct {
	credentials credentialService
	users       userUpdater
	issuer      verificationIssuer
	notifier    auth.VerificationNotifier
	logger      *slog.Logger
}

// NewAuthHandler creates an AuthHandler. issuer and notifier may be nil, in
// which case no verification link is produced on registration.
func NewAuthHandler(credentials credentialService, users userUpdater, issuer verificationIssuer, notifier auth.VerificationNotifier, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		credentials: credentials,
		users:       users,
		issuer:      issuer,
		notifier:    notifier,
		logger:      logger,
	}
}

type credentialsPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload credentialsPayload
	if err := decodeJSONBody(w, r, &payload); err != nil {
		writeJSONError(w, err)
		return
	}

	user, err := h.credentials.Register(r.Context(), payload.Email, payload.Password)
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrInvalidEmail):
		writeError(w, http.StatusBadRequest, "invalid email address")
		return
	case errors.Is(err, auth.ErrPasswordTooShort):
		writeError(w, http.StatusBadRequest, "password is too short")
		return
	case errors.Is(err, auth.ErrDuplicateAccount):
		writeError(w, http.StatusConflict, "an account with this email already exists")
		return
	default:
		h.logger.Error("register user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to register user")
		return
	}

	h.sendVerification(r.Context(), user)
	writeJSON(w, http.StatusCreated, map[string]any{"userId": user.ID})
}

func (h *AuthHandler) sendVerification(ctx context.Context, user *auth.User) {
	if h.issuer == nil || h.notifier == nil {
		return
	}
	token, err := h.issuer.Issue(user.Email, auth.PurposeEmailVerification)
	if err != nil {
		h.logger.Warn("issue verification token", "user_id", user.ID, "error", err)
		return
	}
	if err := h.notifier.NotifyVerification(ctx, user, token); err != nil {
		h.logger.Warn("send verification notification", "user_id", user.ID, "error", err)
	}
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload credentialsPayload
	if err := decodeJSONBody(w, r, &payload); err != nil {
		writeJSONError(w, err)
		return
	}
	if strings.TrimSpace(payload.Email) == "" || payload.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	result, err := h.credentials.Login(r.Context(), payload.Email, payload.Password, auth.SessionMetadata{
		UserAgent: r.UserAgent(),
		IPAddress: auth.ClientIP(r),
	})
	switch {
	case err == nil:
	case errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, auth.ErrInvalidPassword),
		errors.Is(err, auth.ErrInvalidPasswordFormat):
		if errors.Is(err, auth.ErrInvalidPasswordFormat) {
			h.logger.Error("stored password credential is malformed", "error", err)
		}
		writeError(w, http.StatusUnauthorized, "authentication failed")
		return
	case errors.Is(err, auth.ErrEmailNotVerified):
		writeError(w, http.StatusForbidden, "email not verified")
		return
	case errors.Is(err, auth.ErrPasswordSetupRequired):
		writeError(w, http.StatusConflict, "password setup required")
		return
	default:
		h.logger.Error("login", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to log in")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": result.Token,
		"user":  newUserResponse(result.User),
	})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())
	if identity == nil {
		unauthorized(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":       newUserResponse(identity.User),
		"credential": identity.Kind.String(),
	})
}

// VerifyEmail handles POST /api/auth/verify-email. Only an email-verification
// stateless token is accepted as the bearer credential.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())
	if identity == nil {
		unauthorized(w)
		return
	}
	if identity.Kind != auth.StatelessCredential || identity.Purpose != auth.PurposeEmailVerification {
		writeError(w, http.StatusForbidden, "email verification token required")
		return
	}

	user := identity.User
	if !user.Verified {
		verified := true
		if err := h.users.UpdateUser(r.Context(), user.ID, auth.UserUpdate{Verified: &verified}); err != nil {
			h.logger.Error("mark email verified", "user_id", user.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to verify email")
			return
		}
		user.Verified = true
		h.logger.Info("email verified", "user_id", user.ID)
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": newUserResponse(user)})
}
