package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"huddle/internal/auth"
)

const maxJSONBodyBytes int64 = 64 << 10

var errPayloadTooLarge = errors.New("payload too large")

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	limited := http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	defer func() {
		_ = limited.Close()
	}()

	decoder := json.NewDecoder(limited)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("%w (max %d bytes)", errPayloadTooLarge, maxErr.Limit)
		}
		return err
	}
	return nil
}

func writeJSONError(w http.ResponseWriter, err error) {
	if errors.Is(err, errPayloadTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}
	// Return generic message to avoid leaking internal JSON parsing details
	writeError(w, http.StatusBadRequest, "invalid request body")
}

// userResponse is the public view of a user. Credentials never leave the server.
type userResponse struct {
	ID                  uuid.UUID  `json:"id"`
	Email               string     `json:"email"`
	Name                string     `json:"name"`
	AvatarURL           string     `json:"avatarUrl,omitempty"`
	AuthProvider        string     `json:"authProvider"`
	Verified            bool       `json:"verified"`
	Plan                string     `json:"plan"`
	OnboardingCompleted bool       `json:"onboardingCompleted"`
	HasPassword         bool       `json:"hasPassword"`
	CreatedAt           time.Time  `json:"createdAt"`
	LastLoginAt         *time.Time `json:"lastLoginAt,omitempty"`
}

func newUserResponse(u *auth.User) userResponse {
	return userResponse{
		ID:                  u.ID,
		Email:               u.Email,
		Name:                u.Name,
		AvatarURL:           u.AvatarURL,
		AuthProvider:        u.AuthProvider,
		Verified:            u.Verified,
		Plan:                u.Plan,
		OnboardingCompleted: u.OnboardingCompleted,
		HasPassword:         u.HasPassword(),
		CreatedAt:           u.CreatedAt,
		LastLoginAt:         u.LastLoginAt,
	}
}
