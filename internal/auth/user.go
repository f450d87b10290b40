package auth

import (
	"time"

	"github.com/google/uuid"
)

// Plan tiers a user can be on.
const (
	PlanFree = "free"
)

// Auth providers recorded on a user.
const (
	ProviderEmail  = "email"
	ProviderGoogle = "google"
)

// User represents an identity known to the system.
type User struct {
	ID                  uuid.UUID
	Email               string
	Name                string
	AvatarURL           string
	PasswordHash        string // "<base64 hash>:<base64 salt>", empty for OAuth-only accounts
	AuthProvider        string
	OAuthProviderID     string
	Verified            bool
	Plan                string
	OnboardingCompleted bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
	LastLoginAt         *time.Time
}

// HasPassword reports whether the account carries a stored password credential.
func (u *User) HasPassword() bool {
	return u != nil && u.PasswordHash != ""
}

// UserUpdate lists the user fields a caller wants to change. Nil fields are left untouched.
type UserUpdate struct {
	Name            *string
	AvatarURL       *string
	AuthProvider    *string
	OAuthProviderID *string
	Verified        *bool
	LastLoginAt     *time.Time
}

// Session is a stored session-token record. The plaintext token is never part of it.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
	UserAgent string
	IPAddress string
	Active    bool
}

// ActiveAt reports whether the session is usable at t. The window is [CreatedAt, ExpiresAt).
func (s *Session) ActiveAt(t time.Time) bool {
	if s == nil || !s.Active {
		return false
	}
	if t.Before(s.CreatedAt) {
		return false
	}
	return t.Before(s.ExpiresAt)
}

// SessionMetadata is the client information recorded alongside a session.
type SessionMetadata struct {
	UserAgent string
	IPAddress string
}
