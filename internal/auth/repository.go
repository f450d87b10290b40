package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserStore persists user records. Lookups return (nil, nil) when nothing matches.
type UserStore interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByProvider(ctx context.Context, provider, providerID string) (*User, error)
	// CreateUser returns ErrDuplicateAccount when the email is taken.
	CreateUser(ctx context.Context, user User) (User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, update UserUpdate) error
}

// SessionStore persists session-token records keyed by token hash.
type SessionStore interface {
	CreateSessionToken(ctx context.Context, session Session) error
	// GetSessionByTokenHash returns the session and its owner, or (nil, nil, nil).
	GetSessionByTokenHash(ctx context.Context, tokenHash string) (*Session, *User, error)
	MarkSessionInactive(ctx context.Context, tokenHash string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// CredentialStore is the full persistence surface the auth core consumes.
type CredentialStore interface {
	UserStore
	SessionStore
}
