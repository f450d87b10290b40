package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionTTL is how long an issued session stays valid.
const DefaultSessionTTL = 30 * 24 * time.Hour

// SessionRegistry issues, validates and revokes opaque session tokens.
// Only the SHA-256 hash of a token is ever handed to the store.
type SessionRegistry struct {
	store  SessionStore
	ttl    time.Duration
	clock  Clock
	random RandomSource
	logger *slog.Logger
}

// NewSessionRegistry creates a SessionRegistry. A zero ttl means DefaultSessionTTL.
func NewSessionRegistry(store SessionStore, ttl time.Duration, opts ...Option) *SessionRegistry {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	o := buildOptions(opts)
	return &SessionRegistry{
		store:  store,
		ttl:    ttl,
		clock:  o.clock,
		random: o.random,
		logger: o.logger,
	}
}

// CreateSession issues a session with the default lifetime and returns the plaintext token.
func (s *SessionRegistry) CreateSession(ctx context.Context, userID uuid.UUID, meta SessionMetadata) (string, error) {
	return s.CreateSessionWithTTL(ctx, userID, s.ttl, meta)
}

// CreateSessionWithTTL issues a session that expires ttl from now.
func (s *SessionRegistry) CreateSessionWithTTL(ctx context.Context, userID uuid.UUID, ttl time.Duration, meta SessionMetadata) (string, error) {
	if ttl <= 0 {
		ttl = s.ttl
	}
	token, err := GenerateToken(s.random)
	if err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}

	now := s.clock.Now()
	session := Session{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: HashToken(token),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
		UserAgent: truncateString(meta.UserAgent, 512),
		IPAddress: truncateString(meta.IPAddress, 45),
		Active:    true,
	}

	if err := s.store.CreateSessionToken(ctx, session); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	return token, nil
}

// ValidateSession resolves a plaintext token to its user. A missing, revoked or
// expired session all yield (nil, nil); errors are reserved for store failures.
func (s *SessionRegistry) ValidateSession(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, nil
	}

	session, user, err := s.store.GetSessionByTokenHash(ctx, HashToken(token))
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	if session == nil || user == nil {
		return nil, nil
	}
	if !session.ActiveAt(s.clock.Now()) {
		return nil, nil
	}

	return user, nil
}

// RevokeSession marks the session inactive. Revoking an unknown or already
// revoked token is not an error.
func (s *SessionRegistry) RevokeSession(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.store.MarkSessionInactive(ctx, HashToken(token)); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// CleanupExpiredSessions removes all expired sessions from the store.
func (s *SessionRegistry) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	return s.store.DeleteExpiredSessions(ctx, s.clock.Now())
}

// PurgeExpired is best-effort housekeeping: failures are logged and swallowed.
func (s *SessionRegistry) PurgeExpired(ctx context.Context) {
	removed, err := s.CleanupExpiredSessions(ctx)
	if err != nil {
		s.logger.Warn("expired session cleanup failed", "error", err)
		return
	}
	if removed > 0 {
		s.logger.Debug("expired sessions removed", "count", removed)
	}
}
