package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// DefaultMinPasswordLength is the shortest password Register accepts.
const DefaultMinPasswordLength = 8

// CredentialConfig tunes email/password authentication.
type CredentialConfig struct {
	MinPasswordLength int
	// AllowLegacyPasswordless lets accounts without a stored password log in
	// with any password. It exists for migrating legacy records only.
	AllowLegacyPasswordless bool
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	Token string
	User  *User
}

// CredentialAuthenticator registers and authenticates email/password users.
type CredentialAuthenticator struct {
	users    UserStore
	sessions *SessionRegistry
	cfg      CredentialConfig
	clock    Clock
	random   RandomSource
	logger   *slog.Logger
}

// NewCredentialAuthenticator wires a CredentialAuthenticator.
func NewCredentialAuthenticator(users UserStore, sessions *SessionRegistry, cfg CredentialConfig, opts ...Option) *CredentialAuthenticator {
	if cfg.MinPasswordLength <= 0 {
		cfg.MinPasswordLength = DefaultMinPasswordLength
	}
	o := buildOptions(opts)
	return &CredentialAuthenticator{
		users:    users,
		sessions: sessions,
		cfg:      cfg,
		clock:    o.clock,
		random:   o.random,
		logger:   o.logger,
	}
}

// Register creates a password account. Accounts start verified on the free plan.
func (a *CredentialAuthenticator) Register(ctx context.Context, email, password string) (*User, error) {
	email = strings.TrimSpace(email)
	if !validEmail(email) {
		return nil, ErrInvalidEmail
	}
	if len(password) < a.cfg.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	existing, err := a.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateAccount
	}

	credential, err := HashPassword(a.random, password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := a.clock.Now()
	created, err := a.users.CreateUser(ctx, User{
		ID:                  uuid.New(),
		Email:               email,
		PasswordHash:        credential.String(),
		AuthProvider:        ProviderEmail,
		Verified:            true,
		Plan:                PlanFree,
		OnboardingCompleted: false,
		CreatedAt:           now,
		UpdatedAt:           now,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateAccount) {
			return nil, ErrDuplicateAccount
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	a.logger.Info("user registered", "user_id", created.ID)
	return &created, nil
}

// Login checks the credential and issues a session on success.
func (a *CredentialAuthenticator) Login(ctx context.Context, email, password string, meta SessionMetadata) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	user, err := a.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		burnPasswordCheck(password)
		return nil, ErrUserNotFound
	}
	if !user.Verified {
		return nil, ErrEmailNotVerified
	}

	if !user.HasPassword() {
		if !a.cfg.AllowLegacyPasswordless {
			return nil, ErrPasswordSetupRequired
		}
		a.logger.Warn("legacy passwordless login accepted", "user_id", user.ID)
	} else {
		credential, err := ParsePasswordHash(user.PasswordHash)
		if err != nil {
			return nil, err
		}
		if !VerifyPassword(password, credential.Hash, credential.Salt) {
			return nil, ErrInvalidPassword
		}
	}

	token, err := a.sessions.CreateSession(ctx, user.ID, meta)
	if err != nil {
		return nil, err
	}

	now := a.clock.Now()
	if err := a.users.UpdateUser(ctx, user.ID, UserUpdate{LastLoginAt: &now}); err != nil {
		a.logger.Warn("record last login failed", "user_id", user.ID, "error", err)
	} else {
		user.LastLoginAt = &now
	}

	a.sessions.PurgeExpired(ctx)

	return &LoginResult{Token: token, User: user}, nil
}

func validEmail(email string) bool {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" {
		return false
	}
	return !strings.ContainsAny(email, " \t\r\n") && !strings.Contains(domain, "@")
}

var (
	dummyCredentialOnce sync.Once
	dummyCredential     PasswordHash
)

// burnPasswordCheck spends one PBKDF2 derivation so unknown emails take as long
// as wrong passwords.
func burnPasswordCheck(password string) {
	dummyCredentialOnce.Do(func() {
		dummyCredential = HashPasswordWithSalt("huddle-unknown-account", []byte("0123456789abcdef"))
	})
	_ = VerifyPassword(password, dummyCredential.Hash, dummyCredential.Salt)
}
