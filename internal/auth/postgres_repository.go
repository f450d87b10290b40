package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

const userColumns = `id, email, name, avatar_url, password_hash, auth_provider, oauth_provider_id,
	verified, plan, onboarding_completed, created_at, updated_at, last_login_at`

// PostgresStore implements CredentialStore using PostgreSQL.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// GetUserByID looks up a user by primary key.
func (r *PostgresStore) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetUserByEmail looks up a user by their email address.
func (r *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// GetUserByProvider looks up a user by OAuth provider and provider ID.
func (r *PostgresStore) GetUserByProvider(ctx context.Context, provider, providerID string) (*User, error) {
	return r.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE auth_provider = $1 AND oauth_provider_id = $2`, provider, providerID)
}

func (r *PostgresStore) getUser(ctx context.Context, query string, args ...any) (*User, error) {
	var row userRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row.toUser(), nil
}

// CreateUser inserts a new user into the database.
func (r *PostgresStore) CreateUser(ctx context.Context, user User) (User, error) {
	const query = `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.AvatarURL,
		nullString(user.PasswordHash),
		user.AuthProvider,
		nullString(user.OAuthProviderID),
		user.Verified,
		user.Plan,
		user.OnboardingCompleted,
		user.CreatedAt,
		user.UpdatedAt,
		user.LastLoginAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return User{}, ErrDuplicateAccount
		}
		return User{}, err
	}

	return user, nil
}

// UpdateUser applies the non-nil fields of update.
func (r *PostgresStore) UpdateUser(ctx context.Context, id uuid.UUID, update UserUpdate) error {
	sets := make([]string, 0, 7)
	args := []any{id}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Name != nil {
		add("name", *update.Name)
	}
	if update.AvatarURL != nil {
		add("avatar_url", *update.AvatarURL)
	}
	if update.AuthProvider != nil {
		add("auth_provider", *update.AuthProvider)
	}
	if update.OAuthProviderID != nil {
		add("oauth_provider_id", nullString(*update.OAuthProviderID))
	}
	if update.Verified != nil {
		add("verified", *update.Verified)
	}
	if update.LastLoginAt != nil {
		add("last_login_at", *update.LastLoginAt)
	}
	if len(sets) == 0 {
		return nil
	}
	add("updated_at", time.Now().UTC())

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// CreateSessionToken inserts a new session row.
func (r *PostgresStore) CreateSessionToken(ctx context.Context, session Session) error {
	const query = `
		INSERT INTO user_sessions (id, user_id, session_token_hash, expires_at, created_at, user_agent, ip_address, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.TokenHash,
		session.ExpiresAt,
		session.CreatedAt,
		session.UserAgent,
		session.IPAddress,
		session.Active,
	)
	return err
}

// GetSessionByTokenHash looks up a session and its associated user by token hash.
func (r *PostgresStore) GetSessionByTokenHash(ctx context.Context, tokenHash string) (*Session, *User, error) {
	const query = `
		SELECT
			s.id AS session_id, s.session_token_hash, s.expires_at, s.created_at AS session_created_at,
			s.user_agent, s.ip_address, s.active,
			u.id, u.email, u.name, u.avatar_url, u.password_hash, u.auth_provider, u.oauth_provider_id,
			u.verified, u.plan, u.onboarding_completed, u.created_at, u.updated_at, u.last_login_at
		FROM user_sessions s
		JOIN users u ON s.user_id = u.id
		WHERE s.session_token_hash = $1
	`

	var row sessionUserRow
	if err := r.db.GetContext(ctx, &row, query, tokenHash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	return row.toSession(), row.userRow.toUser(), nil
}

// MarkSessionInactive flags the session as revoked. The row is kept for audit.
func (r *PostgresStore) MarkSessionInactive(ctx context.Context, tokenHash string) error {
	const query = `UPDATE user_sessions SET active = FALSE WHERE session_token_hash = $1 AND active`
	_, err := r.db.ExecContext(ctx, query, tokenHash)
	return err
}

// DeleteExpiredSessions removes sessions whose expiry is at or before now.
func (r *PostgresStore) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM user_sessions WHERE expires_at <= $1`
	result, err := r.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// userRow is a database row representation of User.
type userRow struct {
	ID                  uuid.UUID      `db:"id"`
	Email               string         `db:"email"`
	Name                string         `db:"name"`
	AvatarURL           string         `db:"avatar_url"`
	PasswordHash        sql.NullString `db:"password_hash"`
	AuthProvider        string         `db:"auth_provider"`
	OAuthProviderID     sql.NullString `db:"oauth_provider_id"`
	Verified            bool           `db:"verified"`
	Plan                string         `db:"plan"`
	OnboardingCompleted bool           `db:"onboarding_completed"`
	CreatedAt           time.Time      `db:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at"`
	LastLoginAt         sql.NullTime   `db:"last_login_at"`
}

func (r *userRow) toUser() *User {
	user := &User{
		ID:                  r.ID,
		Email:               r.Email,
		Name:                r.Name,
		AvatarURL:           r.AvatarURL,
		PasswordHash:        r.PasswordHash.String,
		AuthProvider:        r.AuthProvider,
		OAuthProviderID:     r.OAuthProviderID.String,
		Verified:            r.Verified,
		Plan:                r.Plan,
		OnboardingCompleted: r.OnboardingCompleted,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
	if r.LastLoginAt.Valid {
		t := r.LastLoginAt.Time
		user.LastLoginAt = &t
	}
	return user
}

// sessionUserRow is a database row for the session + user join query.
type sessionUserRow struct {
	SessionID        uuid.UUID `db:"session_id"`
	TokenHash        string    `db:"session_token_hash"`
	ExpiresAt        time.Time `db:"expires_at"`
	SessionCreatedAt time.Time `db:"session_created_at"`
	UserAgent        string    `db:"user_agent"`
	IPAddress        string    `db:"ip_address"`
	Active           bool      `db:"active"`

	userRow
}

func (r *sessionUserRow) toSession() *Session {
	return &Session{
		ID:        r.SessionID,
		UserID:    r.ID,
		TokenHash: r.TokenHash,
		ExpiresAt: r.ExpiresAt,
		CreatedAt: r.SessionCreatedAt,
		UserAgent: r.UserAgent,
		IPAddress: r.IPAddress,
		Active:    r.Active,
	}
}
