package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps users and sessions in process memory, ideal for local development or tests.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[uuid.UUID]User
	byEmail  map[string]uuid.UUID
	sessions map[string]Session
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[uuid.UUID]User),
		byEmail:  make(map[string]uuid.UUID),
		sessions: make(map[string]Session),
	}
}

// GetUserByID returns the user with the given ID.
func (r *MemoryStore) GetUserByID(_ context.Context, id uuid.UUID) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

// GetUserByEmail returns the user registered under email. Matching is exact.
func (r *MemoryStore) GetUserByEmail(_ context.Context, email string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, nil
	}
	user := r.users[id]
	return &user, nil
}

// GetUserByProvider returns the user linked to the provider identity.
func (r *MemoryStore) GetUserByProvider(_ context.Context, provider, providerID string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if providerID == "" {
		return nil, nil
	}
	for _, user := range r.users {
		if user.AuthProvider == provider && user.OAuthProviderID == providerID {
			u := user
			return &u, nil
		}
	}
	return nil, nil
}

// CreateUser stores a new user.
func (r *MemoryStore) CreateUser(_ context.Context, user User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[user.Email]; exists {
		return User{}, ErrDuplicateAccount
	}
	r.users[user.ID] = user
	r.byEmail[user.Email] = user.ID
	return user, nil
}

// UpdateUser applies the non-nil fields of update.
func (r *MemoryStore) UpdateUser(_ context.Context, id uuid.UUID, update UserUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return ErrUserNotFound
	}
	if update.Name != nil {
		user.Name = *update.Name
	}
	if update.AvatarURL != nil {
		user.AvatarURL = *update.AvatarURL
	}
	if update.AuthProvider != nil {
		user.AuthProvider = *update.AuthProvider
	}
	if update.OAuthProviderID != nil {
		user.OAuthProviderID = *update.OAuthProviderID
	}
	if update.Verified != nil {
		user.Verified = *update.Verified
	}
	if update.LastLoginAt != nil {
		t := *update.LastLoginAt
		user.LastLoginAt = &t
	}
	user.UpdatedAt = time.Now().UTC()
	r.users[id] = user
	return nil
}

// CreateSessionToken stores a session keyed by its token hash.
func (r *MemoryStore) CreateSessionToken(_ context.Context, session Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[session.TokenHash] = session
	return nil
}

// GetSessionByTokenHash returns the session and its owner.
func (r *MemoryStore) GetSessionByTokenHash(_ context.Context, tokenHash string) (*Session, *User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[tokenHash]
	if !ok {
		return nil, nil, nil
	}
	user, ok := r.users[session.UserID]
	if !ok {
		return nil, nil, nil
	}
	return &session, &user, nil
}

// MarkSessionInactive flags the session as revoked. Unknown hashes are ignored.
func (r *MemoryStore) MarkSessionInactive(_ context.Context, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if session, ok := r.sessions[tokenHash]; ok {
		session.Active = false
		r.sessions[tokenHash] = session
	}
	return nil
}

// DeleteExpiredSessions removes sessions whose expiry is at or before now.
func (r *MemoryStore) DeleteExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed int64
	for hash, session := range r.sessions {
		if !now.Before(session.ExpiresAt) {
			delete(r.sessions, hash)
			removed++
		}
	}
	return removed, nil
}
