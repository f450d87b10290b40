package auth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionFixture(t *testing.T) (*MemoryStore, *SessionRegistry, *fakeClock, User) {
	t.Helper()

	store := NewMemoryStore()
	clock := newFakeClock()
	user, err := store.CreateUser(context.Background(), User{
		ID:           uuid.New(),
		Email:        "owner@example.com",
		AuthProvider: ProviderEmail,
		Verified:     true,
		Plan:         PlanFree,
	})
	require.NoError(t, err)

	registry := NewSessionRegistry(store, 0, WithClock(clock))
	return store, registry, clock, user
}

func TestSessionValidUntilExpiry(t *testing.T) {
	ctx := context.Background()
	_, registry, clock, user := newSessionFixture(t)

	token, err := registry.CreateSession(ctx, user.ID, SessionMetadata{})
	require.NoError(t, err)

	clock.Advance(29 * 24 * time.Hour)
	got, err := registry.ValidateSession(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, user.ID, got.ID)

	clock.Advance(2 * 24 * time.Hour)
	got, err = registry.ValidateSession(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionInvalidAtExactExpiry(t *testing.T) {
	ctx := context.Background()
	_, registry, clock, user := newSessionFixture(t)

	token, err := registry.CreateSessionWithTTL(ctx, user.ID, time.Hour, SessionMetadata{})
	require.NoError(t, err)

	clock.Advance(time.Hour - time.Second)
	got, err := registry.ValidateSession(ctx, token)
	require.NoError(t, err)
	assert.NotNil(t, got)

	clock.Advance(time.Second)
	got, err = registry.ValidateSession(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSessionStoresOnlyTokenHash(t *testing.T) {
	ctx := context.Background()
	store, registry, clock, user := newSessionFixture(t)

	token, err := registry.CreateSession(ctx, user.ID, SessionMetadata{UserAgent: "agent", IPAddress: "203.0.113.9"})
	require.NoError(t, err)

	require.Len(t, store.sessions, 1)
	session, ok := store.sessions[HashToken(token)]
	require.True(t, ok)
	assert.NotEqual(t, token, session.TokenHash)
	assert.Equal(t, user.ID, session.UserID)
	assert.Equal(t, clock.Now(), session.CreatedAt)
	assert.Equal(t, clock.Now().Add(DefaultSessionTTL), session.ExpiresAt)
	assert.Equal(t, "agent", session.UserAgent)
	assert.Equal(t, "203.0.113.9", session.IPAddress)
	assert.True(t, session.Active)
}

func TestSessionMetadataIsTruncated(t *testing.T) {
	ctx := context.Background()
	store, registry, _, user := newSessionFixture(t)

	token, err := registry.CreateSession(ctx, user.ID, SessionMetadata{
		UserAgent: strings.Repeat("a", 600),
		IPAddress: strings.Repeat("1", 60),
	})
	require.NoError(t, err)

	session := store.sessions[HashToken(token)]
	assert.Len(t, session.UserAgent, 512)
	assert.Len(t, session.IPAddress, 45)
}

func TestRevokeSessionIsIdempotent(t *testing.T) {
	ctx := context.Background()
	_, registry, _, user := newSessionFixture(t)

	token, err := registry.CreateSession(ctx, user.ID, SessionMetadata{})
	require.NoError(t, err)

	require.NoError(t, registry.RevokeSession(ctx, token))
	got, err := registry.ValidateSession(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, registry.RevokeSession(ctx, token))
	require.NoError(t, registry.RevokeSession(ctx, "never-issued"))
	require.NoError(t, registry.RevokeSession(ctx, ""))
}

func TestRevokeLeavesOtherSessionsActive(t *testing.T) {
	ctx := context.Background()
	_, registry, _, user := newSessionFixture(t)

	first, err := registry.CreateSession(ctx, user.ID, SessionMetadata{})
	require.NoError(t, err)
	second, err := registry.CreateSession(ctx, user.ID, SessionMetadata{})
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	require.NoError(t, registry.RevokeSession(ctx, first))

	got, err := registry.ValidateSession(ctx, second)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestValidateSessionUnknownToken(t *testing.T) {
	ctx := context.Background()
	_, registry, _, _ := newSessionFixture(t)

	for _, token := range []string{"", "unknown", "Bearer something"} {
		got, err := registry.ValidateSession(ctx, token)
		require.NoError(t, err)
		assert.Nil(t, got, "token %q", token)
	}
}

func TestCleanupExpiredSessions(t *testing.T) {
	ctx := context.Background()
	store, registry, clock, user := newSessionFixture(t)

	short, err := registry.CreateSessionWithTTL(ctx, user.ID, time.Hour, SessionMetadata{})
	require.NoError(t, err)
	long, err := registry.CreateSession(ctx, user.ID, SessionMetadata{})
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)
	removed, err := registry.CleanupExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, stillThere := store.sessions[HashToken(short)]
	assert.False(t, stillThere)
	_, stillThere = store.sessions[HashToken(long)]
	assert.True(t, stillThere)
}

func TestPurgeExpiredSwallowsFailures(t *testing.T) {
	registry := NewSessionRegistry(cleanupFailingStore{NewMemoryStore()}, 0)
	assert.NotPanics(t, func() { registry.PurgeExpired(context.Background()) })
}

func TestCreateSessionPropagatesEntropyFailure(t *testing.T) {
	registry := NewSessionRegistry(NewMemoryStore(), 0, WithRandom(failingReader{}))
	_, err := registry.CreateSession(context.Background(), uuid.New(), SessionMetadata{})
	require.Error(t, err)
}

func TestSessionTokensAreUnique(t *testing.T) {
	ctx := context.Background()
	_, registry, _, user := newSessionFixture(t)

	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		token, err := registry.CreateSession(ctx, user.ID, SessionMetadata{})
		require.NoError(t, err)
		_, dup := seen[token]
		require.False(t, dup)
		seen[token] = struct{}{}
	}
}
