package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStateLedgerSingleUse(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryStateLedger()

	fresh, err := ledger.Consume(ctx, "state-1", StateTTL)
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = ledger.Consume(ctx, "state-1", StateTTL)
	require.NoError(t, err)
	assert.False(t, fresh)

	fresh, err = ledger.Consume(ctx, "state-2", StateTTL)
	require.NoError(t, err)
	assert.True(t, fresh)
}

func TestMemoryStateLedgerForgetsAfterTTL(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	ledger := NewMemoryStateLedger(WithClock(clock))

	_, err := ledger.Consume(ctx, "state-1", time.Minute)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	fresh, err := ledger.Consume(ctx, "state-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, fresh)
	assert.Len(t, ledger.seen, 1)
}

func TestNewRedisStateLedgerNilClient(t *testing.T) {
	assert.Nil(t, NewRedisStateLedger(nil))
}

type mockSetNX struct {
	keys map[string]time.Duration
	err  error
}

func (m *mockSetNX) SetNX(ctx context.Context, key string, _ interface{}, expiration time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx)
	if m.err != nil {
		cmd.SetErr(m.err)
		return cmd
	}
	if _, exists := m.keys[key]; exists {
		cmd.SetVal(false)
		return cmd
	}
	m.keys[key] = expiration
	cmd.SetVal(true)
	return cmd
}

func TestRedisStateLedgerConsume(t *testing.T) {
	ctx := context.Background()
	mock := &mockSetNX{keys: map[string]time.Duration{}}
	ledger := &RedisStateLedger{client: mock, prefix: "oauth:state:"}

	fresh, err := ledger.Consume(ctx, "state-1", StateTTL)
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = ledger.Consume(ctx, "state-1", StateTTL)
	require.NoError(t, err)
	assert.False(t, fresh)

	ttl, ok := mock.keys["oauth:state:"+HashToken("state-1")]
	require.True(t, ok, "state must be stored hashed under the prefix")
	assert.Equal(t, StateTTL, ttl)
}

func TestRedisStateLedgerError(t *testing.T) {
	ledger := &RedisStateLedger{client: &mockSetNX{err: errors.New("connection refused")}, prefix: "oauth:state:"}

	fresh, err := ledger.Consume(context.Background(), "state-1", StateTTL)
	assert.Error(t, err)
	assert.False(t, fresh)
}
