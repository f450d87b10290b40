package auth

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// StateLedger records OAuth state values that were already consumed so a
// captured callback URL cannot be replayed inside the cookie TTL.
type StateLedger interface {
	// Consume returns true the first time state is presented within ttl.
	Consume(ctx context.Context, state string, ttl time.Duration) (bool, error)
}

// MemoryStateLedger is a single-process StateLedger for development.
type MemoryStateLedger struct {
	mu    sync.Mutex
	seen  map[string]time.Time
	clock Clock
}

// NewMemoryStateLedger creates an empty MemoryStateLedger.
func NewMemoryStateLedger(opts ...Option) *MemoryStateLedger {
	o := buildOptions(opts)
	return &MemoryStateLedger{
		seen:  make(map[string]time.Time),
		clock: o.clock,
	}
}

// Consume marks state as used.
func (l *MemoryStateLedger) Consume(_ context.Context, state string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	for key, exp := range l.seen {
		if !now.Before(exp) {
			delete(l.seen, key)
		}
	}

	key := HashToken(state)
	if _, used := l.seen[key]; used {
		return false, nil
	}
	l.seen[key] = now.Add(ttl)
	return true, nil
}

type redisSetNXer interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// RedisStateLedger shares consumed states across instances using SET NX with a TTL.
type RedisStateLedger struct {
	client redisSetNXer
	prefix string
}

// NewRedisStateLedger wraps a redis client. It returns nil for a nil client.
func NewRedisStateLedger(client *redis.Client) *RedisStateLedger {
	if client == nil {
		return nil
	}
	return &RedisStateLedger{client: client, prefix: "oauth:state:"}
}

// Consume marks state as used.
func (l *RedisStateLedger) Consume(ctx context.Context, state string, ttl time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	return l.client.SetNX(ctx, l.prefix+HashToken(state), 1, ttl).Result()
}
