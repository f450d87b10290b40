package auth

import (
	"bytes"
	"context"
	"errors"
	"time"
)

type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// zeroRandom is a deterministic entropy source for tests that only need stable lengths.
func zeroRandom() RandomSource {
	return bytes.NewReader(make([]byte, 4096))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

// cleanupFailingStore breaks expired-session cleanup only.
type cleanupFailingStore struct {
	*MemoryStore
}

func (s cleanupFailingStore) DeleteExpiredSessions(context.Context, time.Time) (int64, error) {
	return 0, errors.New("cleanup unavailable")
}
