package auth

import (
	"crypto/rand"
	"io"
	"time"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// RandomSource supplies entropy. crypto/rand.Reader in production.
type RandomSource = io.Reader

func defaultRandom() RandomSource {
	return rand.Reader
}
