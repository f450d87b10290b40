package auth

import (
	"io"
	"log/slog"
)

type options struct {
	clock  Clock
	random RandomSource
	logger *slog.Logger
}

// Option customises the clock, entropy source or logger of an auth component.
type Option func(*options)

// WithClock overrides the time source.
func WithClock(clock Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithRandom overrides the entropy source.
func WithRandom(random RandomSource) Option {
	return func(o *options) {
		if random != nil {
			o.random = random
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		clock:  SystemClock{},
		random: defaultRandom(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
