package history

import (
	"github.com/aimboard/aimboard/pkg/clock"
	"github.com/aimboard/aimboard/pkg/logger"
)

// Option configures the run log.
type Option func(*Log)

// WithMaxLimit caps the number of rows a single query may return.
// Non-positive values are ignored.
func WithMaxLimit(n int) Option {
	return func(l *Log) {
		if n > 0 {
			l.maxLimit = n
		}
	}
}

// WithClock replaces the wall clock used for recorded-at stamps.
func WithClock(clk clock.Clock) Option {
	return func(l *Log) {
		if clk != nil {
			l.clk = clk
		}
	}
}

// WithLogger sets the logger used by the run log.
func WithLogger(log logger.Logger) Option {
	return func(l *Log) {
		if log != nil {
			l.log = log
		}
	}
}
