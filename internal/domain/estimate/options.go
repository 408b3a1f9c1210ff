package estimate

import (
	"github.com/aimboard/aimboard/pkg/clock"
	"github.com/aimboard/aimboard/pkg/logger"
)

// Option applies a configuration option to the Estimator.
type Option func(*Estimator)

// WithPlayer keys the persisted estimate map under a player identity.
func WithPlayer(player string) Option {
	return func(e *Estimator) {
		if player != "" {
			e.player = player
		}
	}
}

// WithClock substitutes the time source, used by tests.
func WithClock(clk clock.Clock) Option {
	return func(e *Estimator) {
		if clk != nil {
			e.clk = clk
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(e *Estimator) {
		if log != nil {
			e.log = log
		}
	}
}
