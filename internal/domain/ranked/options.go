package ranked

import (
	"github.com/aimboard/aimboard/pkg/clock"
	"github.com/aimboard/aimboard/pkg/logger"
)

// Option configures the ranked session service.
type Option func(*Service)

// WithPlayer scopes persisted ranked state to a player identity.
// Empty values are ignored.
func WithPlayer(player string) Option {
	return func(s *Service) {
		if player != "" {
			s.player = player
		}
	}
}

// WithGauntletLength sets how many scenarios the initial sequence and
// each extension select. Values below one are ignored.
func WithGauntletLength(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.gauntlet = n
		}
	}
}

// WithClock replaces the wall clock, mainly for tests.
func WithClock(clk clock.Clock) Option {
	return func(s *Service) {
		if clk != nil {
			s.clk = clk
		}
	}
}

// WithLogger sets the logger used by the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}
