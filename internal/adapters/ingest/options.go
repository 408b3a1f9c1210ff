package ingest

import (
	"time"

	"github.com/aimboard/aimboard/pkg/logger"
)

// Option configures a Poller.
type Option func(*Poller)

// WithInterval sets the delay between polls.
func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithSeenLimit bounds how many delivered run IDs the poller remembers.
func WithSeenLimit(n int) Option {
	return func(p *Poller) {
		if n > 0 {
			p.seen = NewSeenSet(n)
		}
	}
}

// WithLogger sets a custom logger for the poller.
func WithLogger(l logger.Logger) Option {
	return func(p *Poller) {
		if l != nil {
			p.log = l
		}
	}
}

// DirOption configures a DirSource.
type DirOption func(*DirSource)

// WithPlayer attributes fetched runs to the given player.
func WithPlayer(player string) DirOption {
	return func(s *DirSource) {
		if player != "" {
			s.player = player
		}
	}
}

// WithDirLogger sets a custom logger for the source.
func WithDirLogger(l logger.Logger) DirOption {
	return func(s *DirSource) {
		if l != nil {
			s.log = l
		}
	}
}
