// Package ws pushes dashboard state changes to connected browsers over
// WebSocket.
package ws

import (
	"github.com/aimboard/aimboard/pkg/logger"
)

// Option configures a Hub.
type Option func(*Hub)

// WithLogger overrides the hub's logger.
func WithLogger(log logger.Logger) Option {
	return func(h *Hub) {
		if log != nil {
			h.log = log
		}
	}
}

// WithSendBuffer sets how many events may queue per client before the
// client is considered too slow and dropped.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}
