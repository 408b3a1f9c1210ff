// Package repository defines the state store interface and errors.
package repository

import (
	"os"
	"time"
)

// Option applies a configuration option to the BoltStore.
type Option func(*BoltStore)

// WithFileMode sets the permissions the database file is created with.
func WithFileMode(mode os.FileMode) Option {
	return func(s *BoltStore) {
		if mode != 0 {
			s.fileMode = mode
		}
	}
}

// WithOpenTimeout bounds how long opening waits on the file lock.
func WithOpenTimeout(timeout time.Duration) Option {
	return func(s *BoltStore) {
		if timeout > 0 {
			s.openTimeout = timeout
		}
	}
}
