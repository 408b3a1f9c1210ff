package repository

import "errors"

// Sentinel kinds for state store errors.
var (
	ErrKeyNotFound = errors.New("key not found")
	ErrClosed      = errors.New("store closed")
)
