// Package service assembles the dashboard: it owns every domain component
// and exposes the operations the HTTP layer serves.
package service

import "github.com/pkg/errors"

// ErrNotStarted is returned when an operation needs a running service.
var ErrNotStarted = errors.New("service not started")
