package api

import "github.com/pkg/errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
)
