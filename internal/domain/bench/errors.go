package bench

import (
	"errors"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidCatalog    = errors.New("invalid benchmark catalog")
	ErrUnknownDifficulty = errors.New("unknown difficulty")
	ErrUnknownScenario   = errors.New("unknown scenario")
)
