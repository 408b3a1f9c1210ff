package bench

import (
	_ "embed"
)

//go:embed benchmarks.json
var embedded []byte

// Built-in catalog, parsed once at startup.
var defaultCatalog *Catalog //nolint:gochecknoglobals // intentional global for the embedded catalog

func init() { //nolint:gochecknoinits // embedded catalog is fixed at build time
	c, err := New(embedded)
	if err != nil {
		panic(err)
	}
	defaultCatalog = c
}

// Default returns the built-in benchmark catalog.
func Default() *Catalog {
	return defaultCatalog
}
