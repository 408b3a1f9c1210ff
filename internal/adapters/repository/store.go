// Package repository defines the state store interface and errors.
package repository

import "context"

// Store provides read/write access to persisted dashboard state.
// Values are JSON documents addressed by key.
type Store interface {
	// Get unmarshals the document at key into out.
	// Returns ErrKeyNotFound if the key is absent.
	Get(ctx context.Context, key string, out any) error

	// Put marshals value and writes it at key, replacing any prior document.
	Put(ctx context.Context, key string, value any) error

	// Delete removes the document at key. Deleting an absent key is not an
	// error.
	Delete(ctx context.Context, key string) error

	// Keys lists keys with the given prefix, sorted ascending.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases the underlying resources.
	Close() error
}
