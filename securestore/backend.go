// Package securestore persists string values in key-value stores that cap the
// size of a single item, such as OS keychains.
package securestore

import (
	"context"

	"github.com/jrsteele09/go-tokenkeeper/internal/errors"
)

// ErrNotFound is returned by Backend.Get when the key has no value.
var ErrNotFound = errors.ErrNotFound

// Backend is a flat string key-value store. Implementations must be safe for
// concurrent use.
type Backend interface {
	Put(ctx context.Context, key, value string) error
	// Get returns ErrNotFound when key is absent.
	Get(ctx context.Context, key string) (string, error)
	// Delete of an absent key is not an error.
	Delete(ctx context.Context, key string) error
}
