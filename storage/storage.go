package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no value exists under the requested key.
var ErrNotFound = errors.New("storage key not found")

// ErrUnavailable is returned when the underlying backend cannot be reached.
var ErrUnavailable = errors.New("storage backend unavailable")

// Backend is the durable client-side key-value surface shared by the session
// store and the test-attempt store. Keys are namespaced by their owners; a
// given key has exactly one writer, so no cross-key transaction support is
// needed.
//
// Values persist until explicitly deleted. A Backend never expires entries on
// its own.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
