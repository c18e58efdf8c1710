// Package metadata is the client-local key/value store. It backs the
// durable credential slot of the session and any other small settings the
// client needs to survive restarts.
package metadata

import (
	"context"
)

// Repository is a string-keyed store of opaque values.
//
// Get returns common.ErrorNotFound when the key is absent. Delete of a
// missing key is not an error.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
