// Package metadata stores small keyed records in the local sqlite database.
// It is the durable layer behind the session store and the preferences.
package metadata

import (
	"context"
)

// Repository is a durable key/value store. Get returns (nil, nil) for a key
// that does not exist. Delete ignores keys that are not present.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
