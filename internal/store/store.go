package store

import "context"

// Store is the durable key/value storage used for client-side state that
// must survive restarts, such as the session token. Get returns an empty
// string and a nil error for a key that was never set.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}
