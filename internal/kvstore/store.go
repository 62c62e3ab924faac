// Package kvstore is the persisted store port: synchronous get/set/remove
// over opaque string keys, used by the domain services to survive
// restarts. Each snapshot key holds a whole JSON-serialized state blob
// and is overwritten wholesale on every mutation; individual writes are
// atomic in every implementation.
package kvstore

import "context"

// Snapshot keys owned by the domain services.
const (
	KeyRoster      = "roster"
	KeyAuthorities = "authorities"
	KeySchedules   = "schedules"
)

// Store is the persisted store contract. Get returns
// sentinel.ErrNotFound (possibly wrapped) when the key is absent.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}
