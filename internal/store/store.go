package store

import (
	"context"
	"time"
)

// Well-known client storage keys.
const (
	KeyAuthToken = "authToken"
	KeyTheme     = "theme"
)

// KV is durable key-value storage belonging to a single client
// (one browser, or the CLI user).
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Store holds client storage for many clients.
type Store interface {
	// Client returns the storage scoped to clientID. It never fails;
	// errors surface on the KV operations.
	Client(clientID string) KV

	// Touch records client activity.
	Touch(ctx context.Context, clientID string) error
	DeleteClient(ctx context.Context, clientID string) error
	// DeleteIdleClients removes clients not seen since before.
	DeleteIdleClients(ctx context.Context, before time.Time) (int64, error)

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
