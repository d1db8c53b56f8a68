package persistence

import (
	"context"
	"strings"
)

// KeyValueStore is the durable per-user record store. Backends are
// interchangeable; the workspace only ever reads and replaces whole records.
type KeyValueStore interface {
	// Get returns the stored value or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set replaces the value stored under key.
	Set(ctx context.Context, key string, value []byte) error
}

// Pinger is implemented by backends that can report connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DataKey namespaces the aggregate record of a user, e.g. "bizdesk:data:42".
func DataKey(prefix, userID string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "bizdesk"
	}
	return prefix + ":data:" + userID
}
