// Package cache persists the last-known-good task list per user
// identity, as durable fallback data for when the remote service is
// unreachable.
package cache

import "todosync/internal/service"

// Store is a namespaced key-value store for task lists. Implementations
// may be backed by an async durable medium, but Get and Set are
// synchronous from the caller's perspective. The synchronizer treats
// Set failures as non-fatal; the remote service remains the durability
// guarantee.
type Store interface {
	// Get returns the stored task list for key. ok is false when no
	// entry exists. A decode failure returns an error and ok false.
	Get(key string) (tasks []service.Task, ok bool, err error)

	// Set replaces the entry for key. Last write wins.
	Set(key string, tasks []service.Task) error
}

// Key derives the cache key for a user identity. Each identity's cache
// is isolated and stable across sessions on the same device.
func Key(ownerID string) string {
	return "todos_" + ownerID
}
