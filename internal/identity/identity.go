// Package identity tracks the authenticated user context that scopes
// remote data access and local cache partitioning.
package identity

import "context"

// Identity is the authenticated user context: a stable opaque ID plus
// profile detail extracted from the provider token.
type Identity struct {
	ID    string
	Email string
}

// Session tracks the current authenticated identity and its token.
//
// Subscribe registers a callback invoked with the current identity (or
// nil when signed out) on every change. The callback is invoked once
// synchronously with the current state before Subscribe returns. The
// returned func unsubscribes.
type Session interface {
	Subscribe(fn func(*Identity)) (unsubscribe func())

	// Current returns the active identity, or nil when signed out.
	Current() *Identity

	// Token returns the raw credential attached to remote calls.
	// forceRefresh discards any cached access token first.
	Token(ctx context.Context, forceRefresh bool) (string, error)
}
