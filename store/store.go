// Package store provides shared persistence of token bucket states keyed
// by client, for deployments where several instances enforce one set of
// limits. The states it holds are the serializable core.BucketState; the
// admission logic itself stays in core.
package store

import "github.com/yourusername/tickgate/core"

// Store is the interface for bucket state storage backends.
type Store interface {
	// Get returns the stored state for key, or nil if none exists
	Get(key string) *core.BucketState

	// Set stores the state for key
	Set(key string, state *core.BucketState)

	// Delete removes the state for key
	Delete(key string)

	// Clear removes all stored states
	Clear()
}
