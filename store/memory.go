package store

import (
	"sync"

	"github.com/yourusername/tickgate/core"
)

// MemoryStore is a thread-safe in-memory Store, suitable for a single
// instance.
type MemoryStore struct {
	states sync.Map // map[string]*core.BucketState
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get returns the stored state for key, or nil if none exists.
func (s *MemoryStore) Get(key string) *core.BucketState {
	val, ok := s.states.Load(key)
	if !ok {
		return nil
	}
	return val.(*core.BucketState)
}

// Set stores the state for key.
func (s *MemoryStore) Set(key string, state *core.BucketState) {
	s.states.Store(key, state)
}

// Delete removes the state for key.
func (s *MemoryStore) Delete(key string) {
	s.states.Delete(key)
}

// Clear removes all stored states.
func (s *MemoryStore) Clear() {
	s.states.Range(func(key, _ any) bool {
		s.states.Delete(key)
		return true
	})
}
