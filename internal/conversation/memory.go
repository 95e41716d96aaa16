package conversation

import (
	"context"
	"sync"

	"github.com/barkeephq/barkeep/pkg/types"
)

// MemoryStore is an in-memory Store keyed by user id. Windows are copied on
// read and write so callers can't mutate stored history through shared
// slices.
type MemoryStore struct {
	mu      sync.RWMutex
	windows map[string][]types.Message
}

// NewMemoryStore creates an empty in-memory conversation store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string][]types.Message)}
}

// Get returns the stored window for a user
func (s *MemoryStore) Get(_ context.Context, userID string) ([]types.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.windows[userID]
	if !ok {
		return nil, nil
	}
	out := make([]types.Message, len(stored))
	copy(out, stored)
	return out, nil
}

// Put replaces the stored window for a user
func (s *MemoryStore) Put(_ context.Context, userID string, msgs []types.Message) error {
	window := make([]types.Message, len(msgs))
	copy(window, msgs)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows[userID] = window
	return nil
}

// Clear removes the stored window for a user
func (s *MemoryStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, userID)
	return nil
}
