// Package conversation provides per-user storage for agent conversations
package conversation

import (
	"context"

	"github.com/barkeephq/barkeep/pkg/types"
)

// Store manages per-user conversation windows. Implementations must be safe
// for concurrent use; operations for unrelated users must not serialize each
// other.
type Store interface {
	// Get returns the stored window for a user, or an empty slice if none
	Get(ctx context.Context, userID string) ([]types.Message, error)

	// Put replaces the stored window for a user
	Put(ctx context.Context, userID string, msgs []types.Message) error

	// Clear removes the stored window for a user
	Clear(ctx context.Context, userID string) error
}
