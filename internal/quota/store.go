// Package quota enforces per-user daily limits on agent runs
package quota

import (
	"context"
	"errors"

	"github.com/barkeephq/barkeep/pkg/types"
)

// ErrUnknownLimitKey is returned by SetLimit for keys outside the allowed set
var ErrUnknownLimitKey = errors.New("unknown limit key")

// Limit keys accepted by SetLimit
const (
	KeyDailyLimit    = "daily_limit"
	KeyMaxIterations = "max_iterations"
)

// Store tracks per-user daily usage counters and limit overrides. The day
// rollover is lazy: the first Check or Record on a new calendar day resets
// the counter before proceeding.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Check reports whether the user may start a run and how many runs remain
	Check(ctx context.Context, userID string) (allowed bool, remaining int, err error)

	// Record counts one run against the user's quota. Callers invoke it
	// before starting the run; a run that later fails stays counted.
	Record(ctx context.Context, userID string) error

	// Usage returns today's count and the user's effective daily limit
	Usage(ctx context.Context, userID string) (used, limit int, err error)

	// SetLimit overrides one limit for a user. Key must be KeyDailyLimit or
	// KeyMaxIterations.
	SetLimit(ctx context.Context, userID, key string, value int) error

	// Limits returns the user's limits with overrides applied
	Limits(ctx context.Context, userID string) (types.UserLimits, error)
}
