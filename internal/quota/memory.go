package quota

import (
	"context"
	"sync"
	"time"

	"github.com/barkeephq/barkeep/pkg/types"
)

// MemoryStore is an in-memory quota store. The clock is injectable so
// rollover behavior is testable without waiting for midnight.
type MemoryStore struct {
	mu     sync.Mutex
	usage  map[string]types.QuotaState
	limits map[string]types.UserLimits
	now    func() time.Time
}

// NewMemoryStore creates an empty in-memory quota store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		usage:  make(map[string]types.QuotaState),
		limits: make(map[string]types.UserLimits),
		now:    time.Now,
	}
}

// SetClock overrides the store's clock. Intended for tests.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) today() string {
	return s.now().Format("2006-01-02")
}

// rolloverLocked resets the counter when the stored date is not today.
// Callers must hold s.mu.
func (s *MemoryStore) rolloverLocked(userID string) types.QuotaState {
	today := s.today()
	state, ok := s.usage[userID]
	if !ok || state.Date != today {
		state = types.QuotaState{Date: today}
		s.usage[userID] = state
	}
	return state
}

// Check reports whether the user may start a run
func (s *MemoryStore) Check(_ context.Context, userID string) (bool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.rolloverLocked(userID)
	limit := s.limits[userID].EffectiveDailyLimit()
	if state.Count >= limit {
		return false, 0, nil
	}
	return true, limit - state.Count, nil
}

// Record counts one run against the user's quota
func (s *MemoryStore) Record(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.rolloverLocked(userID)
	state.Count++
	s.usage[userID] = state
	return nil
}

// Usage returns today's count and the effective daily limit
func (s *MemoryStore) Usage(_ context.Context, userID string) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.rolloverLocked(userID)
	return state.Count, s.limits[userID].EffectiveDailyLimit(), nil
}

// SetLimit overrides one limit for a user
func (s *MemoryStore) SetLimit(_ context.Context, userID, key string, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	limits := s.limits[userID]
	switch key {
	case KeyDailyLimit:
		limits.DailyLimit = value
	case KeyMaxIterations:
		limits.MaxIterations = value
	default:
		return ErrUnknownLimitKey
	}
	s.limits[userID] = limits
	return nil
}

// Limits returns the user's limits with overrides applied
func (s *MemoryStore) Limits(_ context.Context, userID string) (types.UserLimits, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.limits[userID], nil
}
