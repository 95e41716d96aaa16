package quota

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/barkeephq/barkeep/pkg/types"
)

// SQLiteStore persists usage counters and limit overrides in SQLite so
// quotas survive restarts.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore creates a SQLite-backed quota store and ensures the schema
// exists.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db, now: time.Now}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initializing quota schema: %w", err)
	}
	return s, nil
}

// SetClock overrides the store's clock. Intended for tests.
func (s *SQLiteStore) SetClock(now func() time.Time) {
	s.now = now
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS agent_usage (
			user_id TEXT PRIMARY KEY,
			date    TEXT NOT NULL,
			count   INTEGER NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS agent_limits (
			user_id TEXT NOT NULL,
			key     TEXT NOT NULL,
			value   INTEGER NOT NULL,
			PRIMARY KEY (user_id, key)
		);
	`)
	return err
}

func (s *SQLiteStore) today() string {
	return s.now().Format("2006-01-02")
}

// rollover returns today's state for the user, resetting stale rows
func (s *SQLiteStore) rollover(ctx context.Context, userID string) (types.QuotaState, error) {
	today := s.today()

	var state types.QuotaState
	err := s.db.QueryRowContext(ctx,
		`SELECT date, count FROM agent_usage WHERE user_id = ?`, userID,
	).Scan(&state.Date, &state.Count)
	if err != nil && err != sql.ErrNoRows {
		return state, fmt.Errorf("loading usage for %s: %w", userID, err)
	}

	if err == sql.ErrNoRows || state.Date != today {
		state = types.QuotaState{Date: today}
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO agent_usage (user_id, date, count) VALUES (?, ?, 0)
			ON CONFLICT(user_id) DO UPDATE SET date = excluded.date, count = 0
		`, userID, today)
		if err != nil {
			return state, fmt.Errorf("resetting usage for %s: %w", userID, err)
		}
	}
	return state, nil
}

// Check reports whether the user may start a run
func (s *SQLiteStore) Check(ctx context.Context, userID string) (bool, int, error) {
	state, err := s.rollover(ctx, userID)
	if err != nil {
		return false, 0, err
	}
	limits, err := s.Limits(ctx, userID)
	if err != nil {
		return false, 0, err
	}
	limit := limits.EffectiveDailyLimit()
	if state.Count >= limit {
		return false, 0, nil
	}
	return true, limit - state.Count, nil
}

// Record counts one run against the user's quota
func (s *SQLiteStore) Record(ctx context.Context, userID string) error {
	if _, err := s.rollover(ctx, userID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE agent_usage SET count = count + 1 WHERE user_id = ?`, userID,
	)
	if err != nil {
		return fmt.Errorf("recording usage for %s: %w", userID, err)
	}
	return nil
}

// Usage returns today's count and the effective daily limit
func (s *SQLiteStore) Usage(ctx context.Context, userID string) (int, int, error) {
	state, err := s.rollover(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	limits, err := s.Limits(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	return state.Count, limits.EffectiveDailyLimit(), nil
}

// SetLimit overrides one limit for a user
func (s *SQLiteStore) SetLimit(ctx context.Context, userID, key string, value int) error {
	if key != KeyDailyLimit && key != KeyMaxIterations {
		return ErrUnknownLimitKey
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agent_limits (user_id, key, value) VALUES (?, ?, ?)
		ON CONFLICT(user_id, key) DO UPDATE SET value = excluded.value
	`, userID, key, value)
	if err != nil {
		return fmt.Errorf("setting %s for %s: %w", key, userID, err)
	}
	return nil
}

// Limits returns the user's limits with overrides applied
func (s *SQLiteStore) Limits(ctx context.Context, userID string) (types.UserLimits, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM agent_limits WHERE user_id = ?`, userID,
	)
	if err != nil {
		return types.UserLimits{}, fmt.Errorf("loading limits for %s: %w", userID, err)
	}
	defer rows.Close()

	var limits types.UserLimits
	for rows.Next() {
		var key string
		var value int
		if err := rows.Scan(&key, &value); err != nil {
			return limits, fmt.Errorf("scanning limits for %s: %w", userID, err)
		}
		switch key {
		case KeyDailyLimit:
			limits.DailyLimit = value
		case KeyMaxIterations:
			limits.MaxIterations = value
		}
	}
	return limits, rows.Err()
}
