package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/barkeephq/barkeep/pkg/types"
)

// SQLiteStore persists conversation windows in SQLite so history survives
// restarts. Each user's window is one row with the messages as a JSON blob;
// windows are small by construction (they are trimmed before storage), so a
// blob read/write per run is cheap.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a SQLite-backed conversation store and ensures the
// schema exists.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initializing conversation schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS conversations (
			user_id    TEXT PRIMARY KEY,
			messages   TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`)
	return err
}

// Get returns the stored window for a user
func (s *SQLiteStore) Get(ctx context.Context, userID string) ([]types.Message, error) {
	var blob string
	err := s.db.QueryRowContext(ctx,
		`SELECT messages FROM conversations WHERE user_id = ?`, userID,
	).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading conversation for %s: %w", userID, err)
	}

	var msgs []types.Message
	if err := json.Unmarshal([]byte(blob), &msgs); err != nil {
		return nil, fmt.Errorf("decoding conversation for %s: %w", userID, err)
	}
	return msgs, nil
}

// Put replaces the stored window for a user
func (s *SQLiteStore) Put(ctx context.Context, userID string, msgs []types.Message) error {
	blob, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("encoding conversation for %s: %w", userID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (user_id, messages, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			messages = excluded.messages,
			updated_at = excluded.updated_at
	`, userID, string(blob), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("storing conversation for %s: %w", userID, err)
	}
	return nil
}

// Clear removes the stored window for a user
func (s *SQLiteStore) Clear(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("clearing conversation for %s: %w", userID, err)
	}
	return nil
}
