package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/claimlens/claimlens/internal/db"
)

// Store persists per-thread conversation contexts and their turn history.
type Store struct {
	db *db.DB
}

// NewStore creates a new conversation store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// Load returns the stored context for a thread. A missing thread yields a
// zero Context and found=false, which is a valid starting state.
func (s *Store) Load(ctx context.Context, threadID string) (Context, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT context_json FROM conversation_threads WHERE id = ?`, threadID,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return Context{}, false, nil
	}
	if err != nil {
		return Context{}, false, err
	}

	var c Context
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return Context{}, false, fmt.Errorf("parsing context for thread %s: %w", threadID, err)
	}
	return c, true, nil
}

// Save upserts the thread's context and appends its newest history record as
// a turn row. Save expects the caller to have serialized turns per thread.
func (s *Store) Save(ctx context.Context, threadID, clientID string, c Context) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling context: %w", err)
	}

	now := time.Now().UTC().Format(time.DateTime)
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversation_threads (id, client_id, context_json, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			context_json = excluded.context_json,
			updated_at = excluded.updated_at`,
		threadID, clientID, string(raw), now,
	)
	if err != nil {
		return err
	}

	if n := len(c.History); n > 0 {
		turn := c.History[n-1]
		_, err = tx.ExecContext(ctx, `
			INSERT INTO conversation_turns (id, thread_id, turn_index, intent_type, metric_slug, user_message)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(thread_id, turn_index) DO NOTHING`,
			uuid.NewString(), threadID, turn.TurnIndex, string(turn.IntentType), turn.MetricSlug, turn.UserMessage,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// TurnCount returns how many turns have been recorded for a thread.
func (s *Store) TurnCount(ctx context.Context, threadID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM conversation_turns WHERE thread_id = ?`, threadID,
	).Scan(&n)
	return n, err
}

// Delete discards a thread and its turns.
func (s *Store) Delete(ctx context.Context, threadID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM conversation_threads WHERE id = ?`, threadID)
	return err
}
