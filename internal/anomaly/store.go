package anomaly

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/claimlens/claimlens/internal/db"
)

// Store persists anomaly events for audit and history.
type Store struct {
	db *db.DB
}

// NewStore creates a new anomaly event store.
func NewStore(database *db.DB) *Store {
	return &Store{db: database}
}

// InsertBatch writes all events from one detection run in a single
// transaction. Events without an ID get one.
func (s *Store) InsertBatch(ctx context.Context, events []Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i := range events {
		if events[i].ID == "" {
			events[i].ID = uuid.NewString()
		}
		if events[i].DetectedAt.IsZero() {
			events[i].DetectedAt = time.Now().UTC()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO anomaly_events (id, client_id, metric_slug, direction, z_score, current_value, baseline_mean, baseline_std_dev, severity, detected_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			events[i].ID,
			events[i].ClientID,
			events[i].MetricSlug,
			string(events[i].Direction),
			events[i].ZScore,
			events[i].CurrentValue,
			events[i].BaselineMean,
			events[i].BaselineStdDev,
			string(events[i].Severity),
			events[i].DetectedAt.UTC().Format(time.DateTime),
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListFilter narrows List results.
type ListFilter struct {
	MetricSlug string
	Severity   Severity
	Limit      int
}

// List returns a client's events, newest first.
func (s *Store) List(ctx context.Context, clientID string, filter ListFilter) ([]Event, error) {
	query := `
		SELECT id, client_id, metric_slug, direction, z_score, current_value, baseline_mean, baseline_std_dev, severity, detected_at
		FROM anomaly_events
		WHERE client_id = ?`
	args := []any{clientID}

	if filter.MetricSlug != "" {
		query += " AND metric_slug = ?"
		args = append(args, filter.MetricSlug)
	}
	if filter.Severity != "" {
		query += " AND severity = ?"
		args = append(args, string(filter.Severity))
	}
	query += " ORDER BY detected_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var direction, severity, detected string
		if err := rows.Scan(&e.ID, &e.ClientID, &e.MetricSlug, &direction, &e.ZScore,
			&e.CurrentValue, &e.BaselineMean, &e.BaselineStdDev, &severity, &detected); err != nil {
			return nil, err
		}
		e.Direction = Direction(direction)
		e.Severity = Severity(severity)
		if t, err := time.Parse(time.DateTime, detected); err == nil {
			e.DetectedAt = t
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
