package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/lumenlearn/engage/internal/domain"
	"github.com/lumenlearn/engage/internal/service/schedule"
)

// EventRepo implements schedule.Repository against PostgreSQL.
type EventRepo struct{ db *sql.DB }

// NewEventRepo creates a Postgres-backed scheduled-event repository.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

func (r *EventRepo) Create(ctx context.Context, ev *domain.ScheduledEvent) error {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO scheduled_events
			(id, user_id, event_type, category, scheduled_for, status, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, ev.ID, ev.UserID, ev.EventType, ev.Category, ev.ScheduledFor, ev.Status, payload, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// ClaimDue is the single conditional update that keeps two dispatcher
// instances from double-processing a row. SKIP LOCKED lets concurrent
// claimers pass each other instead of blocking.
func (r *EventRepo) ClaimDue(ctx context.Context, now time.Time, limit int) ([]domain.ScheduledEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		WITH due AS (
			SELECT id FROM scheduled_events
			WHERE status = 'pending' AND scheduled_for <= $1
			ORDER BY scheduled_for ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		UPDATE scheduled_events e
		SET status = 'processing'
		FROM due
		WHERE e.id = due.id
		RETURNING e.id, e.user_id, e.event_type, e.category, e.scheduled_for,
		          e.status, e.payload, COALESCE(e.last_error,''), e.processed_at, e.created_at
	`, now, limit)
	if err != nil {
		return nil, fmt.Errorf("claim due events: %w", err)
	}
	defer rows.Close()

	var out []domain.ScheduledEvent
	for rows.Next() {
		var (
			ev      domain.ScheduledEvent
			payload []byte
		)
		if err := rows.Scan(
			&ev.ID, &ev.UserID, &ev.EventType, &ev.Category, &ev.ScheduledFor,
			&ev.Status, &payload, &ev.LastError, &ev.ProcessedAt, &ev.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &ev.Payload); err != nil {
				return nil, fmt.Errorf("decode payload for %s: %w", ev.ID, err)
			}
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("claim due events: %w", err)
	}

	// RETURNING does not guarantee row order.
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledFor.Before(out[j].ScheduledFor) })
	return out, nil
}

func (r *EventRepo) MarkCompleted(ctx context.Context, id string, processedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE scheduled_events
		SET status = 'completed', processed_at = $2, last_error = NULL
		WHERE id = $1 AND status = 'processing'
	`, id, processedAt)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return schedule.ErrNotFound
	}
	return nil
}

func (r *EventRepo) MarkFailed(ctx context.Context, id string, processedAt time.Time, reason string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE scheduled_events
		SET status = 'failed', processed_at = $2, last_error = $3
		WHERE id = $1 AND status = 'processing'
	`, id, processedAt, reason)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return schedule.ErrNotFound
	}
	return nil
}

func (r *EventRepo) LastCallScheduledAt(ctx context.Context, userID string) (*time.Time, error) {
	var last sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT MAX(scheduled_for) FROM scheduled_events
		WHERE user_id = $1 AND event_type = 'call'
	`, userID).Scan(&last)
	if err != nil {
		return nil, fmt.Errorf("last call scheduled: %w", err)
	}
	if !last.Valid {
		return nil, nil
	}
	return &last.Time, nil
}
