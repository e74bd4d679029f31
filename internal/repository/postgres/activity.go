package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lumenlearn/engage/internal/domain"
	"github.com/lumenlearn/engage/internal/service/activity"
)

// ActivityRepo implements the read-only scanner queries.
type ActivityRepo struct{ db *sql.DB }

// NewActivityRepo creates a Postgres-backed activity scanner repository.
func NewActivityRepo(db *sql.DB) *ActivityRepo { return &ActivityRepo{db: db} }

func (r *ActivityRepo) FindInactiveUsers(ctx context.Context, thresholdDays int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.user_id
		FROM user_preferences p
		WHERE NOT EXISTS (
			SELECT 1 FROM learning_sessions s
			WHERE s.user_id = p.user_id
			  AND s.completed = true
			  AND s.started_at >= NOW() - make_interval(days => $1)
		)
	`, thresholdDays)
	if err != nil {
		return nil, fmt.Errorf("find inactive users: %w", err)
	}
	return scanUserIDs(rows)
}

func (r *ActivityRepo) FindInterestedUsers(ctx context.Context, category string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id FROM user_interests WHERE category = $1
	`, category)
	if err != nil {
		return nil, fmt.Errorf("find interested users: %w", err)
	}
	return scanUserIDs(rows)
}

func (r *ActivityRepo) FindDailyCallCandidates(ctx context.Context) ([]activity.CallCandidate, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, allowed_window_start::text
		FROM user_preferences
		WHERE calls_enabled = true
		  AND call_frequency = 'daily'
		  AND COALESCE(phone_number,'') <> ''
	`)
	if err != nil {
		return nil, fmt.Errorf("find call candidates: %w", err)
	}
	defer rows.Close()

	var out []activity.CallCandidate
	for rows.Next() {
		var (
			c     activity.CallCandidate
			start string
		)
		if err := rows.Scan(&c.UserID, &start); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		if c.WindowStart, err = domain.ParseTimeOfDay(start); err != nil {
			return nil, fmt.Errorf("candidate %s: %w", c.UserID, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanUserIDs(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
