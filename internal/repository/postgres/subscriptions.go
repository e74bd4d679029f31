package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lumenlearn/engage/internal/domain"
)

// SubscriptionRepo reads and deactivates push subscriptions.
type SubscriptionRepo struct{ db *sql.DB }

// NewSubscriptionRepo creates a Postgres-backed subscription repository.
func NewSubscriptionRepo(db *sql.DB) *SubscriptionRepo { return &SubscriptionRepo{db: db} }

func (r *SubscriptionRepo) ActiveByUser(ctx context.Context, userID string) ([]domain.PushSubscription, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, endpoint, p256dh_key, auth_key, active, created_at
		FROM push_subscriptions
		WHERE user_id = $1 AND active = true
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	defer rows.Close()

	var out []domain.PushSubscription
	for rows.Next() {
		var s domain.PushSubscription
		if err := rows.Scan(&s.ID, &s.UserID, &s.Endpoint, &s.P256dhKey, &s.AuthKey, &s.Active, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Deactivate retires a dead endpoint. Already-inactive rows are fine; the
// transport may report the same endpoint gone from concurrent sends.
func (r *SubscriptionRepo) Deactivate(ctx context.Context, subscriptionID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE push_subscriptions SET active = false WHERE id = $1
	`, subscriptionID)
	if err != nil {
		return fmt.Errorf("deactivate subscription: %w", err)
	}
	return nil
}
