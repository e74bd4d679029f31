// Package postgres implements the engine's repositories against PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"github.com/lumenlearn/engage/internal/domain"
	"github.com/lumenlearn/engage/internal/service/prefs"
)

// PrefsRepo implements prefs.Repository against PostgreSQL. Stored category
// and frequency strings are validated on read so a typo'd row fails loudly
// instead of silently never matching.
type PrefsRepo struct{ db *sql.DB }

// NewPrefsRepo creates a Postgres-backed preference repository.
func NewPrefsRepo(db *sql.DB) *PrefsRepo { return &PrefsRepo{db: db} }

func (r *PrefsRepo) Get(ctx context.Context, userID string) (*domain.UserPreferences, error) {
	var (
		p           domain.UserPreferences
		windowStart string
		windowEnd   string
		quietDays   pq.StringArray
		typesJSON   []byte
		frequency   string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, notifications_enabled, push_enabled, calls_enabled,
		       allowed_window_start::text, allowed_window_end::text,
		       quiet_days, notification_types, call_frequency,
		       preferred_call_duration, COALESCE(phone_number,''),
		       created_at, updated_at
		FROM user_preferences
		WHERE user_id = $1
	`, userID).Scan(
		&p.UserID, &p.NotificationsEnabled, &p.PushEnabled, &p.CallsEnabled,
		&windowStart, &windowEnd,
		&quietDays, &typesJSON, &frequency,
		&p.PreferredCallDuration, &p.PhoneNumber,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, prefs.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get preferences: %w", err)
	}

	if p.AllowedWindowStart, err = domain.ParseTimeOfDay(windowStart); err != nil {
		return nil, fmt.Errorf("preferences %s: %w", userID, err)
	}
	if p.AllowedWindowEnd, err = domain.ParseTimeOfDay(windowEnd); err != nil {
		return nil, fmt.Errorf("preferences %s: %w", userID, err)
	}
	if p.AllowedWindowStart.Seconds > p.AllowedWindowEnd.Seconds {
		return nil, fmt.Errorf("%w: %s > %s", prefs.ErrInvalidWindow, p.AllowedWindowStart, p.AllowedWindowEnd)
	}

	p.QuietDays = []string(quietDays)

	var rawTypes map[string]bool
	if len(typesJSON) > 0 {
		if err := json.Unmarshal(typesJSON, &rawTypes); err != nil {
			return nil, fmt.Errorf("preferences %s: notification_types: %w", userID, err)
		}
	}
	p.NotificationTypes = make(map[domain.Category]bool, len(rawTypes))
	for key, enabled := range rawTypes {
		cat, err := domain.ParseCategory(key)
		if err != nil {
			return nil, fmt.Errorf("preferences %s: %w", userID, err)
		}
		p.NotificationTypes[cat] = enabled
	}

	if p.CallFrequency, err = domain.ParseCallFrequency(frequency); err != nil {
		return nil, fmt.Errorf("preferences %s: %w", userID, err)
	}

	return &p, nil
}
