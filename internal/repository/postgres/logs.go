package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lumenlearn/engage/internal/domain"
)

// ErrLogNotFound is returned when a call log lookup matches nothing.
var ErrLogNotFound = errors.New("call log not found")

// LogRepo persists the append-only delivery records: call logs with their
// callback-driven lifecycle, and notification logs.
type LogRepo struct{ db *sql.DB }

// NewLogRepo creates a Postgres-backed delivery log repository.
func NewLogRepo(db *sql.DB) *LogRepo { return &LogRepo{db: db} }

func (r *LogRepo) CreateCallLog(ctx context.Context, log *domain.CallLog) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO call_logs
			(id, user_id, call_type, phone_number, status, message, content_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7,''), $8)
	`, log.ID, log.UserID, log.CallType, log.PhoneNumber, log.Status, log.Message, log.ContentID, log.CreatedAt)
	if err != nil {
		return fmt.Errorf("create call log: %w", err)
	}
	return nil
}

// SetCallSID records provider acceptance: the transport call id plus the
// transition queued -> initiated.
func (r *LogRepo) SetCallSID(ctx context.Context, id, callSID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE call_logs SET call_sid = $2, status = 'initiated'
		WHERE id = $1 AND status = 'queued'
	`, id, callSID)
	if err != nil {
		return fmt.Errorf("set call sid: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrLogNotFound
	}
	return nil
}

func (r *LogRepo) MarkCallFailed(ctx context.Context, id, errorMessage string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE call_logs SET status = 'failed', error_message = $2, completed_at = NOW()
		WHERE id = $1
	`, id, errorMessage)
	if err != nil {
		return fmt.Errorf("mark call failed: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrLogNotFound
	}
	return nil
}

// UpdateStatusBySID applies a transport status callback. completed_at and
// the duration are written only on terminal statuses.
func (r *LogRepo) UpdateStatusBySID(ctx context.Context, callSID string, status domain.CallStatus, durationSeconds int) error {
	var (
		res sql.Result
		err error
	)
	if status.IsTerminal() {
		res, err = r.db.ExecContext(ctx, `
			UPDATE call_logs SET status = $2, duration_seconds = $3, completed_at = NOW()
			WHERE call_sid = $1
		`, callSID, status, durationSeconds)
	} else {
		res, err = r.db.ExecContext(ctx, `
			UPDATE call_logs SET status = $2
			WHERE call_sid = $1
		`, callSID, status)
	}
	if err != nil {
		return fmt.Errorf("update call status: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrLogNotFound
	}
	return nil
}

// RecordResponseBySID stores an in-call keypress result on the originating
// call log.
func (r *LogRepo) RecordResponseBySID(ctx context.Context, callSID, responseData string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE call_logs SET user_responded = true, response_data = $2
		WHERE call_sid = $1
	`, callSID, responseData)
	if err != nil {
		return fmt.Errorf("record call response: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrLogNotFound
	}
	return nil
}

func (r *LogRepo) GetCallLog(ctx context.Context, id string) (*domain.CallLog, error) {
	log := &domain.CallLog{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, call_type, phone_number, COALESCE(call_sid,''), status,
		       COALESCE(message,''), COALESCE(content_id,''), duration_seconds,
		       user_responded, COALESCE(response_data,''), COALESCE(error_message,''),
		       created_at, completed_at
		FROM call_logs
		WHERE id = $1
	`, id).Scan(
		&log.ID, &log.UserID, &log.CallType, &log.PhoneNumber, &log.CallSID, &log.Status,
		&log.Message, &log.ContentID, &log.DurationSeconds,
		&log.UserResponded, &log.ResponseData, &log.ErrorMessage,
		&log.CreatedAt, &log.CompletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrLogNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get call log: %w", err)
	}
	return log, nil
}

func (r *LogRepo) GetCallLogBySID(ctx context.Context, callSID string) (*domain.CallLog, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM call_logs WHERE call_sid = $1`, callSID).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, ErrLogNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get call log by sid: %w", err)
	}
	return r.GetCallLog(ctx, id)
}

func (r *LogRepo) AppendNotificationLog(ctx context.Context, log *domain.NotificationLog) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notification_logs (id, user_id, category, title, message, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, log.ID, log.UserID, log.Category, log.Title, log.Message, log.Status, log.CreatedAt)
	if err != nil {
		return fmt.Errorf("append notification log: %w", err)
	}
	return nil
}
