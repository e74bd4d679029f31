package schedule

import (
	"context"
	"time"

	"github.com/lumenlearn/engage/internal/domain"
)

// Repository defines the data access contract for scheduled events.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Create inserts a new pending event.
	Create(ctx context.Context, ev *domain.ScheduledEvent) error

	// ClaimDue atomically transitions up to limit pending events with
	// scheduled_for <= now into processing and returns them oldest-first.
	// The claim must be a single conditional update so two dispatcher
	// instances can never claim the same row.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]domain.ScheduledEvent, error)

	// MarkCompleted finalizes a processing event as completed.
	MarkCompleted(ctx context.Context, id string, processedAt time.Time) error

	// MarkFailed finalizes a processing event as failed. Failed events are
	// never requeued by the engine.
	MarkFailed(ctx context.Context, id string, processedAt time.Time, reason string) error

	// LastCallScheduledAt returns the scheduled_for of the user's most
	// recent call event, or nil if the user has none. Campaign jobs use it
	// to enforce the call frequency cap.
	LastCallScheduledAt(ctx context.Context, userID string) (*time.Time, error)
}
