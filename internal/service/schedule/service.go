package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lumenlearn/engage/internal/domain"
)

// Clock returns the current time. Injected so tests control "now".
type Clock func() time.Time

// Service creates durable scheduled events.
type Service struct {
	repo Repository
	now  Clock
}

// NewService creates an event scheduler backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// SetClock overrides the clock (tests only).
func (s *Service) SetClock(c Clock) { s.now = c }

// Schedule writes a new pending event with the given fire time. The category
// must match the event type's channel; callers are responsible for any
// eligibility pre-filtering and for idempotency.
func (s *Service) Schedule(ctx context.Context, userID string, eventType domain.EventType, category domain.Category, when time.Time, payload map[string]string) (*domain.ScheduledEvent, error) {
	if category.IsCall() != (eventType == domain.EventCall) {
		return nil, fmt.Errorf("%w: %s/%s", ErrTypeMismatch, eventType, category)
	}

	ev := &domain.ScheduledEvent{
		ID:           uuid.New().String(),
		UserID:       userID,
		EventType:    eventType,
		Category:     category,
		ScheduledFor: when,
		Status:       domain.EventPending,
		Payload:      payload,
		CreatedAt:    s.now(),
	}
	if err := s.repo.Create(ctx, ev); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return ev, nil
}

// ScheduleNow writes a pending event due immediately, so the next dispatcher
// tick picks it up. Used by on-demand triggers.
func (s *Service) ScheduleNow(ctx context.Context, userID string, eventType domain.EventType, category domain.Category, payload map[string]string) (*domain.ScheduledEvent, error) {
	return s.Schedule(ctx, userID, eventType, category, s.now(), payload)
}

// LastCallScheduledAt exposes the frequency-cap query for campaign jobs.
func (s *Service) LastCallScheduledAt(ctx context.Context, userID string) (*time.Time, error) {
	return s.repo.LastCallScheduledAt(ctx, userID)
}
