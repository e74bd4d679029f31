package domain

import "time"

// EventType says which delivery channel a scheduled event is routed to.
type EventType string

const (
	EventCall         EventType = "call"
	EventNotification EventType = "notification"
)

// EventStatus enumerates the lifecycle of a scheduled event.
// pending -> processing -> completed | failed. Terminal events are never
// resurrected; re-scheduling is the producer's responsibility.
type EventStatus string

const (
	EventPending    EventStatus = "pending"
	EventProcessing EventStatus = "processing"
	EventCompleted  EventStatus = "completed"
	EventFailed     EventStatus = "failed"
)

// ScheduledEvent is the durable unit of work the dispatcher consumes.
type ScheduledEvent struct {
	ID           string            `json:"id" db:"id"`
	UserID       string            `json:"user_id" db:"user_id"`
	EventType    EventType         `json:"event_type" db:"event_type"`
	Category     Category          `json:"category" db:"category"`
	ScheduledFor time.Time         `json:"scheduled_for" db:"scheduled_for"`
	Status       EventStatus       `json:"status" db:"status"`
	Payload      map[string]string `json:"payload" db:"payload"`
	LastError    string            `json:"last_error,omitempty" db:"last_error"`
	ProcessedAt  *time.Time        `json:"processed_at" db:"processed_at"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
}

// IsTerminal returns true if the event is in a final state.
func (e *ScheduledEvent) IsTerminal() bool {
	return e.Status == EventCompleted || e.Status == EventFailed
}
