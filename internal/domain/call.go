package domain

import "time"

// CallType selects the spoken script placed on an outbound call.
type CallType string

const (
	CallReminder    CallType = "reminder"
	CallMicroLesson CallType = "micro_lesson"
	CallAudio       CallType = "audio"
)

// ParseCallType validates a raw call type string.
func ParseCallType(s string) (CallType, bool) {
	switch t := CallType(s); t {
	case CallReminder, CallMicroLesson, CallAudio:
		return t, true
	}
	return "", false
}

// CallStatus tracks a call through the transport's real lifecycle. The
// pre-transport states are queued and initiated; the rest arrive via status
// callbacks.
type CallStatus string

const (
	CallQueued    CallStatus = "queued"
	CallInitiated CallStatus = "initiated"
	CallRinging   CallStatus = "ringing"
	CallAnswered  CallStatus = "answered"
	CallCompleted CallStatus = "completed"
	CallFailed    CallStatus = "failed"
	CallNoAnswer  CallStatus = "no-answer"
	CallBusy      CallStatus = "busy"
)

// IsTerminal returns true for statuses after which no further callback is
// expected. completed_at is set only on these.
func (s CallStatus) IsTerminal() bool {
	switch s {
	case CallCompleted, CallFailed, CallNoAnswer, CallBusy:
		return true
	}
	return false
}

// CallLog is an append-only delivery record for one outbound call attempt.
// Rows are created at dispatch time and mutated by transport callbacks,
// never deleted.
type CallLog struct {
	ID          string   `json:"id" db:"id"`
	UserID      string   `json:"user_id" db:"user_id"`
	CallType    CallType `json:"call_type" db:"call_type"`
	PhoneNumber string   `json:"phone_number" db:"phone_number"`

	// CallSID is the transport-assigned correlation id, set once the
	// provider accepts the call.
	CallSID string     `json:"call_sid" db:"call_sid"`
	Status  CallStatus `json:"status" db:"status"`

	// Message and ContentID feed script generation when the provider
	// fetches the call script.
	Message   string `json:"message" db:"message"`
	ContentID string `json:"content_id" db:"content_id"`

	DurationSeconds int    `json:"duration_seconds" db:"duration_seconds"`
	UserResponded   bool   `json:"user_responded" db:"user_responded"`
	ResponseData    string `json:"response_data" db:"response_data"`
	ErrorMessage    string `json:"error_message" db:"error_message"`

	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	CompletedAt *time.Time `json:"completed_at" db:"completed_at"`
}
