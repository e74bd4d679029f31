package channel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lumenlearn/engage/internal/domain"
	"github.com/lumenlearn/engage/internal/pkg/logger"
	"github.com/lumenlearn/engage/internal/transport"
)

// CallLogStore records the pre-transport half of a call's lifecycle. Status
// callbacks mutate the same rows later through the callback handlers.
type CallLogStore interface {
	CreateCallLog(ctx context.Context, log *domain.CallLog) error
	// SetCallSID records provider acceptance: call_sid plus status initiated.
	SetCallSID(ctx context.Context, id, callSID string) error
	MarkCallFailed(ctx context.Context, id, errorMessage string) error
}

// PreferenceReader gives the call channel access to a user's phone number
// when the event payload does not carry one.
type PreferenceReader interface {
	Get(ctx context.Context, userID string) (*domain.UserPreferences, error)
}

// CallChannel places outbound voice calls.
type CallChannel struct {
	logs          CallLogStore
	prefs         PreferenceReader
	caller        transport.CallTransport
	publicBaseURL string
}

// NewCallChannel wires a call channel. publicBaseURL is where the telephony
// provider reaches back for scripts and status callbacks.
func NewCallChannel(logs CallLogStore, prefs PreferenceReader, caller transport.CallTransport, publicBaseURL string) *CallChannel {
	return &CallChannel{logs: logs, prefs: prefs, caller: caller, publicBaseURL: publicBaseURL}
}

// Place writes a queued CallLog row, asks the transport to dial, and on
// acceptance stores the provider call id with status initiated. Missing
// phone number and missing transport credentials are clean failures.
func (c *CallChannel) Place(ctx context.Context, userID, phoneNumber string, callType domain.CallType, message, contentID string) (Result, error) {
	if phoneNumber == "" {
		return Result{Success: false, Error: "no phone number on file"}, nil
	}

	log := &domain.CallLog{
		ID:          uuid.New().String(),
		UserID:      userID,
		CallType:    callType,
		PhoneNumber: phoneNumber,
		Status:      domain.CallQueued,
		Message:     message,
		ContentID:   contentID,
		CreatedAt:   time.Now(),
	}
	if err := c.logs.CreateCallLog(ctx, log); err != nil {
		return Result{}, fmt.Errorf("creating call log: %w", err)
	}

	scriptURL := c.publicBaseURL + "/twiml/" + log.ID
	statusCallbackURL := c.publicBaseURL + "/callbacks/call-status"

	sid, err := c.caller.PlaceCall(ctx, phoneNumber, scriptURL, statusCallbackURL)
	if err != nil {
		reason := err.Error()
		if errors.Is(err, transport.ErrNotConfigured) {
			reason = "not configured"
		} else {
			logger.Warn("call placement failed",
				"user_id", userID, "call_log_id", log.ID, "error", err.Error())
		}
		if markErr := c.logs.MarkCallFailed(ctx, log.ID, reason); markErr != nil {
			logger.Error("marking call log failed errored", "call_log_id", log.ID, "error", markErr.Error())
		}
		return Result{Success: false, Error: reason}, nil
	}

	if err := c.logs.SetCallSID(ctx, log.ID, sid); err != nil {
		return Result{}, fmt.Errorf("recording call sid: %w", err)
	}
	return Result{Success: true, CallSID: sid}, nil
}

// Deliver places the call for a scheduled call event. The phone number comes
// from the event payload when the producer pinned one, otherwise from the
// user's stored preferences.
func (c *CallChannel) Deliver(ctx context.Context, ev *domain.ScheduledEvent) (Result, error) {
	callType, err := callTypeFor(ev)
	if err != nil {
		return Result{}, err
	}

	phone := ev.Payload["phone_number"]
	if phone == "" {
		p, err := c.prefs.Get(ctx, ev.UserID)
		if err != nil {
			return Result{}, fmt.Errorf("loading preferences for call: %w", err)
		}
		phone = p.PhoneNumber
	}

	return c.Place(ctx, ev.UserID, phone, callType, ev.Payload["message"], ev.Payload["content_id"])
}

func callTypeFor(ev *domain.ScheduledEvent) (domain.CallType, error) {
	switch ev.Category {
	case domain.CategoryMicroLesson:
		return domain.CallMicroLesson, nil
	case domain.CategoryInactivityCall:
		return domain.CallReminder, nil
	case domain.CategoryTestCall:
		if t, ok := domain.ParseCallType(ev.Payload["call_type"]); ok {
			return t, nil
		}
		return domain.CallReminder, nil
	}
	return "", fmt.Errorf("event %s: category %s is not a call category", ev.ID, ev.Category)
}
