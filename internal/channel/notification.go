// Package channel turns scheduled events into actual outbound touchpoints:
// push notifications fanned out to a user's subscription endpoints, and
// voice calls placed through the telephony transport. Expected business
// failures (nobody to send to, transport not configured) come back in a
// Result, never as an error.
package channel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lumenlearn/engage/internal/domain"
	"github.com/lumenlearn/engage/internal/pkg/logger"
	"github.com/lumenlearn/engage/internal/transport"
)

// Result is the outcome of one channel delivery attempt.
type Result struct {
	Success bool
	CallSID string
	Error   string
}

// ErrNoSubscriptions is the business-failure message for a user with no
// active push endpoints.
const ErrNoSubscriptions = "No active subscriptions found for user"

// SubscriptionStore lists and deactivates a user's push endpoints.
type SubscriptionStore interface {
	ActiveByUser(ctx context.Context, userID string) ([]domain.PushSubscription, error)
	Deactivate(ctx context.Context, subscriptionID string) error
}

// NotificationLogStore appends delivery records.
type NotificationLogStore interface {
	AppendNotificationLog(ctx context.Context, log *domain.NotificationLog) error
}

// ContentStore resolves a content id into the text a payload or call script
// needs. The engine does not own content data.
type ContentStore interface {
	GetContent(ctx context.Context, id string) (*domain.ContentRef, error)
}

// NotificationChannel fans a payload out to every active endpoint of a user.
type NotificationChannel struct {
	subs       SubscriptionStore
	logs       NotificationLogStore
	content    ContentStore
	push       transport.PushTransport
	ttlSeconds int
}

// NewNotificationChannel wires a notification channel.
func NewNotificationChannel(subs SubscriptionStore, logs NotificationLogStore, content ContentStore, push transport.PushTransport, ttlSeconds int) *NotificationChannel {
	return &NotificationChannel{subs: subs, logs: logs, content: content, push: push, ttlSeconds: ttlSeconds}
}

// Send delivers the payload to all of the user's active endpoints in
// parallel. One endpoint succeeding makes the attempt a success. An endpoint
// the transport reports permanently gone is deactivated regardless of the
// overall outcome. Exactly one NotificationLog row is written per attempt.
func (c *NotificationChannel) Send(ctx context.Context, userID string, category domain.Category, payload NotificationPayload) (Result, error) {
	subs, err := c.subs.ActiveByUser(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("listing subscriptions: %w", err)
	}

	if len(subs) == 0 {
		c.appendLog(ctx, userID, category, payload, "failed")
		return Result{Success: false, Error: ErrNoSubscriptions}, nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("encoding payload: %w", err)
	}

	var wg sync.WaitGroup
	outcomes := make([]transport.SendOutcome, len(subs))
	errs := make([]error, len(subs))
	for i, sub := range subs {
		wg.Add(1)
		go func(i int, sub domain.PushSubscription) {
			defer wg.Done()
			outcome, err := c.push.SendToEndpoint(ctx, sub, body, c.ttlSeconds)
			outcomes[i] = outcome
			errs[i] = err
			if err != nil && !errors.Is(err, transport.ErrNotConfigured) {
				logger.Warn("push endpoint send failed",
					"user_id", userID, "endpoint", sub.Endpoint, "error", err.Error())
			}
			if outcome == transport.OutcomePermanentFailure {
				if err := c.subs.Deactivate(ctx, sub.ID); err != nil {
					logger.Error("deactivating dead subscription failed",
						"subscription_id", sub.ID, "error", err.Error())
				}
			}
		}(i, sub)
	}
	wg.Wait()

	succeeded := 0
	for _, o := range outcomes {
		if o == transport.OutcomeSuccess {
			succeeded++
		}
	}

	status := "sent"
	if succeeded == 0 {
		status = "failed"
	}
	c.appendLog(ctx, userID, category, payload, status)

	if succeeded == 0 {
		for _, e := range errs {
			if errors.Is(e, transport.ErrNotConfigured) {
				return Result{Success: false, Error: "not configured"}, nil
			}
		}
		return Result{Success: false, Error: fmt.Sprintf("all %d endpoint sends failed", len(subs))}, nil
	}
	return Result{Success: true}, nil
}

// Deliver builds the payload for a scheduled notification event and sends
// it. Human-readable text missing from the event payload is pulled from the
// content store.
func (c *NotificationChannel) Deliver(ctx context.Context, ev *domain.ScheduledEvent) (Result, error) {
	payload, err := c.buildPayload(ctx, ev)
	if err != nil {
		return Result{}, err
	}
	return c.Send(ctx, ev.UserID, ev.Category, payload)
}

func (c *NotificationChannel) buildPayload(ctx context.Context, ev *domain.ScheduledEvent) (NotificationPayload, error) {
	switch ev.Category {
	case domain.CategoryLessonReminders:
		title, err := c.resolveTitle(ctx, ev.Payload)
		if err != nil {
			return NotificationPayload{}, err
		}
		return LessonReminderPayload(title), nil

	case domain.CategoryNewContent:
		contentID := ev.Payload["content_id"]
		if contentID == "" {
			return NotificationPayload{}, fmt.Errorf("event %s: new_content payload missing content_id", ev.ID)
		}
		title, err := c.resolveTitle(ctx, ev.Payload)
		if err != nil {
			return NotificationPayload{}, err
		}
		return NewContentPayload(contentID, title), nil

	case domain.CategoryAchievements:
		return AchievementPayload(ev.Payload["message"]), nil

	case domain.CategoryInsights:
		return InsightPayload(ev.Payload["message"]), nil
	}
	return NotificationPayload{}, fmt.Errorf("event %s: category %s is not a notification category", ev.ID, ev.Category)
}

// resolveTitle prefers a title embedded at schedule time and falls back to a
// lazy content lookup.
func (c *NotificationChannel) resolveTitle(ctx context.Context, payload map[string]string) (string, error) {
	if t := payload["title"]; t != "" {
		return t, nil
	}
	contentID := payload["content_id"]
	if contentID == "" || c.content == nil {
		return "your next lesson", nil
	}
	ref, err := c.content.GetContent(ctx, contentID)
	if err != nil {
		return "", fmt.Errorf("resolving content %s: %w", contentID, err)
	}
	return ref.Title, nil
}

func (c *NotificationChannel) appendLog(ctx context.Context, userID string, category domain.Category, payload NotificationPayload, status string) {
	log := &domain.NotificationLog{
		ID:        uuid.New().String(),
		UserID:    userID,
		Category:  category,
		Title:     payload.Title,
		Message:   payload.Body,
		Status:    status,
		CreatedAt: time.Now(),
	}
	if err := c.logs.AppendNotificationLog(ctx, log); err != nil {
		logger.Error("appending notification log failed", "user_id", userID, "error", err.Error())
	}
}
