package worker

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlearn/engage/internal/channel"
	"github.com/lumenlearn/engage/internal/domain"
)

// memEvents implements schedule.Repository with a full status history per
// event so tests can assert the pending -> processing -> terminal path.
type memEvents struct {
	mu      sync.Mutex
	events  map[string]*domain.ScheduledEvent
	history map[string][]domain.EventStatus
}

func newMemEvents() *memEvents {
	return &memEvents{
		events:  map[string]*domain.ScheduledEvent{},
		history: map[string][]domain.EventStatus{},
	}
}

func (m *memEvents) Create(_ context.Context, ev *domain.ScheduledEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *ev
	m.events[ev.ID] = &cp
	m.history[ev.ID] = append(m.history[ev.ID], ev.Status)
	return nil
}

func (m *memEvents) ClaimDue(_ context.Context, now time.Time, limit int) ([]domain.ScheduledEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []*domain.ScheduledEvent
	for _, ev := range m.events {
		if ev.Status == domain.EventPending && !ev.ScheduledFor.After(now) {
			due = append(due, ev)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledFor.Before(due[j].ScheduledFor) })
	if len(due) > limit {
		due = due[:limit]
	}
	out := make([]domain.ScheduledEvent, 0, len(due))
	for _, ev := range due {
		ev.Status = domain.EventProcessing
		m.history[ev.ID] = append(m.history[ev.ID], domain.EventProcessing)
		out = append(out, *ev)
	}
	return out, nil
}

func (m *memEvents) MarkCompleted(_ context.Context, id string, processedAt time.Time) error {
	return m.finalize(id, domain.EventCompleted, processedAt, "")
}

func (m *memEvents) MarkFailed(_ context.Context, id string, processedAt time.Time, reason string) error {
	return m.finalize(id, domain.EventFailed, processedAt, reason)
}

func (m *memEvents) finalize(id string, status domain.EventStatus, processedAt time.Time, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ev, ok := m.events[id]
	if !ok || ev.Status != domain.EventProcessing {
		return errors.New("event not in processing")
	}
	ev.Status = status
	ev.ProcessedAt = &processedAt
	ev.LastError = reason
	m.history[id] = append(m.history[id], status)
	return nil
}

func (m *memEvents) LastCallScheduledAt(_ context.Context, userID string) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var last *time.Time
	for _, ev := range m.events {
		if ev.UserID == userID && ev.EventType == domain.EventCall {
			t := ev.ScheduledFor
			if last == nil || t.After(*last) {
				last = &t
			}
		}
	}
	return last, nil
}

type stubEligibility struct {
	allow map[string]bool
	err   error
}

func (s *stubEligibility) Eligible(_ context.Context, userID string, _ domain.Category, _ time.Time) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.allow[userID], nil
}

type stubChannel struct {
	mu        sync.Mutex
	delivered []string
	result    channel.Result
	err       error
	errFor    map[string]error
}

func (s *stubChannel) Deliver(_ context.Context, ev *domain.ScheduledEvent) (channel.Result, error) {
	s.mu.Lock()
	s.delivered = append(s.delivered, ev.ID)
	s.mu.Unlock()
	if e, ok := s.errFor[ev.ID]; ok {
		return channel.Result{}, e
	}
	if s.err != nil {
		return channel.Result{}, s.err
	}
	return s.result, nil
}

func testDispatcher(events *memEvents, elig *stubEligibility, calls, notifs *stubChannel) *Dispatcher {
	return NewDispatcher(events, elig, calls, notifs, nil, time.Minute, 50)
}

func seedEvent(t *testing.T, events *memEvents, id, userID string, evType domain.EventType, cat domain.Category, due time.Time) {
	t.Helper()
	require.NoError(t, events.Create(context.Background(), &domain.ScheduledEvent{
		ID: id, UserID: userID, EventType: evType, Category: cat,
		ScheduledFor: due, Status: domain.EventPending,
	}))
}

func TestTickCompletesDueEvent(t *testing.T) {
	events := newMemEvents()
	elig := &stubEligibility{allow: map[string]bool{"u1": true}}
	notifs := &stubChannel{result: channel.Result{Success: true}}
	d := testDispatcher(events, elig, &stubChannel{}, notifs)

	seedEvent(t, events, "e1", "u1", domain.EventNotification, domain.CategoryLessonReminders, time.Now().Add(-time.Minute))

	require.NoError(t, d.RunTick(context.Background()))

	ev := events.events["e1"]
	assert.Equal(t, domain.EventCompleted, ev.Status)
	assert.NotNil(t, ev.ProcessedAt)
	assert.Equal(t,
		[]domain.EventStatus{domain.EventPending, domain.EventProcessing, domain.EventCompleted},
		events.history["e1"])
	assert.Equal(t, []string{"e1"}, notifs.delivered)
}

func TestIneligibleAtFireTimeFailsWithoutDelivery(t *testing.T) {
	events := newMemEvents()
	elig := &stubEligibility{allow: map[string]bool{}} // nobody eligible
	notifs := &stubChannel{result: channel.Result{Success: true}}
	d := testDispatcher(events, elig, &stubChannel{}, notifs)

	seedEvent(t, events, "e1", "u1", domain.EventNotification, domain.CategoryNewContent, time.Now().Add(-time.Second))

	require.NoError(t, d.RunTick(context.Background()))

	ev := events.events["e1"]
	assert.Equal(t, domain.EventFailed, ev.Status)
	assert.Equal(t, "ineligible at fire time", ev.LastError)
	assert.Empty(t, notifs.delivered)
}

func TestOneFailureNeverAbortsBatch(t *testing.T) {
	events := newMemEvents()
	elig := &stubEligibility{allow: map[string]bool{"u1": true, "u2": true}}
	notifs := &stubChannel{
		result: channel.Result{Success: true},
		errFor: map[string]error{"e1": errors.New("push provider exploded")},
	}
	d := testDispatcher(events, elig, &stubChannel{}, notifs)

	base := time.Now().Add(-time.Hour)
	seedEvent(t, events, "e1", "u1", domain.EventNotification, domain.CategoryInsights, base)
	seedEvent(t, events, "e2", "u2", domain.EventNotification, domain.CategoryInsights, base.Add(time.Minute))

	require.NoError(t, d.RunTick(context.Background()))

	assert.Equal(t, domain.EventFailed, events.events["e1"].Status)
	assert.Equal(t, domain.EventCompleted, events.events["e2"].Status)
	// FIFO by scheduled_for.
	assert.Equal(t, []string{"e1", "e2"}, notifs.delivered)
}

func TestBusinessFailureMarksEventFailed(t *testing.T) {
	events := newMemEvents()
	elig := &stubEligibility{allow: map[string]bool{"u1": true}}
	notifs := &stubChannel{result: channel.Result{Success: false, Error: channel.ErrNoSubscriptions}}
	d := testDispatcher(events, elig, &stubChannel{}, notifs)

	seedEvent(t, events, "e1", "u1", domain.EventNotification, domain.CategoryLessonReminders, time.Now().Add(-time.Second))

	require.NoError(t, d.RunTick(context.Background()))

	ev := events.events["e1"]
	assert.Equal(t, domain.EventFailed, ev.Status)
	assert.Equal(t, channel.ErrNoSubscriptions, ev.LastError)
}

func TestFailedEventNeverRetried(t *testing.T) {
	events := newMemEvents()
	elig := &stubEligibility{allow: map[string]bool{"u1": true}}
	notifs := &stubChannel{err: errors.New("boom")}
	d := testDispatcher(events, elig, &stubChannel{}, notifs)

	seedEvent(t, events, "e1", "u1", domain.EventNotification, domain.CategoryInsights, time.Now().Add(-time.Second))

	require.NoError(t, d.RunTick(context.Background()))
	assert.Equal(t, domain.EventFailed, events.events["e1"].Status)

	require.NoError(t, d.RunTick(context.Background()))
	assert.Len(t, notifs.delivered, 1, "terminal event must not be claimed again")
}

func TestCallEventsRouteToCallChannel(t *testing.T) {
	events := newMemEvents()
	elig := &stubEligibility{allow: map[string]bool{"u1": true}}
	calls := &stubChannel{result: channel.Result{Success: true, CallSID: "CA1"}}
	notifs := &stubChannel{result: channel.Result{Success: true}}
	d := testDispatcher(events, elig, calls, notifs)

	seedEvent(t, events, "e1", "u1", domain.EventCall, domain.CategoryMicroLesson, time.Now().Add(-time.Second))

	require.NoError(t, d.RunTick(context.Background()))

	assert.Equal(t, []string{"e1"}, calls.delivered)
	assert.Empty(t, notifs.delivered)
	assert.Equal(t, domain.EventCompleted, events.events["e1"].Status)

	stats := d.Stats()
	assert.Equal(t, uint64(1), stats.Completed)
	assert.Equal(t, uint64(1), stats.Claimed)
}

func TestFutureEventsStayPending(t *testing.T) {
	events := newMemEvents()
	elig := &stubEligibility{allow: map[string]bool{"u1": true}}
	d := testDispatcher(events, elig, &stubChannel{}, &stubChannel{})

	seedEvent(t, events, "e1", "u1", domain.EventNotification, domain.CategoryInsights, time.Now().Add(time.Hour))

	require.NoError(t, d.RunTick(context.Background()))
	assert.Equal(t, domain.EventPending, events.events["e1"].Status)
}
