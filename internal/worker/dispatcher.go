// Package worker runs the dispatcher tick loop: claim due events, re-check
// eligibility, hand each to its delivery channel, finalize status.
package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lumenlearn/engage/internal/channel"
	"github.com/lumenlearn/engage/internal/domain"
	"github.com/lumenlearn/engage/internal/pkg/distlock"
	"github.com/lumenlearn/engage/internal/pkg/logger"
	"github.com/lumenlearn/engage/internal/service/schedule"
)

// EligibilityChecker answers whether a touchpoint may fire for a user now.
type EligibilityChecker interface {
	Eligible(ctx context.Context, userID string, category domain.Category, now time.Time) (bool, error)
}

// Channel delivers one scheduled event.
type Channel interface {
	Deliver(ctx context.Context, ev *domain.ScheduledEvent) (channel.Result, error)
}

// Stats is a snapshot of dispatcher counters since process start.
type Stats struct {
	Ticks     uint64 `json:"ticks"`
	Claimed   uint64 `json:"claimed"`
	Completed uint64 `json:"completed"`
	Failed    uint64 `json:"failed"`
}

// Dispatcher claims due events on a fixed cadence and routes them to the
// matching delivery channel. Events are processed sequentially within a
// tick; a single event's failure never aborts the batch.
type Dispatcher struct {
	events        schedule.Repository
	eligibility   EligibilityChecker
	calls         Channel
	notifications Channel
	locks         *distlock.Factory
	tick          time.Duration
	batchSize     int
	now           func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup

	ticks     atomic.Uint64
	claimed   atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
}

// NewDispatcher wires a dispatcher. locks may be nil; the per-event
// conditional claim already guarantees no double-processing, the lock only
// keeps overlapping ticks from burning work.
func NewDispatcher(events schedule.Repository, eligibility EligibilityChecker, calls, notifications Channel, locks *distlock.Factory, tick time.Duration, batchSize int) *Dispatcher {
	return &Dispatcher{
		events:        events,
		eligibility:   eligibility,
		calls:         calls,
		notifications: notifications,
		locks:         locks,
		tick:          tick,
		batchSize:     batchSize,
		now:           time.Now,
	}
}

// SetClock overrides the clock (tests only).
func (d *Dispatcher) SetClock(now func() time.Time) { d.now = now }

// Start launches the tick loop in a background goroutine.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		logger.Info("dispatcher started", "tick", d.tick.String(), "batch_size", fmt.Sprint(d.batchSize))
		ticker := time.NewTicker(d.tick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.Info("dispatcher stopped")
				return
			case <-ticker.C:
				if err := d.RunTick(ctx); err != nil {
					logger.Error("dispatcher tick failed", "error", err.Error())
				}
			}
		}
	}()
}

// Stop cancels the loop and waits for the in-flight tick to finish.
func (d *Dispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	d.wg.Wait()
}

// RunTick claims one batch of due events and processes it. Exposed so the
// admin surface and tests can trigger a tick synchronously.
func (d *Dispatcher) RunTick(ctx context.Context) error {
	if d.locks != nil {
		lock := d.locks.ForKey("dispatcher:tick")
		ok, err := lock.Acquire(ctx)
		if err != nil {
			// Lock backend trouble never stops dispatch; the conditional
			// claim keeps concurrent instances correct.
			logger.Warn("tick lock unavailable, proceeding", "error", err.Error())
		} else if !ok {
			return nil
		} else {
			defer func() {
				if err := lock.Release(ctx); err != nil {
					logger.Warn("tick lock release failed", "error", err.Error())
				}
			}()
		}
	}

	d.ticks.Add(1)
	batch, err := d.events.ClaimDue(ctx, d.now(), d.batchSize)
	if err != nil {
		return fmt.Errorf("claiming due events: %w", err)
	}
	if len(batch) == 0 {
		return nil
	}
	d.claimed.Add(uint64(len(batch)))
	logger.Info("processing due events", "count", fmt.Sprint(len(batch)))

	for i := range batch {
		d.processEvent(ctx, &batch[i])
	}
	return nil
}

func (d *Dispatcher) processEvent(ctx context.Context, ev *domain.ScheduledEvent) {
	now := d.now()

	eligible, err := d.eligibility.Eligible(ctx, ev.UserID, ev.Category, now)
	if err != nil {
		d.finalizeFailed(ctx, ev, now, fmt.Sprintf("eligibility check: %v", err))
		return
	}
	if !eligible {
		// Preferences changed between scheduling and firing. Designed
		// terminal outcome, not an error.
		d.finalizeFailed(ctx, ev, now, "ineligible at fire time")
		return
	}

	var ch Channel
	switch ev.EventType {
	case domain.EventCall:
		ch = d.calls
	case domain.EventNotification:
		ch = d.notifications
	default:
		d.finalizeFailed(ctx, ev, now, fmt.Sprintf("unknown event type %q", ev.EventType))
		return
	}

	res, err := ch.Deliver(ctx, ev)
	if err != nil {
		d.finalizeFailed(ctx, ev, now, err.Error())
		return
	}
	if !res.Success {
		d.finalizeFailed(ctx, ev, now, res.Error)
		return
	}

	if err := d.events.MarkCompleted(ctx, ev.ID, d.now()); err != nil {
		logger.Error("finalizing completed event failed", "event_id", ev.ID, "error", err.Error())
		return
	}
	d.completed.Add(1)
}

func (d *Dispatcher) finalizeFailed(ctx context.Context, ev *domain.ScheduledEvent, processedAt time.Time, reason string) {
	logger.Warn("event failed",
		"event_id", ev.ID, "user_id", ev.UserID, "category", ev.Category.String(), "reason", reason)
	if err := d.events.MarkFailed(ctx, ev.ID, processedAt, reason); err != nil {
		logger.Error("finalizing failed event errored", "event_id", ev.ID, "error", err.Error())
		return
	}
	d.failed.Add(1)
}

// Stats returns a snapshot of the dispatcher counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Ticks:     d.ticks.Load(),
		Claimed:   d.claimed.Load(),
		Completed: d.completed.Load(),
		Failed:    d.failed.Load(),
	}
}
