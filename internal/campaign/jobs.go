// Package campaign holds the recurring jobs that originate touchpoints: the
// inactivity sweep, the daily micro-lesson scheduler, the goal-achievement
// sweep hook, and the new-content broadcast. Jobs pre-filter on eligibility
// before scheduling; the dispatcher re-checks at fire time.
package campaign

import (
	"context"
	"fmt"
	"time"

	"github.com/lumenlearn/engage/internal/channel"
	"github.com/lumenlearn/engage/internal/domain"
	"github.com/lumenlearn/engage/internal/pkg/distlock"
	"github.com/lumenlearn/engage/internal/pkg/logger"
	"github.com/lumenlearn/engage/internal/service/activity"
)

// ActivityScanner supplies the read-only queries jobs sweep over.
type ActivityScanner interface {
	FindInactiveUsers(ctx context.Context, thresholdDays int) ([]string, error)
	FindInterestedUsers(ctx context.Context, category string) ([]string, error)
	FindDailyCallCandidates(ctx context.Context) ([]activity.CallCandidate, error)
}

// PreferenceSource answers eligibility questions and loads raw preferences.
type PreferenceSource interface {
	Get(ctx context.Context, userID string) (*domain.UserPreferences, error)
	Eligible(ctx context.Context, userID string, category domain.Category, now time.Time) (bool, error)
}

// EventScheduler writes durable scheduled events.
type EventScheduler interface {
	Schedule(ctx context.Context, userID string, eventType domain.EventType, category domain.Category, when time.Time, payload map[string]string) (*domain.ScheduledEvent, error)
	LastCallScheduledAt(ctx context.Context, userID string) (*time.Time, error)
}

// Notifier dispatches an immediate push notification.
type Notifier interface {
	Send(ctx context.Context, userID string, category domain.Category, payload channel.NotificationPayload) (channel.Result, error)
}

// PlaylistStore resolves a user's active daily playlist to its first content
// item. A user without a playlist (or with an empty one) yields (nil, nil).
type PlaylistStore interface {
	FirstDailyPlaylistContent(ctx context.Context, userID string) (*domain.ContentRef, error)
}

// GoalRule is the extension point for the goal-achievement sweep. No rules
// ship yet; the sweep iterates whatever is registered.
type GoalRule interface {
	Name() string
	Evaluate(ctx context.Context) error
}

// Jobs bundles the campaign jobs with their shared dependencies.
type Jobs struct {
	scanner   ActivityScanner
	prefs     PreferenceSource
	scheduler EventScheduler
	notifier  Notifier
	playlists PlaylistStore
	content   channel.ContentStore
	locks     *distlock.Factory
	goalRules []GoalRule

	inactivityThresholdDays int
	now                     func() time.Time
}

// NewJobs wires the campaign jobs. locks may be nil (single-instance runs).
func NewJobs(scanner ActivityScanner, prefs PreferenceSource, scheduler EventScheduler, notifier Notifier, playlists PlaylistStore, content channel.ContentStore, locks *distlock.Factory, inactivityThresholdDays int) *Jobs {
	return &Jobs{
		scanner:                 scanner,
		prefs:                   prefs,
		scheduler:               scheduler,
		notifier:                notifier,
		playlists:               playlists,
		content:                 content,
		locks:                   locks,
		inactivityThresholdDays: inactivityThresholdDays,
		now:                     time.Now,
	}
}

// SetClock overrides the clock (tests only).
func (j *Jobs) SetClock(now func() time.Time) { j.now = now }

// RegisterGoalRule adds a rule to the goal-achievement sweep.
func (j *Jobs) RegisterGoalRule(r GoalRule) { j.goalRules = append(j.goalRules, r) }

// acquire takes the named job lock. Returns false when another instance is
// already running the job; lock backend errors do not block the job.
func (j *Jobs) acquire(ctx context.Context, name string) (release func(), ok bool) {
	if j.locks == nil {
		return func() {}, true
	}
	lock := j.locks.ForKey("job:" + name)
	got, err := lock.Acquire(ctx)
	if err != nil {
		logger.Warn("job lock unavailable, proceeding", "job", name, "error", err.Error())
		return func() {}, true
	}
	if !got {
		logger.Info("job already running elsewhere, skipping", "job", name)
		return func() {}, false
	}
	return func() {
		if err := lock.Release(ctx); err != nil {
			logger.Warn("job lock release failed", "job", name, "error", err.Error())
		}
	}, true
}

// RunInactivitySweep notifies users who stopped practicing and, when the
// user also takes calls, books an inactivity call for the next morning at
// the start of their allowed window. One user's failure never aborts the
// sweep.
func (j *Jobs) RunInactivitySweep(ctx context.Context) error {
	release, ok := j.acquire(ctx, "inactivity-sweep")
	if !ok {
		return nil
	}
	defer release()

	users, err := j.scanner.FindInactiveUsers(ctx, j.inactivityThresholdDays)
	if err != nil {
		return fmt.Errorf("finding inactive users: %w", err)
	}
	logger.Info("inactivity sweep started", "candidates", fmt.Sprint(len(users)))

	notified, called := 0, 0
	for _, userID := range users {
		n, c, err := j.sweepUser(ctx, userID)
		if err != nil {
			logger.Error("inactivity sweep user failed", "user_id", userID, "error", err.Error())
			continue
		}
		notified += n
		called += c
	}
	logger.Info("inactivity sweep finished",
		"notified", fmt.Sprint(notified), "calls_scheduled", fmt.Sprint(called))
	return nil
}

func (j *Jobs) sweepUser(ctx context.Context, userID string) (notified, called int, err error) {
	now := j.now()

	ok, err := j.prefs.Eligible(ctx, userID, domain.CategoryLessonReminders, now)
	if err != nil {
		return 0, 0, err
	}
	if ok {
		payload := channel.NotificationPayload{
			Title: "We miss you!",
			Body:  fmt.Sprintf("You haven't practiced in %d days. A quick lesson keeps your streak alive!", j.inactivityThresholdDays),
			Tag:   "lesson-reminder",
		}
		res, err := j.notifier.Send(ctx, userID, domain.CategoryLessonReminders, payload)
		if err != nil {
			return 0, 0, err
		}
		if res.Success {
			notified = 1
		}
	}

	ok, err = j.prefs.Eligible(ctx, userID, domain.CategoryInactivityCall, now)
	if err != nil {
		return notified, 0, err
	}
	if !ok {
		return notified, 0, nil
	}

	p, err := j.prefs.Get(ctx, userID)
	if err != nil {
		return notified, 0, err
	}
	allowed, err := j.callFrequencyAllows(ctx, userID, p.CallFrequency, now)
	if err != nil {
		return notified, 0, err
	}
	if !allowed {
		return notified, 0, nil
	}

	when := p.AllowedWindowStart.At(now.AddDate(0, 0, 1))
	_, err = j.scheduler.Schedule(ctx, userID, domain.EventCall, domain.CategoryInactivityCall, when, map[string]string{
		"message": fmt.Sprintf("Hi! It's been %d days since your last lesson. How about a quick practice session today?", j.inactivityThresholdDays),
	})
	if err != nil {
		return notified, 0, err
	}
	return notified, 1, nil
}

// callFrequencyAllows enforces the per-user cap between scheduled calls.
func (j *Jobs) callFrequencyAllows(ctx context.Context, userID string, freq domain.CallFrequency, now time.Time) (bool, error) {
	minGap := freq.MinInterval()
	if minGap == 0 {
		return false, nil
	}
	last, err := j.scheduler.LastCallScheduledAt(ctx, userID)
	if err != nil {
		return false, err
	}
	if last == nil {
		return true, nil
	}
	return now.Sub(*last) >= minGap, nil
}

// RunDailyMicroLessons books today's micro-lesson call for every daily-call
// candidate with a playlist. Candidates without playlist content are skipped,
// not errors. Reruns schedule again; the engine does not dedup (documented
// gap).
func (j *Jobs) RunDailyMicroLessons(ctx context.Context) error {
	release, ok := j.acquire(ctx, "micro-lessons")
	if !ok {
		return nil
	}
	defer release()

	candidates, err := j.scanner.FindDailyCallCandidates(ctx)
	if err != nil {
		return fmt.Errorf("finding call candidates: %w", err)
	}
	logger.Info("micro-lesson scheduler started", "candidates", fmt.Sprint(len(candidates)))

	scheduled := 0
	for _, cand := range candidates {
		ok, err := j.scheduleMicroLesson(ctx, cand)
		if err != nil {
			logger.Error("micro-lesson scheduling failed", "user_id", cand.UserID, "error", err.Error())
			continue
		}
		if ok {
			scheduled++
		}
	}
	logger.Info("micro-lesson scheduler finished", "scheduled", fmt.Sprint(scheduled))
	return nil
}

func (j *Jobs) scheduleMicroLesson(ctx context.Context, cand activity.CallCandidate) (bool, error) {
	content, err := j.playlists.FirstDailyPlaylistContent(ctx, cand.UserID)
	if err != nil {
		return false, err
	}
	if content == nil {
		return false, nil
	}

	when := cand.WindowStart.At(j.now())
	_, err = j.scheduler.Schedule(ctx, cand.UserID, domain.EventCall, domain.CategoryMicroLesson, when, map[string]string{
		"content_id": content.ID,
		"title":      content.Title,
		"message":    content.Title,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// RunGoalAchievementSweep runs whatever goal rules are registered. None ship
// today; the job exists so the cron surface and future rules have a home.
func (j *Jobs) RunGoalAchievementSweep(ctx context.Context) error {
	release, ok := j.acquire(ctx, "goal-sweep")
	if !ok {
		return nil
	}
	defer release()

	for _, rule := range j.goalRules {
		if err := rule.Evaluate(ctx); err != nil {
			logger.Error("goal rule failed", "rule", rule.Name(), "error", err.Error())
		}
	}
	return nil
}

// BroadcastNewContent notifies every user interested in a freshly published
// content item's category, subject to eligibility. Triggered by the publish
// event, not by cron.
func (j *Jobs) BroadcastNewContent(ctx context.Context, contentID string) error {
	content, err := j.content.GetContent(ctx, contentID)
	if err != nil {
		return fmt.Errorf("loading content %s: %w", contentID, err)
	}

	users, err := j.scanner.FindInterestedUsers(ctx, content.Category)
	if err != nil {
		return fmt.Errorf("finding interested users: %w", err)
	}

	now := j.now()
	sent := 0
	for _, userID := range users {
		ok, err := j.prefs.Eligible(ctx, userID, domain.CategoryNewContent, now)
		if err != nil {
			logger.Error("broadcast eligibility check failed", "user_id", userID, "error", err.Error())
			continue
		}
		if !ok {
			continue
		}
		res, err := j.notifier.Send(ctx, userID, domain.CategoryNewContent, channel.NewContentPayload(content.ID, content.Title))
		if err != nil {
			logger.Error("broadcast send failed", "user_id", userID, "error", err.Error())
			continue
		}
		if res.Success {
			sent++
		}
	}
	logger.Info("new-content broadcast finished",
		"content_id", contentID, "interested", fmt.Sprint(len(users)), "sent", fmt.Sprint(sent))
	return nil
}
