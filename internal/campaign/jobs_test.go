package campaign

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlearn/engage/internal/channel"
	"github.com/lumenlearn/engage/internal/domain"
	"github.com/lumenlearn/engage/internal/service/activity"
)

type fakeScanner struct {
	inactive   []string
	interested map[string][]string
	candidates []activity.CallCandidate
	err        error
}

func (f *fakeScanner) FindInactiveUsers(_ context.Context, _ int) ([]string, error) {
	return f.inactive, f.err
}

func (f *fakeScanner) FindInterestedUsers(_ context.Context, category string) ([]string, error) {
	return f.interested[category], f.err
}

func (f *fakeScanner) FindDailyCallCandidates(_ context.Context) ([]activity.CallCandidate, error) {
	return f.candidates, f.err
}

type fakePrefs struct {
	prefs    map[string]*domain.UserPreferences
	eligible map[string]map[domain.Category]bool
	errFor   map[string]error
}

func (f *fakePrefs) Get(_ context.Context, userID string) (*domain.UserPreferences, error) {
	if err := f.errFor[userID]; err != nil {
		return nil, err
	}
	return f.prefs[userID], nil
}

func (f *fakePrefs) Eligible(_ context.Context, userID string, category domain.Category, _ time.Time) (bool, error) {
	if err := f.errFor[userID]; err != nil {
		return false, err
	}
	return f.eligible[userID][category], nil
}

type scheduledCall struct {
	userID   string
	category domain.Category
	when     time.Time
	payload  map[string]string
}

type fakeScheduler struct {
	scheduled []scheduledCall
	lastCall  map[string]*time.Time
}

func (f *fakeScheduler) Schedule(_ context.Context, userID string, _ domain.EventType, category domain.Category, when time.Time, payload map[string]string) (*domain.ScheduledEvent, error) {
	f.scheduled = append(f.scheduled, scheduledCall{userID, category, when, payload})
	return &domain.ScheduledEvent{ID: "ev", UserID: userID, Category: category}, nil
}

func (f *fakeScheduler) LastCallScheduledAt(_ context.Context, userID string) (*time.Time, error) {
	return f.lastCall[userID], nil
}

type sentNotification struct {
	userID   string
	category domain.Category
	payload  channel.NotificationPayload
}

type fakeNotifier struct {
	sent   []sentNotification
	errFor map[string]error
}

func (f *fakeNotifier) Send(_ context.Context, userID string, category domain.Category, payload channel.NotificationPayload) (channel.Result, error) {
	if err := f.errFor[userID]; err != nil {
		return channel.Result{}, err
	}
	f.sent = append(f.sent, sentNotification{userID, category, payload})
	return channel.Result{Success: true}, nil
}

type fakePlaylists struct {
	first map[string]*domain.ContentRef
	err   error
}

func (f *fakePlaylists) FirstDailyPlaylistContent(_ context.Context, userID string) (*domain.ContentRef, error) {
	return f.first[userID], f.err
}

type fakeContentStore struct {
	items map[string]domain.ContentRef
}

func (f *fakeContentStore) GetContent(_ context.Context, id string) (*domain.ContentRef, error) {
	ref, ok := f.items[id]
	if !ok {
		return nil, errors.New("content not found")
	}
	return &ref, nil
}

func nineAM() domain.TimeOfDay {
	tod, _ := domain.ParseTimeOfDay("09:00:00")
	return tod
}

func fullPrefs(userID string) *domain.UserPreferences {
	return &domain.UserPreferences{
		UserID:             userID,
		AllowedWindowStart: nineAM(),
		CallFrequency:      domain.CallWeekly,
	}
}

func TestInactivitySweepNotifiesAndSchedulesCall(t *testing.T) {
	scanner := &fakeScanner{inactive: []string{"u1"}}
	prefs := &fakePrefs{
		prefs: map[string]*domain.UserPreferences{"u1": fullPrefs("u1")},
		eligible: map[string]map[domain.Category]bool{
			"u1": {domain.CategoryLessonReminders: true, domain.CategoryInactivityCall: true},
		},
	}
	sched := &fakeScheduler{lastCall: map[string]*time.Time{}}
	notifier := &fakeNotifier{}
	jobs := NewJobs(scanner, prefs, sched, notifier, &fakePlaylists{}, &fakeContentStore{}, nil, 2)

	now := time.Date(2025, 6, 3, 8, 30, 0, 0, time.UTC) // Tuesday
	jobs.SetClock(func() time.Time { return now })

	require.NoError(t, jobs.RunInactivitySweep(context.Background()))

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, domain.CategoryLessonReminders, notifier.sent[0].category)
	assert.Equal(t, "lesson-reminder", notifier.sent[0].payload.Tag)

	require.Len(t, sched.scheduled, 1)
	call := sched.scheduled[0]
	assert.Equal(t, domain.CategoryInactivityCall, call.category)
	// Next day at the start of the allowed window.
	assert.Equal(t, time.Date(2025, 6, 4, 9, 0, 0, 0, time.UTC), call.when)
	assert.Contains(t, call.payload["message"], "2 days")
}

func TestInactivitySweepRespectsFrequencyCap(t *testing.T) {
	recent := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	scanner := &fakeScanner{inactive: []string{"u1"}}
	prefs := &fakePrefs{
		prefs: map[string]*domain.UserPreferences{"u1": fullPrefs("u1")}, // weekly cap
		eligible: map[string]map[domain.Category]bool{
			"u1": {domain.CategoryInactivityCall: true},
		},
	}
	sched := &fakeScheduler{lastCall: map[string]*time.Time{"u1": &recent}}
	jobs := NewJobs(scanner, prefs, sched, &fakeNotifier{}, &fakePlaylists{}, &fakeContentStore{}, nil, 2)
	jobs.SetClock(func() time.Time { return time.Date(2025, 6, 3, 8, 30, 0, 0, time.UTC) })

	require.NoError(t, jobs.RunInactivitySweep(context.Background()))
	assert.Empty(t, sched.scheduled, "call two days after the last one must not pass a weekly cap")
}

func TestInactivitySweepNeverFrequencyBlocksAllCalls(t *testing.T) {
	scanner := &fakeScanner{inactive: []string{"u1"}}
	p := fullPrefs("u1")
	p.CallFrequency = domain.CallNever
	prefs := &fakePrefs{
		prefs:    map[string]*domain.UserPreferences{"u1": p},
		eligible: map[string]map[domain.Category]bool{"u1": {domain.CategoryInactivityCall: true}},
	}
	sched := &fakeScheduler{lastCall: map[string]*time.Time{}}
	jobs := NewJobs(scanner, prefs, sched, &fakeNotifier{}, &fakePlaylists{}, &fakeContentStore{}, nil, 2)

	require.NoError(t, jobs.RunInactivitySweep(context.Background()))
	assert.Empty(t, sched.scheduled)
}

func TestInactivitySweepIsolatesUserFailures(t *testing.T) {
	scanner := &fakeScanner{inactive: []string{"bad", "good"}}
	prefs := &fakePrefs{
		prefs:  map[string]*domain.UserPreferences{"good": fullPrefs("good")},
		errFor: map[string]error{"bad": errors.New("row corrupted")},
		eligible: map[string]map[domain.Category]bool{
			"good": {domain.CategoryLessonReminders: true},
		},
	}
	notifier := &fakeNotifier{}
	jobs := NewJobs(scanner, prefs, &fakeScheduler{}, notifier, &fakePlaylists{}, &fakeContentStore{}, nil, 2)

	require.NoError(t, jobs.RunInactivitySweep(context.Background()))
	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "good", notifier.sent[0].userID)
}

func TestDailyMicroLessonsSchedulesAtWindowStart(t *testing.T) {
	scanner := &fakeScanner{candidates: []activity.CallCandidate{
		{UserID: "u1", WindowStart: nineAM()},
		{UserID: "u2", WindowStart: nineAM()}, // no playlist content
	}}
	playlists := &fakePlaylists{first: map[string]*domain.ContentRef{
		"u1": {ID: "c1", Title: "Spanish Verbs", Description: "Ser & estar"},
	}}
	sched := &fakeScheduler{}
	jobs := NewJobs(scanner, &fakePrefs{}, sched, &fakeNotifier{}, playlists, &fakeContentStore{}, nil, 2)
	jobs.SetClock(func() time.Time { return time.Date(2025, 6, 3, 8, 0, 0, 0, time.UTC) })

	require.NoError(t, jobs.RunDailyMicroLessons(context.Background()))

	require.Len(t, sched.scheduled, 1, "candidate without playlist content is skipped, not an error")
	got := sched.scheduled[0]
	assert.Equal(t, "u1", got.userID)
	assert.Equal(t, domain.CategoryMicroLesson, got.category)
	assert.Equal(t, time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC), got.when)
	assert.Equal(t, "c1", got.payload["content_id"])
	assert.Equal(t, "Spanish Verbs", got.payload["title"])
}

// Rerunning the scheduler the same day creates a second event. The engine
// does not dedup; if a dedup key is ever added, flip this assertion.
func TestDailyMicroLessonsRerunSchedulesAgain(t *testing.T) {
	scanner := &fakeScanner{candidates: []activity.CallCandidate{{UserID: "u1", WindowStart: nineAM()}}}
	playlists := &fakePlaylists{first: map[string]*domain.ContentRef{
		"u1": {ID: "c1", Title: "Verbs"},
	}}
	sched := &fakeScheduler{}
	jobs := NewJobs(scanner, &fakePrefs{}, sched, &fakeNotifier{}, playlists, &fakeContentStore{}, nil, 2)

	require.NoError(t, jobs.RunDailyMicroLessons(context.Background()))
	require.NoError(t, jobs.RunDailyMicroLessons(context.Background()))
	assert.Len(t, sched.scheduled, 2)
}

func TestBroadcastNewContentFiltersOnEligibility(t *testing.T) {
	scanner := &fakeScanner{interested: map[string][]string{"grammar": {"u1", "u2"}}}
	prefs := &fakePrefs{eligible: map[string]map[domain.Category]bool{
		"u1": {domain.CategoryNewContent: true},
		"u2": {domain.CategoryNewContent: false},
	}}
	content := &fakeContentStore{items: map[string]domain.ContentRef{
		"c1": {ID: "c1", Title: "Advanced Verbs", Category: "grammar"},
	}}
	notifier := &fakeNotifier{}
	jobs := NewJobs(scanner, prefs, &fakeScheduler{}, notifier, &fakePlaylists{}, content, nil, 2)

	require.NoError(t, jobs.BroadcastNewContent(context.Background(), "c1"))

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "u1", notifier.sent[0].userID)
	assert.Equal(t, "new-content", notifier.sent[0].payload.Tag)
	assert.Equal(t, "c1", notifier.sent[0].payload.Data["content_id"])
}

type countingRule struct {
	name string
	runs int
}

func (r *countingRule) Name() string                     { return r.name }
func (r *countingRule) Evaluate(_ context.Context) error { r.runs++; return nil }

func TestGoalSweepRunsRegisteredRules(t *testing.T) {
	jobs := NewJobs(&fakeScanner{}, &fakePrefs{}, &fakeScheduler{}, &fakeNotifier{}, &fakePlaylists{}, &fakeContentStore{}, nil, 2)

	// No rules registered: still a clean no-op.
	require.NoError(t, jobs.RunGoalAchievementSweep(context.Background()))

	rule := &countingRule{name: "streak"}
	jobs.RegisterGoalRule(rule)
	require.NoError(t, jobs.RunGoalAchievementSweep(context.Background()))
	assert.Equal(t, 1, rule.runs)
}
