package channel

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenlearn/engage/internal/domain"
	"github.com/lumenlearn/engage/internal/transport"
)

type fakeCallLogs struct {
	created []domain.CallLog
	sids    map[string]string
	failed  map[string]string
}

func newFakeCallLogs() *fakeCallLogs {
	return &fakeCallLogs{sids: map[string]string{}, failed: map[string]string{}}
}

func (f *fakeCallLogs) CreateCallLog(_ context.Context, log *domain.CallLog) error {
	f.created = append(f.created, *log)
	return nil
}

func (f *fakeCallLogs) SetCallSID(_ context.Context, id, sid string) error {
	f.sids[id] = sid
	return nil
}

func (f *fakeCallLogs) MarkCallFailed(_ context.Context, id, msg string) error {
	f.failed[id] = msg
	return nil
}

type fakeCaller struct {
	sid       string
	err       error
	gotScript string
	gotCB     string
	gotNumber string
}

func (f *fakeCaller) PlaceCall(_ context.Context, toNumber, scriptURL, statusCallbackURL string) (string, error) {
	f.gotNumber = toNumber
	f.gotScript = scriptURL
	f.gotCB = statusCallbackURL
	if f.err != nil {
		return "", f.err
	}
	return f.sid, nil
}

type fakePrefsReader struct {
	prefs map[string]*domain.UserPreferences
}

func (f *fakePrefsReader) Get(_ context.Context, userID string) (*domain.UserPreferences, error) {
	p, ok := f.prefs[userID]
	if !ok {
		return nil, assert.AnError
	}
	return p, nil
}

func TestPlaceWritesQueuedLogThenInitiated(t *testing.T) {
	logs := newFakeCallLogs()
	caller := &fakeCaller{sid: "CA77"}
	ch := NewCallChannel(logs, nil, caller, "https://engage.example.org")

	res, err := ch.Place(context.Background(), "u1", "+15551234567", domain.CallReminder, "Time to practice!", "")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "CA77", res.CallSID)

	require.Len(t, logs.created, 1)
	created := logs.created[0]
	assert.Equal(t, domain.CallQueued, created.Status)
	assert.Equal(t, "+15551234567", created.PhoneNumber)
	assert.Equal(t, "CA77", logs.sids[created.ID])

	assert.Equal(t, "https://engage.example.org/twiml/"+created.ID, caller.gotScript)
	assert.Equal(t, "https://engage.example.org/callbacks/call-status", caller.gotCB)
}

func TestPlaceNotConfigured(t *testing.T) {
	logs := newFakeCallLogs()
	caller := &fakeCaller{err: transport.ErrNotConfigured}
	ch := NewCallChannel(logs, nil, caller, "https://engage.example.org")

	res, err := ch.Place(context.Background(), "u1", "+15551234567", domain.CallReminder, "", "")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "not configured", res.Error)

	require.Len(t, logs.created, 1)
	assert.Equal(t, "not configured", logs.failed[logs.created[0].ID])
}

func TestPlaceNoPhoneNumber(t *testing.T) {
	logs := newFakeCallLogs()
	ch := NewCallChannel(logs, nil, &fakeCaller{sid: "CA1"}, "https://x")

	res, err := ch.Place(context.Background(), "u1", "", domain.CallReminder, "", "")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Empty(t, logs.created)
}

func TestDeliverReadsPhoneFromPreferences(t *testing.T) {
	logs := newFakeCallLogs()
	caller := &fakeCaller{sid: "CA9"}
	prefs := &fakePrefsReader{prefs: map[string]*domain.UserPreferences{
		"u1": {UserID: "u1", PhoneNumber: "+15559998888"},
	}}
	ch := NewCallChannel(logs, prefs, caller, "https://x")

	ev := &domain.ScheduledEvent{
		ID:        "e1",
		UserID:    "u1",
		EventType: domain.EventCall,
		Category:  domain.CategoryMicroLesson,
		Payload:   map[string]string{"content_id": "c1", "message": "Verbs"},
	}
	res, err := ch.Deliver(context.Background(), ev)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "+15559998888", caller.gotNumber)

	require.Len(t, logs.created, 1)
	assert.Equal(t, domain.CallMicroLesson, logs.created[0].CallType)
	assert.Equal(t, "c1", logs.created[0].ContentID)
}

func TestScriptReminder(t *testing.T) {
	log := &domain.CallLog{CallType: domain.CallReminder, Message: "You haven't practiced in 3 days."}
	script := Script(log, nil, "https://x/callbacks/call-response")

	assert.Contains(t, script, "<Response>")
	assert.Contains(t, script, "You haven&apos;t practiced in 3 days.")
	assert.Contains(t, script, "<Hangup/>")
	assert.NotContains(t, script, "<Gather")
}

func TestScriptMicroLesson(t *testing.T) {
	log := &domain.CallLog{CallType: domain.CallMicroLesson}
	content := &domain.ContentRef{Title: "Spanish Verbs", Description: "Ser & estar basics."}
	script := Script(log, content, "https://x/callbacks/call-response")

	assert.Contains(t, script, "Spanish Verbs")
	assert.Contains(t, script, "Ser &amp; estar basics.")
	assert.Contains(t, script, `<Gather numDigits="1" action="https://x/callbacks/call-response" method="POST">`)
	assert.Contains(t, script, "Press 1 to save this lesson for later. Press 2 to hear it again.")
}

func TestScriptAudio(t *testing.T) {
	log := &domain.CallLog{CallType: domain.CallAudio}
	content := &domain.ContentRef{AudioURL: "https://cdn.example.org/lesson.mp3"}
	script := Script(log, content, "https://x/cb")

	assert.Contains(t, script, "<Play>https://cdn.example.org/lesson.mp3</Play>")
}

func TestHandleDigit(t *testing.T) {
	log := &domain.CallLog{CallType: domain.CallMicroLesson}
	content := &domain.ContentRef{Title: "Verbs"}

	save := HandleDigit(log, content, "1", "https://x/cb")
	assert.True(t, save.Terminal)
	assert.Equal(t, "saved_for_later", save.ResponseData)
	assert.Contains(t, save.Script, "<Hangup/>")

	replay := HandleDigit(log, content, "2", "https://x/cb")
	assert.False(t, replay.Terminal)
	assert.Equal(t, "replay", replay.ResponseData)
	assert.Equal(t, Script(log, content, "https://x/cb"), replay.Script)

	invalid := HandleDigit(log, content, "9", "https://x/cb")
	assert.True(t, invalid.Terminal)
	assert.Equal(t, "invalid:9", invalid.ResponseData)
	assert.True(t, strings.Contains(invalid.Script, "not a valid option"))
}
