package domain

import (
	"fmt"
	"strings"
	"time"
)

// CallFrequency governs how often campaign jobs may schedule calls for a user.
type CallFrequency string

const (
	CallNever    CallFrequency = "never"
	CallDaily    CallFrequency = "daily"
	CallWeekly   CallFrequency = "weekly"
	CallBiweekly CallFrequency = "biweekly"
)

// ParseCallFrequency validates a stored call frequency value.
func ParseCallFrequency(s string) (CallFrequency, error) {
	switch f := CallFrequency(s); f {
	case CallNever, CallDaily, CallWeekly, CallBiweekly:
		return f, nil
	}
	return "", fmt.Errorf("unknown call frequency %q", s)
}

// MinInterval returns the minimum gap between two scheduled calls for this
// frequency. A zero duration means calls are never allowed.
func (f CallFrequency) MinInterval() time.Duration {
	switch f {
	case CallDaily:
		return 24 * time.Hour
	case CallWeekly:
		return 7 * 24 * time.Hour
	case CallBiweekly:
		return 14 * 24 * time.Hour
	default:
		return 0
	}
}

// TimeOfDay is a wall-clock time within a day, stored as seconds since
// midnight. The engine evaluates windows against the process clock, not the
// user's timezone (a documented simplification).
type TimeOfDay struct {
	Seconds int
}

// ParseTimeOfDay parses "HH:MM:SS" (or "HH:MM") into a TimeOfDay.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var h, m, sec int
	switch n, _ := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec); n {
	case 2, 3:
	default:
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 || sec < 0 || sec > 59 {
		return TimeOfDay{}, fmt.Errorf("time of day %q out of range", s)
	}
	return TimeOfDay{Seconds: h*3600 + m*60 + sec}, nil
}

// TimeOfDayFrom extracts the time-of-day component of an instant.
func TimeOfDayFrom(t time.Time) TimeOfDay {
	return TimeOfDay{Seconds: t.Hour()*3600 + t.Minute()*60 + t.Second()}
}

// At anchors the time of day onto the date of the given instant.
func (t TimeOfDay) At(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(),
		t.Seconds/3600, (t.Seconds/60)%60, t.Seconds%60, 0, day.Location())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Seconds/3600, (t.Seconds/60)%60, t.Seconds%60)
}

// UserPreferences holds one user's touchpoint preferences.
type UserPreferences struct {
	UserID               string    `json:"user_id" db:"user_id"`
	NotificationsEnabled bool      `json:"notifications_enabled" db:"notifications_enabled"`
	PushEnabled          bool      `json:"push_enabled" db:"push_enabled"`
	CallsEnabled         bool      `json:"calls_enabled" db:"calls_enabled"`
	AllowedWindowStart   TimeOfDay `json:"allowed_window_start" db:"allowed_window_start"`
	AllowedWindowEnd     TimeOfDay `json:"allowed_window_end" db:"allowed_window_end"`

	// QuietDays holds lowercase weekday names ("saturday") on which no
	// touchpoint fires regardless of the window.
	QuietDays []string `json:"quiet_days" db:"quiet_days"`

	// NotificationTypes maps a category to an explicit opt-in/out.
	// A missing key means the category is allowed.
	NotificationTypes map[Category]bool `json:"notification_types" db:"notification_types"`

	CallFrequency         CallFrequency `json:"call_frequency" db:"call_frequency"`
	PreferredCallDuration int           `json:"preferred_call_duration" db:"preferred_call_duration"`
	PhoneNumber           string        `json:"phone_number" db:"phone_number"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsQuietDay reports whether the given weekday is one of the user's quiet days.
func (p *UserPreferences) IsQuietDay(day time.Weekday) bool {
	name := strings.ToLower(day.String())
	for _, q := range p.QuietDays {
		if strings.ToLower(q) == name {
			return true
		}
	}
	return false
}
