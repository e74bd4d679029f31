// Package eligibility implements the single source of truth for whether a
// touchpoint may be delivered to a user at a given instant. Both campaign
// jobs (pre-scheduling) and the dispatcher (pre-send) call CanDeliver,
// because preferences can change between scheduling time and fire time.
package eligibility

import (
	"time"

	"github.com/lumenlearn/engage/internal/domain"
)

// CanDeliver reports whether a touchpoint of the given category may be
// delivered under the given preferences at the given instant. It is
// side-effect free and fails closed: a nil preference record denies.
//
// The weekday and time-of-day are taken from now as-is; the evaluator does
// not convert to the user's timezone. This is a known simplification carried
// over from the original behavior.
func CanDeliver(category domain.Category, prefs *domain.UserPreferences, now time.Time) bool {
	if prefs == nil {
		return false
	}

	if category.IsCall() {
		if !prefs.CallsEnabled {
			return false
		}
	} else {
		if !prefs.NotificationsEnabled || !prefs.PushEnabled {
			return false
		}
	}

	// An explicit false disables the category; a missing key allows it.
	if enabled, ok := prefs.NotificationTypes[category]; ok && !enabled {
		return false
	}

	if prefs.IsQuietDay(now.Weekday()) {
		return false
	}

	tod := domain.TimeOfDayFrom(now)
	if tod.Seconds < prefs.AllowedWindowStart.Seconds || tod.Seconds > prefs.AllowedWindowEnd.Seconds {
		return false
	}

	return true
}
