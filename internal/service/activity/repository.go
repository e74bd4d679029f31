package activity

import (
	"context"

	"github.com/lumenlearn/engage/internal/domain"
)

// CallCandidate is a user opted into daily calls, paired with the start of
// their allowed delivery window.
type CallCandidate struct {
	UserID      string
	WindowStart domain.TimeOfDay
}

// Repository defines the read-only scanner queries. Implementations return
// empty slices (not errors) when nothing matches; a storage failure is a
// real error surfaced to the caller.
type Repository interface {
	// FindInactiveUsers returns users with zero completed learning
	// sessions started within the last thresholdDays.
	FindInactiveUsers(ctx context.Context, thresholdDays int) ([]string, error)

	// FindInterestedUsers returns users whose stored interests include
	// the given content category.
	FindInterestedUsers(ctx context.Context, category string) ([]string, error)

	// FindDailyCallCandidates returns users with calls enabled and a
	// daily call frequency.
	FindDailyCallCandidates(ctx context.Context) ([]CallCandidate, error)
}
