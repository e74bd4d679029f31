package prefs

import (
	"context"

	"github.com/lumenlearn/engage/internal/domain"
)

// Repository defines the data access contract for user preferences.
// Implementations must be safe for concurrent use, must validate category
// keys and the time window at the boundary (returning ErrInvalidWindow for
// an overnight window, which the engine does not support), and must return
// ErrNotFound for users with no preference row.
type Repository interface {
	Get(ctx context.Context, userID string) (*domain.UserPreferences, error)
}
