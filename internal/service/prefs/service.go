package prefs

import (
	"context"
	"errors"
	"time"

	"github.com/lumenlearn/engage/internal/domain"
	"github.com/lumenlearn/engage/internal/eligibility"
)

// Service reads preferences and answers eligibility questions. All public
// methods are safe for concurrent use if the underlying repository is.
type Service struct {
	repo Repository
}

// NewService creates a preference accessor backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Get returns the stored preferences for a user.
func (s *Service) Get(ctx context.Context, userID string) (*domain.UserPreferences, error) {
	return s.repo.Get(ctx, userID)
}

// Eligible loads the user's preferences and runs the eligibility check for
// the given category at the given instant. A missing preference record fails
// closed (false, nil error); storage errors propagate.
func (s *Service) Eligible(ctx context.Context, userID string, category domain.Category, now time.Time) (bool, error) {
	p, err := s.repo.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return eligibility.CanDeliver(category, p, now), nil
}
