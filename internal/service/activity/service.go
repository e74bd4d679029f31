package activity

import "context"

// Service wraps the scanner repository. It exists so campaign jobs depend on
// a service type rather than a raw repository, matching the rest of the
// engine's layering.
type Service struct {
	repo Repository
}

// NewService creates an activity scanner backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// FindInactiveUsers returns users with no completed session in thresholdDays.
func (s *Service) FindInactiveUsers(ctx context.Context, thresholdDays int) ([]string, error) {
	return s.repo.FindInactiveUsers(ctx, thresholdDays)
}

// FindInterestedUsers returns users interested in the given content category.
func (s *Service) FindInterestedUsers(ctx context.Context, category string) ([]string, error) {
	return s.repo.FindInterestedUsers(ctx, category)
}

// FindDailyCallCandidates returns users opted into daily calls.
func (s *Service) FindDailyCallCandidates(ctx context.Context) ([]CallCandidate, error) {
	return s.repo.FindDailyCallCandidates(ctx)
}
