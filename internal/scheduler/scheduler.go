// Package scheduler owns the named recurring jobs. Wrapping the cron runner
// gives every job a handle, so the admin surface can trigger one on demand
// and tests can run a job synchronously instead of waiting on wall-clock
// time.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/lumenlearn/engage/internal/pkg/logger"
)

// JobFunc is one schedulable unit of work.
type JobFunc func(ctx context.Context) error

// Scheduler runs registered jobs on cron schedules and on demand.
type Scheduler struct {
	cron *cron.Cron

	mu   sync.RWMutex
	jobs map[string]JobFunc
}

// New creates an empty scheduler.
func New() *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		jobs: map[string]JobFunc{},
	}
}

// Register adds a named job on the given cron spec. An empty spec registers
// the job for on-demand runs only, without a schedule. Registering twice
// under the same name is a programming error.
func (s *Scheduler) Register(name, spec string, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}

	if spec != "" {
		_, err := s.cron.AddFunc(spec, func() {
			if err := fn(context.Background()); err != nil {
				logger.Error("scheduled job failed", "job", name, "error", err.Error())
			}
		})
		if err != nil {
			return fmt.Errorf("registering job %q: %w", name, err)
		}
	}

	s.jobs[name] = fn
	logger.Info("job registered", "job", name, "schedule", spec)
	return nil
}

// RunNow executes a registered job synchronously, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.RLock()
	fn, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	return fn(ctx)
}

// Names returns the registered job names, sorted.
func (s *Scheduler) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start begins firing jobs on their schedules.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
