// Package scheduler runs periodic maintenance: expired cache entries and
// stale rate-limit windows are swept so neither grows without bound.
package scheduler

import (
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/pulsehub/channel-pulse/internal/cache"
	"github.com/pulsehub/channel-pulse/internal/ratelimit"
)

// Scheduler manages the cron jobs for in-memory state maintenance.
type Scheduler struct {
	cron    *cron.Cron
	memory  *cache.Memory
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

// New creates a scheduler sweeping memory and limiter every minute.
func New(memory *cache.Memory, limiter *ratelimit.Limiter, logger *slog.Logger) *Scheduler {
	s := &Scheduler{
		cron:    cron.New(),
		memory:  memory,
		limiter: limiter,
		logger:  logger,
	}
	s.scheduleSweeps()
	return s
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Scheduler) scheduleSweeps() {
	_, err := s.cron.AddFunc("* * * * *", func() {
		entries := s.memory.Sweep()
		windows := s.limiter.Sweep()
		if entries > 0 || windows > 0 {
			s.logger.Debug("Maintenance sweep", "cache_entries", entries, "rate_windows", windows)
		}
	})
	if err != nil {
		s.logger.Error("Failed to schedule maintenance sweep", "error", err)
	}
}
