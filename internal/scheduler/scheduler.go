package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Task is one unit of recurring work, typically a collection pass followed
// by a scoring run.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Scheduler owns the main loop: ticks on an interval and runs each task
// sequentially.
type Scheduler struct {
	tasks    []Task
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler creates a scheduler that runs all tasks at the given interval.
func NewScheduler(tasks []Task, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		tasks:    tasks,
		interval: interval,
		logger:   logger,
	}
}

// Run starts the loop. It runs one immediate cycle, then ticks on the
// configured interval. It returns nil when ctx is cancelled (graceful shutdown).
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting scheduler",
		"interval", s.interval.String(),
		"tasks", len(s.tasks),
	)

	// Run one immediate cycle.
	s.runAll(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("shutting down scheduler")
			return nil
		case <-time.After(s.interval):
			s.runAll(ctx)
		}
	}
}

// runAll runs each task sequentially with a small pause between tasks. A
// failed task is logged and the cycle moves on.
func (s *Scheduler) runAll(ctx context.Context) {
	for i, task := range s.tasks {
		if ctx.Err() != nil {
			return
		}

		if err := task.Run(ctx); err != nil {
			s.logger.Error("task failed",
				"task", task.Name,
				"error", err,
			)
		}

		// Small sleep between tasks, except after the last one.
		if i < len(s.tasks)-1 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(1 * time.Second):
			}
		}
	}
}
