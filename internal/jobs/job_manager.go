package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"preorder/internal/core/domain/model/kernel"
)

// JobManager coordinates all scheduled jobs in the application.
// Provides a unified interface to start and stop all background jobs.
type JobManager struct {
	deadlineSweepJob   *SweepJob
	staleCompletionJob *SweepJob
}

// NewJobManager creates a new job manager with both sweep jobs sharing one
// schedule.
func NewJobManager(
	deadlines SweepHandler,
	stale SweepHandler,
	clock kernel.Clock,
	schedule string,
	logger *slog.Logger,
) *JobManager {
	return &JobManager{
		deadlineSweepJob:   NewDeadlineSweepJob(deadlines, clock, schedule, logger),
		staleCompletionJob: NewStaleCompletionJob(stale, clock, schedule, logger),
	}
}

// StartAll starts all scheduled jobs.
// Returns an error if any job fails to start.
func (jm *JobManager) StartAll() error {
	if err := jm.deadlineSweepJob.Start(); err != nil {
		return fmt.Errorf("failed to start deadline sweep job: %w", err)
	}

	if err := jm.staleCompletionJob.Start(); err != nil {
		// Stop already started jobs if this one fails
		jm.deadlineSweepJob.Stop()
		return fmt.Errorf("failed to start stale completion job: %w", err)
	}

	return nil
}

// RunAllOnce runs the deadline sweep and then the stale sweep once.
func (jm *JobManager) RunAllOnce(ctx context.Context) error {
	if _, err := jm.deadlineSweepJob.RunOnce(ctx); err != nil {
		return fmt.Errorf("deadline sweep: %w", err)
	}
	if _, err := jm.staleCompletionJob.RunOnce(ctx); err != nil {
		return fmt.Errorf("stale completion sweep: %w", err)
	}
	return nil
}

// StopAll stops all scheduled jobs gracefully.
func (jm *JobManager) StopAll() {
	jm.staleCompletionJob.Stop()
	jm.deadlineSweepJob.Stop()
}
