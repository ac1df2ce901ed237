package jobs

import (
	"context"
	"log/slog"

	"preorder/internal/core/application/usecases/commands"
	"preorder/internal/core/domain/model/kernel"

	"github.com/robfig/cron/v3"
)

// DefaultSchedule runs a sweep at the start of every minute.
const DefaultSchedule = "0 * * * * *"

// SweepHandler is satisfied by both sweep command handlers.
type SweepHandler interface {
	Handle(ctx context.Context, cmd commands.SweepCommand) (commands.SweepResult, error)
}

// SweepJob runs a global sweep on a cron schedule.
type SweepJob struct {
	name     string
	handler  SweepHandler
	clock    kernel.Clock
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger
}

// NewDeadlineSweepJob creates a job that locks Placed orders whose edit
// window has closed.
func NewDeadlineSweepJob(handler SweepHandler, clock kernel.Clock, schedule string, logger *slog.Logger) *SweepJob {
	return newSweepJob("deadline_sweep_job", handler, clock, schedule, logger)
}

// NewStaleCompletionJob creates a job that completes zero-value orders
// whose pickup instant has passed.
func NewStaleCompletionJob(handler SweepHandler, clock kernel.Clock, schedule string, logger *slog.Logger) *SweepJob {
	return newSweepJob("stale_completion_job", handler, clock, schedule, logger)
}

func newSweepJob(name string, handler SweepHandler, clock kernel.Clock, schedule string, logger *slog.Logger) *SweepJob {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SweepJob{
		name:     name,
		handler:  handler,
		clock:    clock,
		schedule: schedule,
		cron:     cron.New(cron.WithSeconds()),
		logger:   logger.With("component", name),
	}
}

// Name identifies the job in logs.
func (j *SweepJob) Name() string {
	return j.name
}

// RunOnce performs a single global sweep at the clock's current time.
func (j *SweepJob) RunOnce(ctx context.Context) (commands.SweepResult, error) {
	cmd, err := commands.NewSweepCommand(j.clock.Now(), "")
	if err != nil {
		return commands.SweepResult{}, err
	}

	result, err := j.handler.Handle(ctx, cmd)
	if err != nil {
		j.logger.ErrorContext(ctx, "Sweep failed", "error", err)
		return result, err
	}

	if result.Transitioned > 0 || result.Conflicts > 0 {
		j.logger.InfoContext(ctx, "Sweep finished",
			"examined", result.Examined,
			"transitioned", result.Transitioned,
			"conflicts", result.Conflicts,
		)
	}
	return result, nil
}

// Start registers the sweep with the scheduler and starts it.
func (j *SweepJob) Start() error {
	_, err := j.cron.AddFunc(j.schedule, func() {
		_, _ = j.RunOnce(context.Background())
	})
	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "Sweep job started", "schedule", j.schedule)
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (j *SweepJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.InfoContext(context.Background(), "Sweep job stopped")
}
