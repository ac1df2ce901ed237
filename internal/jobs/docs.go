// Package jobs provides scheduled background tasks for the pre-order engine.
//
// This package implements cron-based jobs using github.com/robfig/cron/v3
// to keep stored orders consistent with the pickup calendar even when no
// owner opens a session.
//
// # Available Jobs
//
// 1. Deadline sweep - locks Placed orders whose edit deadline has passed
// 2. Stale completion - completes orders with no payable value whose pickup has passed
//
// # Usage
//
//	jobManager := jobs.NewJobManager(deadlineHandler, staleHandler, clock, "0 * * * * *", logger)
//
//	if err := jobManager.StartAll(); err != nil {
//		return err
//	}
//	defer jobManager.StopAll()
//
// The `sweep` CLI command calls RunAllOnce instead, for deployments that
// schedule sweeps externally.
//
// # Scheduling
//
// Schedules are six-field cron expressions (seconds first). Both jobs share
// the schedule configured by SWEEP_SCHEDULE.
//
// # Error Handling
//
// - Version conflicts are counted by the handlers and never fail a sweep
// - Infrastructure errors are logged at Error and the next tick retries
// - Failed job starts will stop any already running jobs
package jobs
