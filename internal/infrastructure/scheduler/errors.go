package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when trying to submit a job to a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrJobQueueFull is returned when the job queue is full
	ErrJobQueueFull = errors.New("job queue is full")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrDeltaSyncFailed is returned when a delta sync run fails
	ErrDeltaSyncFailed = errors.New("delta sync failed")

	// ErrDeltaSyncTimeout is returned when a delta sync run times out
	ErrDeltaSyncTimeout = errors.New("delta sync timed out")

	// ErrNoSyncTargets is returned when no tenant/provider pairs are configured for sync
	ErrNoSyncTargets = errors.New("no sync targets configured")
)
