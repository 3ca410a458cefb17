package service

import "errors"

var (
	// ErrSyncDisabled is returned when a cycle is requested while the
	// persisted enabled flag is off.
	ErrSyncDisabled = errors.New("sync is disabled")

	// ErrBackoffActive is returned to auto triggers that arrive while a
	// retry is scheduled. A user trigger bypasses it.
	ErrBackoffActive = errors.New("sync retry backoff is active")

	// ErrNotConfigured is returned when no sync config record exists yet.
	ErrNotConfigured = errors.New("sync is not configured")

	// ErrTaskDeleted is returned when a mutation targets a tombstoned task.
	ErrTaskDeleted = errors.New("task is deleted")
)
