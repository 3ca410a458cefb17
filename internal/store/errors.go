package store

import "errors"

// Sentinel errors returned by repository methods to signal well-known failure
// conditions. Callers should use [errors.Is] to match against these values.
var (
	// ErrTaskNotFound is returned when a query targets a task that does not
	// exist in the local database.
	ErrTaskNotFound = errors.New("task was not found")

	// ErrQueueEntryNotFound is returned when an outbox operation targets an
	// entry id that is not queued (it may have been acknowledged and removed
	// by a concurrent cycle).
	ErrQueueEntryNotFound = errors.New("queue entry was not found")

	// ErrSyncConfigNotFound is returned when the single sync-config record
	// has not been initialised yet. First-run code reacts by seeding it.
	ErrSyncConfigNotFound = errors.New("sync config was not found")
)
