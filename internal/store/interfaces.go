package store

import (
	"context"

	"github.com/taskdeck/taskdeck-sync/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/store_mock.go -package=mock

// TaskRepository is the local authoritative copy of each task record.
type TaskRepository interface {
	// GetTask returns the local copy of a task, or [ErrTaskNotFound].
	GetTask(ctx context.Context, id string) (models.Task, error)

	// SaveTask upserts a task by id, replacing payload, clock, update time,
	// and tombstone flag.
	SaveTask(ctx context.Context, task models.Task) error

	// GetAllTasks returns every non-deleted local task.
	GetAllTasks(ctx context.Context) ([]models.Task, error)
}

// QueueRepository is the durable outbox. Entries survive process restarts;
// the outbox is never rebuilt from transient state.
type QueueRepository interface {
	// SaveEntry upserts an outbox entry by id. Used both for fresh
	// enqueues and for coalescing rewrites of a pending entry.
	SaveEntry(ctx context.Context, entry models.QueueEntry) error

	// GetEntryByTask returns the pending entry for taskID, or
	// [ErrQueueEntryNotFound] when the task has nothing queued.
	GetEntryByTask(ctx context.Context, taskID string) (models.QueueEntry, error)

	// NextBatch returns up to limit entries in enqueue order, skipping
	// entries whose retry count has reached maxRetries, and atomically
	// marks the returned entries as in flight. In-flight entries are
	// invisible to [GetEntryByTask], so a coalescing enqueue during a push
	// starts a fresh entry instead of rewriting one the remote may ack.
	NextBatch(ctx context.Context, limit, maxRetries int) ([]models.QueueEntry, error)

	// ReleaseEntries clears the in-flight mark so the entries rejoin the
	// queue unchanged (used when a push fails at the request level).
	ReleaseEntries(ctx context.Context, ids []string) error

	// ReleaseAll clears every in-flight mark. Called once at startup: a
	// crash mid-push must not strand entries in the in-flight state.
	ReleaseAll(ctx context.Context) error

	// DeleteEntries removes acknowledged entries by id.
	DeleteEntries(ctx context.Context, ids []string) error

	// IncrementRetry bumps an entry's retry count and records the failure
	// reason, leaving the entry queued.
	IncrementRetry(ctx context.Context, id, lastError string) error

	// ResetRetry zeroes an entry's retry count so a terminal entry becomes
	// eligible for batches again.
	ResetRetry(ctx context.Context, id string) error

	// CountEntries returns the outbox depth.
	CountEntries(ctx context.Context) (int, error)

	// TerminalEntries returns entries whose retry count has reached
	// maxRetries, oldest first.
	TerminalEntries(ctx context.Context, maxRetries int) ([]models.QueueEntry, error)
}

// ConfigRepository persists the single sync-config record.
type ConfigRepository interface {
	// GetConfig returns the sync-config record, or [ErrSyncConfigNotFound]
	// before first-run initialisation.
	GetConfig(ctx context.Context) (models.SyncConfig, error)

	// SaveConfig upserts the single sync-config record.
	SaveConfig(ctx context.Context, cfg models.SyncConfig) error
}
