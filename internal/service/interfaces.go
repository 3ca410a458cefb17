package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/taskdeck/taskdeck-sync/models"
)

// TaskService is the mutation entry point exposed to the task editor. Every
// mutation bumps the task's vector clock with this device's entry and
// records the mutation in the durable outbox in one step, so the outbox can
// never drift from the local task state.
type TaskService interface {
	// CreateTask stores a new local task and enqueues a create mutation.
	CreateTask(ctx context.Context, id string, payload json.RawMessage) (models.Task, error)

	// UpdateTask replaces a local task's payload and enqueues an update
	// mutation. Returns [store.ErrTaskNotFound] for an unknown id.
	UpdateTask(ctx context.Context, id string, payload json.RawMessage) (models.Task, error)

	// DeleteTask tombstones a local task and enqueues a delete mutation.
	DeleteTask(ctx context.Context, id string) error
}

// SyncQueue is the durable local outbox of pending mutations. Mutation call
// sites append to it outside any sync cycle; only the engine drains it.
type SyncQueue interface {
	// Enqueue records a mutation carrying the task's clock snapshot at
	// enqueue time. Consecutive unsent mutations for one task coalesce:
	// update-over-update rewrites the pending entry in place, and
	// update-over-create folds into one create with the newest payload.
	// The earliest enqueue time always survives coalescing.
	Enqueue(ctx context.Context, op models.Operation, taskID string, payload json.RawMessage, clock models.VectorClock) error

	// NextBatch snapshots up to the configured batch size of entries in
	// enqueue order and marks them in flight.
	NextBatch(ctx context.Context) ([]models.QueueEntry, error)

	// MarkSent destroys entries the remote store has acknowledged.
	MarkSent(ctx context.Context, ids []string) error

	// MarkFailed returns an entry to the queue with its retry count bumped
	// and the failure recorded. Entries are never dropped automatically.
	MarkFailed(ctx context.Context, id string, cause error) error

	// Release returns in-flight entries to the queue unchanged, used when a
	// push fails before the remote could acknowledge anything.
	Release(ctx context.Context, ids []string) error

	// Depth reports how many mutations are waiting.
	Depth(ctx context.Context) (int, error)

	// TerminalFailures lists entries that exhausted the retry policy. They
	// stay queued until an operator retries or discards them explicitly.
	TerminalFailures(ctx context.Context) ([]models.QueueEntry, error)

	// RetryTerminal zeroes a terminal entry's retry count so the next cycle
	// picks it up again.
	RetryTerminal(ctx context.Context, id string) error
}

// SyncEngine executes one push-then-pull cycle against the remote store.
// The engine assumes it is the only cycle running; the coordinator enforces
// that.
type SyncEngine interface {
	// RunCycle pushes the pending outbox batch, pulls remote deltas, and
	// resolves per-task conflicts. The returned counts are valid even when
	// err is non-nil (a failed cycle may have pushed part of its batch).
	RunCycle(ctx context.Context) (CycleOutcome, error)
}

// CycleOutcome carries the counters of one engine cycle.
type CycleOutcome struct {
	Pushed            int
	Pulled            int
	ConflictsResolved int
}

// Status is the coordinator's read-only view for observers.
type Status struct {
	IsRunning       bool               `json:"is_running"`
	PendingRequests int                `json:"pending_requests"`
	NextRetryAt     *time.Time         `json:"next_retry_at,omitempty"`
	RetryCount      int                `json:"retry_count"`
	LastResult      *models.SyncResult `json:"last_result,omitempty"`
	LastError       string             `json:"last_error,omitempty"`
	AuthRequired    bool               `json:"auth_required"`
}

// SyncCoordinator is the externally visible control point for sync. It
// serializes cycles process-wide, drives retry backoff from the error
// categorizer, and notifies observers of state transitions.
type SyncCoordinator interface {
	// RequestSync runs one cycle. If a cycle is already in flight it
	// returns a result with status already_running immediately, without a
	// network round-trip. A user trigger bypasses active backoff; an auto
	// trigger is suppressed while a retry is scheduled.
	RequestSync(ctx context.Context, trigger models.SyncTrigger) models.SyncResult

	// GetStatus returns the current read-only status snapshot.
	GetStatus() Status

	// Subscribe registers fn to be called on every state transition and
	// returns an unsubscribe function. Polling GetStatus stays available
	// as a fallback.
	Subscribe(fn func(Status)) (unsubscribe func())

	// SetEnabled flips the persisted enabled flag. Disabling cancels any
	// scheduled retry; callers must also stop the periodic supervisors.
	SetEnabled(ctx context.Context, enabled bool) error

	// SetCredential stores a fresh bearer credential, clears the
	// auth-required state, and persists the credential's expiry.
	SetCredential(ctx context.Context, credential string) error

	// LastResults returns up to n most recent cycle results, newest first.
	LastResults(n int) []models.SyncResult
}

// HealthMonitor audits sync health without mutating any state and never
// triggers a cycle.
type HealthMonitor interface {
	// Report recomputes the health report from the persisted sync config
	// and the outbox.
	Report(ctx context.Context) (models.HealthReport, error)
}

// BackgroundSync schedules auto cycles while the app is active.
type BackgroundSync interface {
	// Start launches the interval scheduler. It stops any previously
	// running scheduler first. The scheduler exits when ctx is cancelled
	// or Stop is called.
	Start(ctx context.Context)

	// NotifyMutation debounces a burst of local mutations into one delayed
	// auto cycle instead of one cycle per edit.
	NotifyMutation()

	// Stop halts the scheduler and blocks until it has fully exited. Safe
	// to call when not running.
	Stop()
}
