package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/taskdeck/taskdeck-sync/internal/config"
	"github.com/taskdeck/taskdeck-sync/internal/logger"
	"github.com/taskdeck/taskdeck-sync/internal/store"
	"github.com/taskdeck/taskdeck-sync/internal/utils"
	"github.com/taskdeck/taskdeck-sync/models"
)

type syncQueue struct {
	repo store.QueueRepository
	ids  *utils.UUIDGenerator

	batchSize  int
	maxRetries int

	logger *logger.Logger
}

// NewSyncQueue constructs the outbox service over its repository. It clears
// any in-flight marks left behind by a crash mid-push, so restart never
// strands entries.
func NewSyncQueue(repo store.QueueRepository, syncCfg config.Sync, log *logger.Logger) (SyncQueue, error) {
	if err := repo.ReleaseAll(context.Background()); err != nil {
		return nil, fmt.Errorf("release stale in-flight entries: %w", err)
	}

	return &syncQueue{
		repo:       repo,
		ids:        utils.NewUUIDGenerator(),
		batchSize:  syncCfg.BatchSize,
		maxRetries: syncCfg.MaxRetries,
		logger:     log,
	}, nil
}

// Enqueue implements [SyncQueue]. Coalescing rules for an unsent pending
// entry of the same task:
//
//	pending create + update → one create with the newest payload
//	pending update + update → the update rewritten in place
//	pending create + delete → both cancel: the remote never saw the task
//	pending any    + delete → one delete
//
// The pending entry's id and enqueue time survive every rewrite, so batch
// order reflects the first intent, not the last edit.
func (q *syncQueue) Enqueue(ctx context.Context, op models.Operation, taskID string, payload json.RawMessage, clock models.VectorClock) error {
	pending, err := q.repo.GetEntryByTask(ctx, taskID)
	if errors.Is(err, store.ErrQueueEntryNotFound) {
		entry := models.QueueEntry{
			ID:         q.ids.Generate(),
			TaskID:     taskID,
			Operation:  op,
			Payload:    payload,
			Clock:      clock.Clone(),
			EnqueuedAt: time.Now(),
		}
		return q.repo.SaveEntry(ctx, entry)
	}
	if err != nil {
		return fmt.Errorf("find pending entry for task %s: %w", taskID, err)
	}

	if pending.Operation == models.OpCreate && op == models.OpDelete {
		// The create never reached the remote; nothing exists to delete.
		return q.repo.DeleteEntries(ctx, []string{pending.ID})
	}

	coalesced := pending
	coalesced.Payload = payload
	coalesced.Clock = clock.Clone()
	coalesced.Operation = op
	if pending.Operation == models.OpCreate && op == models.OpUpdate {
		// An update never replaces a pending create on the wire: the
		// remote has no record to update yet.
		coalesced.Operation = models.OpCreate
	}
	if op == models.OpDelete {
		coalesced.Payload = nil
	}

	q.logger.Debug().
		Str("task_id", taskID).
		Str("pending_op", string(pending.Operation)).
		Str("op", string(op)).
		Msg("coalesced mutation into pending outbox entry")

	return q.repo.SaveEntry(ctx, coalesced)
}

// NextBatch implements [SyncQueue].
func (q *syncQueue) NextBatch(ctx context.Context) ([]models.QueueEntry, error) {
	return q.repo.NextBatch(ctx, q.batchSize, q.maxRetries)
}

// MarkSent implements [SyncQueue].
func (q *syncQueue) MarkSent(ctx context.Context, ids []string) error {
	return q.repo.DeleteEntries(ctx, ids)
}

// MarkFailed implements [SyncQueue].
func (q *syncQueue) MarkFailed(ctx context.Context, id string, cause error) error {
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	return q.repo.IncrementRetry(ctx, id, reason)
}

// Release implements [SyncQueue].
func (q *syncQueue) Release(ctx context.Context, ids []string) error {
	return q.repo.ReleaseEntries(ctx, ids)
}

// Depth implements [SyncQueue].
func (q *syncQueue) Depth(ctx context.Context) (int, error) {
	return q.repo.CountEntries(ctx)
}

// TerminalFailures implements [SyncQueue].
func (q *syncQueue) TerminalFailures(ctx context.Context) ([]models.QueueEntry, error) {
	return q.repo.TerminalEntries(ctx, q.maxRetries)
}

// RetryTerminal implements [SyncQueue].
func (q *syncQueue) RetryTerminal(ctx context.Context, id string) error {
	return q.repo.ResetRetry(ctx, id)
}
