// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/taskdeck/taskdeck-sync/internal/adapter"
	"github.com/taskdeck/taskdeck-sync/internal/crypto"
	"github.com/taskdeck/taskdeck-sync/internal/logger"
	"github.com/taskdeck/taskdeck-sync/internal/store"
	"github.com/taskdeck/taskdeck-sync/models"
)

type syncEngine struct {
	tasks   store.TaskRepository
	cfgRepo store.ConfigRepository
	queue   SyncQueue
	remote  adapter.RemoteStore
	cipher  crypto.CipherService

	// now is swappable in tests so cursor arithmetic is deterministic.
	now func() time.Time

	logger *logger.Logger
}

// NewSyncEngine wires the push-then-pull cycle over its collaborators.
func NewSyncEngine(
	tasks store.TaskRepository,
	cfgRepo store.ConfigRepository,
	queue SyncQueue,
	remote adapter.RemoteStore,
	cipher crypto.CipherService,
	log *logger.Logger,
) SyncEngine {
	return &syncEngine{
		tasks:   tasks,
		cfgRepo: cfgRepo,
		queue:   queue,
		remote:  remote,
		cipher:  cipher,
		now:     time.Now,
		logger:  log,
	}
}

// RunCycle implements [SyncEngine]. Push runs before pull so that this
// device's pending mutations are on the server before remote state is folded
// in; the cursor only advances once both phases finish, so a failed pull
// replays from the same point next cycle.
func (e *syncEngine) RunCycle(ctx context.Context) (CycleOutcome, error) {
	var outcome CycleOutcome

	cfg, err := e.cfgRepo.GetConfig(ctx)
	if errors.Is(err, store.ErrSyncConfigNotFound) {
		return outcome, ErrNotConfigured
	}
	if err != nil {
		return outcome, fmt.Errorf("load sync config: %w", err)
	}
	if !cfg.Enabled {
		return outcome, ErrSyncDisabled
	}

	// The cycle start is captured before any network call. Server-side
	// writes that land while the cycle runs are at or after this instant,
	// so a cursor derived from it cannot skip them.
	cycleStart := e.now()

	pushed, err := e.push(ctx, &cfg)
	outcome.Pushed = pushed
	if err != nil {
		return outcome, err
	}

	pulled, resolved, err := e.pull(ctx, &cfg)
	outcome.Pulled = pulled
	outcome.ConflictsResolved = resolved
	if err != nil {
		return outcome, err
	}

	// One unit of overlap: records stamped exactly at cycleStart are
	// re-delivered next cycle and deduplicated, never skipped.
	cfg.LastSyncCursor = cycleStart.UnixMilli() - 1
	cfg.LastSyncAt = &cycleStart

	if err := e.cfgRepo.SaveConfig(ctx, cfg); err != nil {
		return outcome, fmt.Errorf("persist sync cursor: %w", err)
	}

	e.logger.Info().
		Int("pushed", outcome.Pushed).
		Int("pulled", outcome.Pulled).
		Int("conflicts_resolved", outcome.ConflictsResolved).
		Int64("cursor", cfg.LastSyncCursor).
		Msg("sync cycle completed")

	return outcome, nil
}

// push drains one outbox batch. A request-level failure releases the whole
// batch unchanged; per-item rejections only fail the rejected entries.
func (e *syncEngine) push(ctx context.Context, cfg *models.SyncConfig) (int, error) {
	log := logger.FromContext(ctx)

	batch, err := e.queue.NextBatch(ctx)
	if err != nil {
		return 0, fmt.Errorf("snapshot outbox batch: %w", err)
	}
	if len(batch) == 0 {
		return 0, nil
	}

	items := make([]models.PushItem, 0, len(batch))
	inFlight := make([]string, 0, len(batch))
	for _, entry := range batch {
		item := models.PushItem{
			ID:        entry.ID,
			TaskID:    entry.TaskID,
			Operation: entry.Operation,
			Clock:     entry.Clock,
			UpdatedAt: entry.EnqueuedAt,
		}
		if entry.Operation != models.OpDelete {
			blob, nonce, encErr := e.cipher.Encrypt(entry.Payload)
			if encErr != nil {
				// The entry stays queued with the failure recorded;
				// the rest of the batch still pushes.
				log.Err(encErr).Str("entry_id", entry.ID).Msg("failed to encrypt outbox entry")
				if mErr := e.queue.MarkFailed(ctx, entry.ID, encErr); mErr != nil {
					return 0, fmt.Errorf("record encrypt failure: %w", mErr)
				}
				continue
			}
			item.EncryptedPayload = blob
			item.Nonce = nonce
		}
		items = append(items, item)
		inFlight = append(inFlight, entry.ID)
	}
	if len(items) == 0 {
		return 0, nil
	}

	resp, err := e.remote.Push(ctx, models.PushRequest{
		DeviceID: cfg.DeviceID,
		Items:    items,
		Length:   len(items),
	})
	if err != nil {
		if relErr := e.queue.Release(ctx, inFlight); relErr != nil {
			log.Err(relErr).Msg("failed to release in-flight entries after push failure")
		}
		return 0, fmt.Errorf("push batch: %w", err)
	}

	// The server's clock accumulator is merged, never copied over: a copy
	// could rewind entries the server has not seen from other devices yet.
	cfg.Clock = cfg.Clock.Merge(resp.MergedClock)

	if len(resp.Accepted) > 0 {
		if err := e.queue.MarkSent(ctx, resp.Accepted); err != nil {
			return 0, fmt.Errorf("ack accepted entries: %w", err)
		}
	}

	settled := make(map[string]struct{}, len(resp.Accepted)+len(resp.Rejected))
	for _, id := range resp.Accepted {
		settled[id] = struct{}{}
	}
	for _, rej := range resp.Rejected {
		settled[rej.ID] = struct{}{}
		log.Warn().Str("entry_id", rej.ID).Str("reason", rej.Reason).Msg("push item rejected by remote")
		if err := e.queue.MarkFailed(ctx, rej.ID, errors.New(rej.Reason)); err != nil {
			return 0, fmt.Errorf("record rejection: %w", err)
		}
	}

	var unsettled []string
	for _, id := range inFlight {
		if _, ok := settled[id]; !ok {
			unsettled = append(unsettled, id)
		}
	}
	if len(unsettled) > 0 {
		if err := e.queue.Release(ctx, unsettled); err != nil {
			return 0, fmt.Errorf("release unsettled entries: %w", err)
		}
	}

	return len(resp.Accepted), nil
}

// pull fetches remote deltas since the persisted cursor and folds each one
// into the local store.
func (e *syncEngine) pull(ctx context.Context, cfg *models.SyncConfig) (pulled, resolved int, err error) {
	since := cfg.LastSyncCursor - 1
	if since < 0 {
		since = 0
	}

	resp, err := e.remote.Pull(ctx, models.PullRequest{
		DeviceID: cfg.DeviceID,
		Since:    since,
	})
	if err != nil {
		return 0, 0, fmt.Errorf("pull deltas: %w", err)
	}

	// Overlap-tolerant cursors re-deliver boundary records; the first
	// occurrence of each id wins, the rest are duplicates.
	seen := make(map[string]struct{}, len(resp.Tasks))
	for _, remote := range resp.Tasks {
		if _, dup := seen[remote.ID]; dup {
			continue
		}
		seen[remote.ID] = struct{}{}

		applied, wasConflict, applyErr := e.applyRemote(ctx, cfg, remote)
		if applyErr != nil {
			return pulled, resolved, applyErr
		}
		if applied {
			pulled++
		}
		if wasConflict {
			resolved++
		}
	}

	return pulled, resolved, nil
}

// applyRemote folds one remote task into the local store per the clock
// ordering. Returns whether the local copy changed and whether a true
// concurrent conflict was resolved.
func (e *syncEngine) applyRemote(ctx context.Context, cfg *models.SyncConfig, remote models.RemoteTask) (applied, wasConflict bool, err error) {
	local, err := e.tasks.GetTask(ctx, remote.ID)
	if errors.Is(err, store.ErrTaskNotFound) {
		if err := e.saveRemote(ctx, remote, remote.Clock); err != nil {
			return false, false, err
		}
		return true, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("load local task %s: %w", remote.ID, err)
	}

	switch local.Clock.Compare(remote.Clock) {
	case models.ClockIdentical, models.ClockAfter:
		// Local already has this version, or is strictly ahead and the
		// outbox will carry it out. Nothing to fold in.
		return false, false, nil

	case models.ClockBefore:
		if err := e.saveRemote(ctx, remote, local.Clock.Merge(remote.Clock)); err != nil {
			return false, false, err
		}
		return true, false, nil
	}

	// Concurrent clocks. It is only a true conflict when the local copy was
	// edited after the last completed cycle; otherwise the divergence is an
	// artifact of a cycle that pushed but never finished pulling, and the
	// remote version simply supersedes.
	locallyModified := cfg.LastSyncAt != nil && local.UpdatedAt.After(*cfg.LastSyncAt)
	if !locallyModified {
		if err := e.saveRemote(ctx, remote, local.Clock.Merge(remote.Clock)); err != nil {
			return false, false, err
		}
		return true, false, nil
	}

	return e.resolveConflict(ctx, cfg, local, remote)
}

// resolveConflict picks a survivor for a true concurrent conflict. The
// survivor always carries the merge of both clocks, so it dominates both
// inputs and no third device sees the conflict again.
func (e *syncEngine) resolveConflict(ctx context.Context, cfg *models.SyncConfig, local models.Task, remote models.RemoteTask) (applied, wasConflict bool, err error) {
	merged := local.Clock.Merge(remote.Clock)

	remoteWins := false
	switch cfg.ConflictStrategy {
	case models.StrategyRemoteWins:
		remoteWins = true
	case models.StrategyLocalWins:
		remoteWins = false
	default:
		// Last write wins; the remote version takes an exact tie so every
		// device resolves the same way.
		remoteWins = !remote.UpdatedAt.Before(local.UpdatedAt)
	}

	logger.FromContext(ctx).Info().
		Str("task_id", local.ID).
		Str("strategy", string(cfg.ConflictStrategy)).
		Bool("remote_won", remoteWins).
		Msg("resolved concurrent conflict")

	if remoteWins {
		if err := e.saveRemote(ctx, remote, merged); err != nil {
			return false, true, err
		}
		return true, true, nil
	}

	// The local survivor gets the merged clock and goes back through the
	// outbox so every other device converges on it.
	local.Clock = merged
	if err := e.tasks.SaveTask(ctx, local); err != nil {
		return false, true, fmt.Errorf("save conflict survivor %s: %w", local.ID, err)
	}
	op := models.OpUpdate
	if local.Deleted {
		op = models.OpDelete
	}
	if err := e.queue.Enqueue(ctx, op, local.ID, local.Payload, merged); err != nil {
		return false, true, fmt.Errorf("requeue conflict survivor %s: %w", local.ID, err)
	}

	return false, true, nil
}

// saveRemote decrypts a remote task and stores it locally under clock.
// Remote tombstones keep their tombstone flag; their payload is empty.
func (e *syncEngine) saveRemote(ctx context.Context, remote models.RemoteTask, clock models.VectorClock) error {
	task := models.Task{
		ID:        remote.ID,
		Clock:     clock,
		UpdatedAt: remote.UpdatedAt,
	}

	if remote.DeletedAt != nil {
		task.Deleted = true
		task.UpdatedAt = *remote.DeletedAt
	} else {
		plaintext, err := e.cipher.Decrypt(remote.EncryptedPayload, remote.Nonce)
		if err != nil {
			return fmt.Errorf("decrypt remote task %s: %w", remote.ID, err)
		}
		task.Payload = plaintext
	}

	if err := e.tasks.SaveTask(ctx, task); err != nil {
		return fmt.Errorf("save remote task %s: %w", remote.ID, err)
	}

	return nil
}
