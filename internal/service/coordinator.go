// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/taskdeck/taskdeck-sync/internal/adapter"
	"github.com/taskdeck/taskdeck-sync/internal/config"
	"github.com/taskdeck/taskdeck-sync/internal/logger"
	"github.com/taskdeck/taskdeck-sync/internal/store"
	"github.com/taskdeck/taskdeck-sync/internal/utils"
	"github.com/taskdeck/taskdeck-sync/models"
)

// historySize bounds the in-memory ring of recent cycle results.
const historySize = 20

type syncCoordinator struct {
	engine  SyncEngine
	cfgRepo store.ConfigRepository
	remote  adapter.RemoteStore
	syncCfg config.Sync

	now func() time.Time

	mu           sync.Mutex
	running      bool
	pending      int
	backoff      retry.Backoff
	retryCount   int
	nextRetryAt  *time.Time
	lastResult   *models.SyncResult
	lastError    string
	authRequired bool
	history      []models.SyncResult

	subs      map[int]func(Status)
	nextSubID int

	logger *logger.Logger
}

// NewSyncCoordinator builds the process-wide sync control point.
func NewSyncCoordinator(
	engine SyncEngine,
	cfgRepo store.ConfigRepository,
	remote adapter.RemoteStore,
	syncCfg config.Sync,
	log *logger.Logger,
) SyncCoordinator {
	return &syncCoordinator{
		engine:  engine,
		cfgRepo: cfgRepo,
		remote:  remote,
		syncCfg: syncCfg,
		now:     time.Now,
		subs:    make(map[int]func(Status)),
		logger:  log,
	}
}

// RequestSync implements [SyncCoordinator]. The single-flight check and the
// backoff gate both resolve under the mutex without any network round-trip,
// so a refused request costs nothing.
func (c *syncCoordinator) RequestSync(ctx context.Context, trigger models.SyncTrigger) models.SyncResult {
	startedAt := c.now()

	c.mu.Lock()
	if c.running {
		c.pending++
		c.mu.Unlock()
		return models.SyncResult{Status: models.SyncAlreadyRunning, StartedAt: startedAt}
	}

	if trigger == models.TriggerAuto && c.nextRetryAt != nil && startedAt.Before(*c.nextRetryAt) {
		c.mu.Unlock()
		return models.SyncResult{
			Status:    models.SyncError,
			Error:     ErrBackoffActive.Error(),
			StartedAt: startedAt,
		}
	}
	if trigger == models.TriggerUser {
		// An explicit user action overrides whatever schedule the backoff
		// had set up.
		c.nextRetryAt = nil
	}

	c.running = true
	c.pending = 0
	c.mu.Unlock()
	c.notify()

	outcome, err := c.engine.RunCycle(ctx)

	result := models.SyncResult{
		Status:            models.SyncSuccess,
		PushedCount:       outcome.Pushed,
		PulledCount:       outcome.Pulled,
		ConflictsResolved: outcome.ConflictsResolved,
		StartedAt:         startedAt,
		Duration:          c.now().Sub(startedAt),
	}
	switch {
	case err != nil:
		result.Status = models.SyncError
		result.Error = err.Error()
	case outcome.ConflictsResolved > 0:
		result.Status = models.SyncConflict
	}

	c.settle(ctx, result, err)
	c.notify()

	return result
}

// settle records the cycle outcome, drives the retry schedule from the error
// category, and persists the failure streak so it survives restarts.
func (c *syncCoordinator) settle(ctx context.Context, result models.SyncResult, cycleErr error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.running = false
	c.lastResult = &result
	c.history = append(c.history, result)
	if len(c.history) > historySize {
		c.history = c.history[len(c.history)-historySize:]
	}

	if cycleErr == nil {
		c.lastError = ""
		c.retryCount = 0
		c.nextRetryAt = nil
		c.backoff = nil
		c.authRequired = false
		c.persistFailureState(ctx, true, "")
		return
	}

	c.lastError = cycleErr.Error()

	// A refused cycle is not a failure: nothing was attempted, so there is
	// nothing to retry and no streak to record.
	if errors.Is(cycleErr, ErrSyncDisabled) || errors.Is(cycleErr, ErrNotConfigured) {
		c.nextRetryAt = nil
		c.backoff = nil
		return
	}

	switch Categorize(cycleErr) {
	case CategoryAuth:
		// No amount of retrying fixes a rejected credential. Sync pauses
		// until the owner supplies a fresh one.
		c.authRequired = true
		c.nextRetryAt = nil
		c.backoff = nil
		c.logger.Warn().Err(cycleErr).Msg("sync paused pending a fresh credential")

	case CategoryPermanent:
		// Retrying replays the same failure; surface it and wait for the
		// next regular trigger instead of hammering the remote.
		c.nextRetryAt = nil
		c.backoff = nil
		c.logger.Error().Err(cycleErr).Msg("sync cycle failed permanently")

	default:
		if c.backoff == nil {
			c.backoff = c.newBackoff()
		}
		c.retryCount++
		delay, stopped := c.backoff.Next()
		if stopped {
			delay = c.syncCfg.BackoffMax
		}
		at := c.now().Add(delay)
		c.nextRetryAt = &at
		c.logger.Warn().Err(cycleErr).
			Int("retry_count", c.retryCount).
			Dur("delay", delay).
			Msg("sync cycle failed, retry scheduled")
	}

	c.persistFailureState(ctx, false, c.lastError)
}

// persistFailureState mirrors the in-memory retry bookkeeping into the
// persisted sync config. Called with the mutex held. A persistence failure
// only costs restart fidelity, so it is logged and swallowed.
func (c *syncCoordinator) persistFailureState(ctx context.Context, success bool, reason string) {
	cfg, err := c.cfgRepo.GetConfig(ctx)
	if err != nil {
		c.logger.Err(err).Msg("failed to load sync config for failure bookkeeping")
		return
	}

	if success {
		cfg.ConsecutiveFailures = 0
		cfg.LastFailureAt = nil
		cfg.LastFailureReason = ""
		cfg.NextRetryAt = nil
	} else {
		now := c.now()
		cfg.ConsecutiveFailures++
		cfg.LastFailureAt = &now
		cfg.LastFailureReason = reason
		cfg.NextRetryAt = c.nextRetryAt
	}

	if err := c.cfgRepo.SaveConfig(ctx, cfg); err != nil {
		c.logger.Err(err).Msg("failed to persist sync failure state")
	}
}

// newBackoff builds a fresh capped, jittered exponential schedule. A fresh
// schedule starts over from the minimum delay, so it is only built at the
// start of a failure streak.
func (c *syncCoordinator) newBackoff() retry.Backoff {
	b := retry.NewExponential(c.syncCfg.BackoffMin)
	b = retry.WithJitter(c.syncCfg.BackoffMin/2, b)
	b = retry.WithCappedDuration(c.syncCfg.BackoffMax, b)

	return b
}

// GetStatus implements [SyncCoordinator].
func (c *syncCoordinator) GetStatus() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.statusLocked()
}

func (c *syncCoordinator) statusLocked() Status {
	st := Status{
		IsRunning:       c.running,
		PendingRequests: c.pending,
		RetryCount:      c.retryCount,
		LastError:       c.lastError,
		AuthRequired:    c.authRequired,
	}
	if c.nextRetryAt != nil {
		at := *c.nextRetryAt
		st.NextRetryAt = &at
	}
	if c.lastResult != nil {
		res := *c.lastResult
		st.LastResult = &res
	}

	return st
}

// Subscribe implements [SyncCoordinator].
func (c *syncCoordinator) Subscribe(fn func(Status)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextSubID
	c.nextSubID++
	c.subs[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// notify delivers a status snapshot to every subscriber. Callbacks run
// outside the mutex so a slow observer cannot block a cycle.
func (c *syncCoordinator) notify() {
	c.mu.Lock()
	st := c.statusLocked()
	fns := make([]func(Status), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}

// SetEnabled implements [SyncCoordinator].
func (c *syncCoordinator) SetEnabled(ctx context.Context, enabled bool) error {
	cfg, err := c.cfgRepo.GetConfig(ctx)
	if errors.Is(err, store.ErrSyncConfigNotFound) {
		return ErrNotConfigured
	}
	if err != nil {
		return err
	}

	cfg.Enabled = enabled
	if !enabled {
		cfg.NextRetryAt = nil
		cfg.ConsecutiveFailures = 0
		cfg.LastFailureReason = ""
		cfg.LastFailureAt = nil
	}
	if err := c.cfgRepo.SaveConfig(ctx, cfg); err != nil {
		return err
	}

	c.mu.Lock()
	if !enabled {
		c.nextRetryAt = nil
		c.backoff = nil
		c.retryCount = 0
	}
	c.mu.Unlock()
	c.notify()

	c.logger.Info().Bool("enabled", enabled).Msg("sync enabled flag changed")

	return nil
}

// SetCredential implements [SyncCoordinator]. Storing a fresh credential
// clears the auth-required pause and resets the failure streak so the next
// trigger runs immediately.
func (c *syncCoordinator) SetCredential(ctx context.Context, credential string) error {
	cfg, err := c.cfgRepo.GetConfig(ctx)
	if errors.Is(err, store.ErrSyncConfigNotFound) {
		return ErrNotConfigured
	}
	if err != nil {
		return err
	}

	cfg.Credential = credential
	cfg.CredentialExpiry = nil
	if expiry, expErr := utils.CredentialExpiry(credential); expErr == nil {
		cfg.CredentialExpiry = &expiry
	}
	cfg.ConsecutiveFailures = 0
	cfg.LastFailureAt = nil
	cfg.LastFailureReason = ""
	cfg.NextRetryAt = nil

	if err := c.cfgRepo.SaveConfig(ctx, cfg); err != nil {
		return err
	}

	c.remote.SetCredential(credential)

	c.mu.Lock()
	c.authRequired = false
	c.retryCount = 0
	c.nextRetryAt = nil
	c.backoff = nil
	c.mu.Unlock()
	c.notify()

	c.logger.Info().Msg("sync credential refreshed")

	return nil
}

// LastResults implements [SyncCoordinator].
func (c *syncCoordinator) LastResults(n int) []models.SyncResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n <= 0 || len(c.history) == 0 {
		return nil
	}
	if n > len(c.history) {
		n = len(c.history)
	}

	out := make([]models.SyncResult, 0, n)
	for i := len(c.history) - 1; i >= len(c.history)-n; i-- {
		out = append(out, c.history[i])
	}

	return out
}
