// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"sync"
	"time"

	"github.com/taskdeck/taskdeck-sync/internal/config"
	"github.com/taskdeck/taskdeck-sync/internal/logger"
	"github.com/taskdeck/taskdeck-sync/models"
)

type backgroundSync struct {
	coordinator SyncCoordinator
	interval    time.Duration
	debounce    time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// mutations carries at most one pending signal; a burst of edits
	// collapses into it.
	mutations chan struct{}

	logger *logger.Logger
}

// NewBackgroundSync builds the interval scheduler around the coordinator.
func NewBackgroundSync(coordinator SyncCoordinator, syncCfg config.Sync, log *logger.Logger) BackgroundSync {
	return &backgroundSync{
		coordinator: coordinator,
		interval:    syncCfg.Interval,
		debounce:    syncCfg.Debounce,
		mutations:   make(chan struct{}, 1),
		logger:      log,
	}
}

// Start implements [BackgroundSync].
func (b *backgroundSync) Start(ctx context.Context) {
	b.Stop()

	runCtx, cancel := context.WithCancel(ctx)

	b.mu.Lock()
	b.cancel = cancel
	b.mu.Unlock()

	b.wg.Add(1)
	go b.run(runCtx)

	b.logger.Info().
		Dur("interval", b.interval).
		Dur("debounce", b.debounce).
		Msg("background sync started")
}

// run is the scheduler loop. The interval ticker and the mutation debounce
// are independent sources of auto triggers; the coordinator's single-flight
// and backoff gates decide whether any given trigger actually runs.
func (b *backgroundSync) run(ctx context.Context) {
	defer b.wg.Done()

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	debounce := time.NewTimer(b.debounce)
	if !debounce.Stop() {
		<-debounce.C
	}
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-b.mutations:
			// Each fresh mutation pushes the deadline out again, so a
			// burst of edits produces one cycle after the burst settles.
			if !debounce.Stop() {
				select {
				case <-debounce.C:
				default:
				}
			}
			debounce.Reset(b.debounce)

		case <-debounce.C:
			b.trigger(ctx, "mutation debounce")

		case <-ticker.C:
			b.trigger(ctx, "interval")
		}
	}
}

func (b *backgroundSync) trigger(ctx context.Context, reason string) {
	result := b.coordinator.RequestSync(ctx, models.TriggerAuto)

	b.logger.Debug().
		Str("reason", reason).
		Str("status", string(result.Status)).
		Msg("auto sync trigger")
}

// NotifyMutation implements [BackgroundSync]. Non-blocking: when a signal is
// already pending the new one folds into it.
func (b *backgroundSync) NotifyMutation() {
	select {
	case b.mutations <- struct{}{}:
	default:
	}
}

// Stop implements [BackgroundSync].
func (b *backgroundSync) Stop() {
	b.mu.Lock()
	cancel := b.cancel
	b.cancel = nil
	b.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	b.wg.Wait()

	b.logger.Info().Msg("background sync stopped")
}
