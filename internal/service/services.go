// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/taskdeck/taskdeck-sync/internal/adapter"
	"github.com/taskdeck/taskdeck-sync/internal/config"
	"github.com/taskdeck/taskdeck-sync/internal/crypto"
	"github.com/taskdeck/taskdeck-sync/internal/logger"
	"github.com/taskdeck/taskdeck-sync/internal/store"
	"github.com/taskdeck/taskdeck-sync/internal/utils"
	"github.com/taskdeck/taskdeck-sync/models"
)

// Services bundles every service of the sync engine behind one constructor.
type Services struct {
	Tasks       TaskService
	Queue       SyncQueue
	Engine      SyncEngine
	Coordinator SyncCoordinator
	Health      HealthMonitor
	Background  BackgroundSync
}

// NewServices wires the full service graph over the given storages, remote
// adapter, and cipher. It also runs first-time initialisation: the single
// sync-config record is created on first run with a freshly generated device
// id, and that id never changes afterwards.
func NewServices(
	ctx context.Context,
	storages *store.Storages,
	remote adapter.RemoteStore,
	cipher crypto.CipherService,
	cfg *config.StructuredConfig,
	log *logger.Logger,
) (*Services, error) {
	syncCfg, err := ensureSyncConfig(ctx, storages.Config, cfg)
	if err != nil {
		return nil, err
	}
	remote.SetCredential(syncCfg.Credential)

	queue, err := NewSyncQueue(storages.Queue, cfg.Sync, log.GetChildLogger())
	if err != nil {
		return nil, fmt.Errorf("init sync queue: %w", err)
	}

	engine := NewSyncEngine(storages.Tasks, storages.Config, queue, remote, cipher, log.GetChildLogger())
	coordinator := NewSyncCoordinator(engine, storages.Config, remote, cfg.Sync, log.GetChildLogger())
	background := NewBackgroundSync(coordinator, cfg.Sync, log.GetChildLogger())
	health := NewHealthMonitor(storages.Config, queue, cfg.Health, log.GetChildLogger())
	tasks := NewTaskService(storages.Tasks, storages.Config, queue, background.NotifyMutation, log.GetChildLogger())

	return &Services{
		Tasks:       tasks,
		Queue:       queue,
		Engine:      engine,
		Coordinator: coordinator,
		Health:      health,
		Background:  background,
	}, nil
}

// ensureSyncConfig loads the persisted sync-config record, creating it on
// first run. Settings that come from the runtime configuration (account,
// endpoint) are refreshed on every start; the device id is minted exactly
// once.
func ensureSyncConfig(ctx context.Context, repo store.ConfigRepository, cfg *config.StructuredConfig) (models.SyncConfig, error) {
	syncCfg, err := repo.GetConfig(ctx)
	if errors.Is(err, store.ErrSyncConfigNotFound) {
		syncCfg = models.SyncConfig{
			DeviceID:         utils.NewUUIDGenerator().Generate(),
			UserID:           cfg.App.UserID,
			RemoteEndpoint:   cfg.Adapter.Endpoint,
			ConflictStrategy: models.StrategyLastWriteWins,
			Clock:            models.VectorClock{},
		}
		if saveErr := repo.SaveConfig(ctx, syncCfg); saveErr != nil {
			return models.SyncConfig{}, fmt.Errorf("initialise sync config: %w", saveErr)
		}
		return syncCfg, nil
	}
	if err != nil {
		return models.SyncConfig{}, fmt.Errorf("load sync config: %w", err)
	}

	changed := false
	if cfg.App.UserID != "" && cfg.App.UserID != syncCfg.UserID {
		syncCfg.UserID = cfg.App.UserID
		changed = true
	}
	if cfg.Adapter.Endpoint != "" && cfg.Adapter.Endpoint != syncCfg.RemoteEndpoint {
		syncCfg.RemoteEndpoint = cfg.Adapter.Endpoint
		changed = true
	}
	if changed {
		if err := repo.SaveConfig(ctx, syncCfg); err != nil {
			return models.SyncConfig{}, fmt.Errorf("refresh sync config: %w", err)
		}
	}

	return syncCfg, nil
}
