package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/taskdeck/taskdeck-sync/internal/logger"
	"github.com/taskdeck/taskdeck-sync/models"
)

type configRepository struct {
	*DB
	logger *logger.Logger
}

func NewConfigRepository(db *DB, logger *logger.Logger) ConfigRepository {
	return &configRepository{
		DB:     db,
		logger: logger,
	}
}

func (r *configRepository) GetConfig(ctx context.Context) (models.SyncConfig, error) {
	log := logger.FromContext(ctx)

	row := r.DB.QueryRowContext(ctx, getSyncConfig)

	var cfg models.SyncConfig
	var clock string
	var credentialExpiry, lastSyncAt, lastFailureAt, nextRetryAt sql.NullTime

	err := row.Scan(
		&cfg.Enabled,
		&cfg.UserID,
		&cfg.DeviceID,
		&cfg.Credential,
		&credentialExpiry,
		&cfg.RemoteEndpoint,
		&cfg.ConflictStrategy,
		&cfg.LastSyncCursor,
		&lastSyncAt,
		&clock,
		&cfg.ConsecutiveFailures,
		&lastFailureAt,
		&cfg.LastFailureReason,
		&nextRetryAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SyncConfig{}, ErrSyncConfigNotFound
	}
	if err != nil {
		log.Err(err).
			Str("func", "configRepository.GetConfig").
			Msg("failed to scan sync config row")
		return models.SyncConfig{}, fmt.Errorf("failed to scan sync config row: %w", err)
	}

	parsed, err := unmarshalClock(clock)
	if err != nil {
		return models.SyncConfig{}, err
	}
	cfg.Clock = parsed

	if credentialExpiry.Valid {
		t := credentialExpiry.Time
		cfg.CredentialExpiry = &t
	}
	if lastSyncAt.Valid {
		t := lastSyncAt.Time
		cfg.LastSyncAt = &t
	}
	if lastFailureAt.Valid {
		t := lastFailureAt.Time
		cfg.LastFailureAt = &t
	}
	if nextRetryAt.Valid {
		t := nextRetryAt.Time
		cfg.NextRetryAt = &t
	}

	return cfg, nil
}

func (r *configRepository) SaveConfig(ctx context.Context, cfg models.SyncConfig) error {
	log := logger.FromContext(ctx)

	clock, err := marshalClock(cfg.Clock)
	if err != nil {
		return err
	}

	_, err = r.DB.ExecContext(ctx, saveSyncConfig,
		cfg.Enabled,
		cfg.UserID,
		cfg.DeviceID,
		cfg.Credential,
		nullableTime(cfg.CredentialExpiry),
		cfg.RemoteEndpoint,
		cfg.ConflictStrategy,
		cfg.LastSyncCursor,
		nullableTime(cfg.LastSyncAt),
		clock,
		cfg.ConsecutiveFailures,
		nullableTime(cfg.LastFailureAt),
		cfg.LastFailureReason,
		nullableTime(cfg.NextRetryAt),
	)
	if err != nil {
		log.Err(err).
			Str("func", "configRepository.SaveConfig").
			Str("device_id", cfg.DeviceID).
			Msg("failed to execute upsert for sync config")
		return fmt.Errorf("failed to save sync config: %w", err)
	}

	return nil
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
