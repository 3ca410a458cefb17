package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/taskdeck/taskdeck-sync/internal/logger"
	"github.com/taskdeck/taskdeck-sync/models"
)

type queueRepository struct {
	*DB
	logger *logger.Logger
}

func NewQueueRepository(db *DB, logger *logger.Logger) QueueRepository {
	return &queueRepository{
		DB:     db,
		logger: logger,
	}
}

func (r *queueRepository) SaveEntry(ctx context.Context, entry models.QueueEntry) error {
	log := logger.FromContext(ctx)

	clock, err := marshalClock(entry.Clock)
	if err != nil {
		return err
	}

	_, err = r.DB.ExecContext(ctx, saveQueueEntry,
		entry.ID,
		entry.TaskID,
		entry.Operation,
		string(entry.Payload),
		clock,
		entry.EnqueuedAt,
		entry.RetryCount,
		entry.LastError,
	)
	if err != nil {
		log.Err(err).
			Str("func", "queueRepository.SaveEntry").
			Str("task_id", entry.TaskID).
			Str("entry_id", entry.ID).
			Msg("failed to execute upsert for queue entry")
		return fmt.Errorf("failed to save queue entry (id=%s): %w", entry.ID, err)
	}

	return nil
}

func (r *queueRepository) GetEntryByTask(ctx context.Context, taskID string) (models.QueueEntry, error) {
	log := logger.FromContext(ctx)

	row := r.DB.QueryRowContext(ctx, getQueueEntryByTask, taskID)

	entry, err := scanQueueEntry(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return models.QueueEntry{}, ErrQueueEntryNotFound
	}
	if err != nil {
		log.Err(err).
			Str("func", "queueRepository.GetEntryByTask").
			Str("task_id", taskID).
			Msg("failed to scan queue entry row")
		return models.QueueEntry{}, fmt.Errorf("failed to scan queue entry row: %w", err)
	}

	return entry, nil
}

func (r *queueRepository) NextBatch(ctx context.Context, limit, maxRetries int) ([]models.QueueEntry, error) {
	log := logger.FromContext(ctx)

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin batch transaction: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, getQueueBatch, maxRetries, limit)
	if err != nil {
		log.Err(err).
			Str("func", "queueRepository.NextBatch").
			Msg("failed to execute query for next outbox batch")
		return nil, fmt.Errorf("failed to query outbox batch: %w", err)
	}

	entries, err := collectQueueEntries(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if _, err = tx.ExecContext(ctx, markQueueEntrySending, entry.ID); err != nil {
			log.Err(err).
				Str("func", "queueRepository.NextBatch").
				Str("entry_id", entry.ID).
				Msg("failed to mark queue entry as in flight")
			return nil, fmt.Errorf("failed to mark queue entry in flight (id=%s): %w", entry.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit batch transaction: %w", err)
	}

	return entries, nil
}

func (r *queueRepository) ReleaseEntries(ctx context.Context, ids []string) error {
	log := logger.FromContext(ctx)

	for _, id := range ids {
		if _, err := r.DB.ExecContext(ctx, releaseQueueEntry, id); err != nil {
			log.Err(err).
				Str("func", "queueRepository.ReleaseEntries").
				Str("entry_id", id).
				Msg("failed to release queue entry")
			return fmt.Errorf("failed to release queue entry (id=%s): %w", id, err)
		}
	}

	return nil
}

func (r *queueRepository) ReleaseAll(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, releaseAllQueueEntries); err != nil {
		return fmt.Errorf("failed to release in-flight queue entries: %w", err)
	}
	return nil
}

func (r *queueRepository) DeleteEntries(ctx context.Context, ids []string) error {
	log := logger.FromContext(ctx)

	if len(ids) == 0 {
		return nil
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin delete transaction: %w", err)
	}
	defer tx.Rollback()

	for _, id := range ids {
		if _, err = tx.ExecContext(ctx, deleteQueueEntry, id); err != nil {
			log.Err(err).
				Str("func", "queueRepository.DeleteEntries").
				Str("entry_id", id).
				Msg("failed to delete queue entry")
			return fmt.Errorf("failed to delete queue entry (id=%s): %w", id, err)
		}
	}

	return tx.Commit()
}

func (r *queueRepository) IncrementRetry(ctx context.Context, id, lastError string) error {
	log := logger.FromContext(ctx)

	res, err := r.DB.ExecContext(ctx, incrementQueueRetry, lastError, id)
	if err != nil {
		log.Err(err).
			Str("func", "queueRepository.IncrementRetry").
			Str("entry_id", id).
			Msg("failed to increment queue entry retry count")
		return fmt.Errorf("failed to increment retry count (id=%s): %w", id, err)
	}

	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrQueueEntryNotFound
	}

	return nil
}

func (r *queueRepository) ResetRetry(ctx context.Context, id string) error {
	log := logger.FromContext(ctx)

	res, err := r.DB.ExecContext(ctx, resetQueueRetry, id)
	if err != nil {
		log.Err(err).
			Str("func", "queueRepository.ResetRetry").
			Str("entry_id", id).
			Msg("failed to reset queue entry retry count")
		return fmt.Errorf("failed to reset retry count (id=%s): %w", id, err)
	}

	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrQueueEntryNotFound
	}

	return nil
}

func (r *queueRepository) CountEntries(ctx context.Context) (int, error) {
	var count int
	if err := r.DB.QueryRowContext(ctx, countQueueEntries).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count queue entries: %w", err)
	}
	return count, nil
}

func (r *queueRepository) TerminalEntries(ctx context.Context, maxRetries int) ([]models.QueueEntry, error) {
	log := logger.FromContext(ctx)

	rows, err := r.DB.QueryContext(ctx, getTerminalQueueEntries, maxRetries)
	if err != nil {
		log.Err(err).
			Str("func", "queueRepository.TerminalEntries").
			Msg("failed to execute query for terminal queue entries")
		return nil, fmt.Errorf("failed to query terminal queue entries: %w", err)
	}
	defer rows.Close()

	return collectQueueEntries(rows)
}

func collectQueueEntries(rows *sql.Rows) ([]models.QueueEntry, error) {
	var entries []models.QueueEntry

	for rows.Next() {
		entry, err := scanQueueEntry(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue entry row: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating queue entry rows: %w", err)
	}

	return entries, nil
}

func scanQueueEntry(scan func(dest ...any) error) (models.QueueEntry, error) {
	var entry models.QueueEntry
	var payload sql.NullString
	var clock string

	err := scan(
		&entry.ID,
		&entry.TaskID,
		&entry.Operation,
		&payload,
		&clock,
		&entry.EnqueuedAt,
		&entry.RetryCount,
		&entry.LastError,
	)
	if err != nil {
		return models.QueueEntry{}, err
	}

	if payload.Valid {
		entry.Payload = json.RawMessage(payload.String)
	}

	parsed, err := unmarshalClock(clock)
	if err != nil {
		return models.QueueEntry{}, err
	}
	entry.Clock = parsed

	return entry, nil
}
