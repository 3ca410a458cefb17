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

type taskRepository struct {
	*DB
	logger *logger.Logger
}

func NewTaskRepository(db *DB, logger *logger.Logger) TaskRepository {
	return &taskRepository{
		DB:     db,
		logger: logger,
	}
}

func (r *taskRepository) SaveTask(ctx context.Context, task models.Task) error {
	log := logger.FromContext(ctx)

	clock, err := marshalClock(task.Clock)
	if err != nil {
		return err
	}

	_, err = r.DB.ExecContext(ctx, saveTask,
		task.ID,
		string(task.Payload),
		clock,
		task.UpdatedAt,
		task.Deleted,
	)
	if err != nil {
		log.Err(err).
			Str("func", "taskRepository.SaveTask").
			Str("task_id", task.ID).
			Msg("failed to execute upsert for task")
		return fmt.Errorf("failed to save task (id=%s): %w", task.ID, err)
	}

	return nil
}

func (r *taskRepository) GetTask(ctx context.Context, id string) (models.Task, error) {
	log := logger.FromContext(ctx)

	row := r.DB.QueryRowContext(ctx, getTask, id)

	task, err := scanTask(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, ErrTaskNotFound
	}
	if err != nil {
		log.Err(err).
			Str("func", "taskRepository.GetTask").
			Str("task_id", id).
			Msg("failed to scan task row")
		return models.Task{}, fmt.Errorf("failed to scan task row: %w", err)
	}

	return task, nil
}

func (r *taskRepository) GetAllTasks(ctx context.Context) ([]models.Task, error) {
	log := logger.FromContext(ctx)

	rows, err := r.DB.QueryContext(ctx, getAllTasks)
	if err != nil {
		log.Err(err).
			Str("func", "taskRepository.GetAllTasks").
			Msg("failed to execute query for getting all tasks")
		return nil, fmt.Errorf("failed to query all tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task

	for rows.Next() {
		task, scanErr := scanTask(rows.Scan)
		if scanErr != nil {
			log.Err(scanErr).
				Str("func", "taskRepository.GetAllTasks").
				Msg("failed to scan task row")
			return nil, fmt.Errorf("failed to scan task row: %w", scanErr)
		}
		tasks = append(tasks, task)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		log.Err(rowsErr).
			Str("func", "taskRepository.GetAllTasks").
			Msg("error occurred during rows iteration")
		return nil, fmt.Errorf("error iterating task rows: %w", rowsErr)
	}

	return tasks, nil
}

func scanTask(scan func(dest ...any) error) (models.Task, error) {
	var task models.Task
	var payload, clock string

	if err := scan(&task.ID, &payload, &clock, &task.UpdatedAt, &task.Deleted); err != nil {
		return models.Task{}, err
	}

	task.Payload = json.RawMessage(payload)

	parsed, err := unmarshalClock(clock)
	if err != nil {
		return models.Task{}, err
	}
	task.Clock = parsed

	return task, nil
}
