package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/taskdeck/taskdeck-sync/internal/logger"
	"github.com/taskdeck/taskdeck-sync/internal/store"
	"github.com/taskdeck/taskdeck-sync/models"
)

type taskService struct {
	tasks   store.TaskRepository
	cfgRepo store.ConfigRepository
	queue   SyncQueue

	// notify pokes the background scheduler's mutation debounce. Nil when
	// background sync is not wired (tests, one-shot CLI use).
	notify func()

	now func() time.Time

	logger *logger.Logger
}

// NewTaskService wires the mutation entry point. notify may be nil.
func NewTaskService(
	tasks store.TaskRepository,
	cfgRepo store.ConfigRepository,
	queue SyncQueue,
	notify func(),
	log *logger.Logger,
) TaskService {
	return &taskService{
		tasks:   tasks,
		cfgRepo: cfgRepo,
		queue:   queue,
		notify:  notify,
		now:     time.Now,
		logger:  log,
	}
}

// CreateTask implements [TaskService].
func (s *taskService) CreateTask(ctx context.Context, id string, payload json.RawMessage) (models.Task, error) {
	deviceID, err := s.deviceID(ctx)
	if err != nil {
		return models.Task{}, err
	}

	task := models.Task{
		ID:        id,
		Payload:   payload,
		Clock:     models.VectorClock{}.Increment(deviceID),
		UpdatedAt: s.now(),
	}

	if err := s.tasks.SaveTask(ctx, task); err != nil {
		return models.Task{}, fmt.Errorf("save task %s: %w", id, err)
	}
	if err := s.queue.Enqueue(ctx, models.OpCreate, task.ID, task.Payload, task.Clock); err != nil {
		return models.Task{}, fmt.Errorf("enqueue create of task %s: %w", id, err)
	}

	s.mutated()

	return task, nil
}

// UpdateTask implements [TaskService].
func (s *taskService) UpdateTask(ctx context.Context, id string, payload json.RawMessage) (models.Task, error) {
	deviceID, err := s.deviceID(ctx)
	if err != nil {
		return models.Task{}, err
	}

	task, err := s.tasks.GetTask(ctx, id)
	if err != nil {
		return models.Task{}, err
	}
	if task.Deleted {
		return models.Task{}, ErrTaskDeleted
	}

	task.Payload = payload
	task.Clock = task.Clock.Increment(deviceID)
	task.UpdatedAt = s.now()

	if err := s.tasks.SaveTask(ctx, task); err != nil {
		return models.Task{}, fmt.Errorf("save task %s: %w", id, err)
	}
	if err := s.queue.Enqueue(ctx, models.OpUpdate, task.ID, task.Payload, task.Clock); err != nil {
		return models.Task{}, fmt.Errorf("enqueue update of task %s: %w", id, err)
	}

	s.mutated()

	return task, nil
}

// DeleteTask implements [TaskService]. Deletion is a tombstone, not a row
// removal: the tombstone has to reach every other device before it can be
// forgotten.
func (s *taskService) DeleteTask(ctx context.Context, id string) error {
	deviceID, err := s.deviceID(ctx)
	if err != nil {
		return err
	}

	task, err := s.tasks.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if task.Deleted {
		return nil
	}

	task.Payload = nil
	task.Deleted = true
	task.Clock = task.Clock.Increment(deviceID)
	task.UpdatedAt = s.now()

	if err := s.tasks.SaveTask(ctx, task); err != nil {
		return fmt.Errorf("save tombstone %s: %w", id, err)
	}
	if err := s.queue.Enqueue(ctx, models.OpDelete, task.ID, nil, task.Clock); err != nil {
		return fmt.Errorf("enqueue delete of task %s: %w", id, err)
	}

	s.mutated()

	return nil
}

func (s *taskService) deviceID(ctx context.Context) (string, error) {
	cfg, err := s.cfgRepo.GetConfig(ctx)
	if errors.Is(err, store.ErrSyncConfigNotFound) {
		return "", ErrNotConfigured
	}
	if err != nil {
		return "", fmt.Errorf("load sync config: %w", err)
	}

	return cfg.DeviceID, nil
}

func (s *taskService) mutated() {
	if s.notify != nil {
		s.notify()
	}
}
