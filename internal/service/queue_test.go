// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/taskdeck/taskdeck-sync/internal/config"
	"github.com/taskdeck/taskdeck-sync/internal/logger"
	"github.com/taskdeck/taskdeck-sync/internal/mock"
	"github.com/taskdeck/taskdeck-sync/internal/store"
	"github.com/taskdeck/taskdeck-sync/models"
)

func newTestQueue(t *testing.T, ctrl *gomock.Controller) (SyncQueue, *mock.MockQueueRepository) {
	t.Helper()

	repo := mock.NewMockQueueRepository(ctrl)
	repo.EXPECT().ReleaseAll(gomock.Any()).Return(nil)

	q, err := NewSyncQueue(repo, config.Sync{BatchSize: 100, MaxRetries: 5}, logger.Nop())
	require.NoError(t, err)

	return q, repo
}

func TestSyncQueue_Enqueue_Fresh(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	q, repo := newTestQueue(t, ctrl)
	ctx := context.Background()

	clock := models.VectorClock{"dev-a": 1}
	payload := json.RawMessage(`{"title":"buy milk"}`)

	repo.EXPECT().GetEntryByTask(ctx, "task-1").Return(models.QueueEntry{}, store.ErrQueueEntryNotFound)
	repo.EXPECT().SaveEntry(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, entry models.QueueEntry) error {
		assert.NotEmpty(t, entry.ID)
		assert.Equal(t, "task-1", entry.TaskID)
		assert.Equal(t, models.OpCreate, entry.Operation)
		assert.Equal(t, payload, entry.Payload)
		assert.Equal(t, clock, entry.Clock)
		assert.False(t, entry.EnqueuedAt.IsZero())
		return nil
	})

	require.NoError(t, q.Enqueue(ctx, models.OpCreate, "task-1", payload, clock))
}

// The clock stored on the entry is a snapshot: mutating the caller's clock
// after Enqueue must not change what was recorded.
func TestSyncQueue_Enqueue_ClockSnapshot(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	q, repo := newTestQueue(t, ctrl)
	ctx := context.Background()

	clock := models.VectorClock{"dev-a": 1}

	var saved models.QueueEntry
	repo.EXPECT().GetEntryByTask(ctx, "task-1").Return(models.QueueEntry{}, store.ErrQueueEntryNotFound)
	repo.EXPECT().SaveEntry(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, entry models.QueueEntry) error {
		saved = entry
		return nil
	})

	require.NoError(t, q.Enqueue(ctx, models.OpUpdate, "task-1", nil, clock))

	clock["dev-a"] = 42
	assert.Equal(t, int64(1), saved.Clock["dev-a"])
}

func TestSyncQueue_Enqueue_CoalesceUpdateOverUpdate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	q, repo := newTestQueue(t, ctrl)
	ctx := context.Background()

	enqueuedAt := time.Now().Add(-time.Minute)
	pending := models.QueueEntry{
		ID:         "entry-1",
		TaskID:     "task-1",
		Operation:  models.OpUpdate,
		Payload:    json.RawMessage(`{"title":"v1"}`),
		Clock:      models.VectorClock{"dev-a": 1},
		EnqueuedAt: enqueuedAt,
	}

	repo.EXPECT().GetEntryByTask(ctx, "task-1").Return(pending, nil)
	repo.EXPECT().SaveEntry(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, entry models.QueueEntry) error {
		assert.Equal(t, "entry-1", entry.ID, "pending entry is rewritten, not duplicated")
		assert.Equal(t, models.OpUpdate, entry.Operation)
		assert.JSONEq(t, `{"title":"v2"}`, string(entry.Payload))
		assert.Equal(t, models.VectorClock{"dev-a": 2}, entry.Clock)
		assert.Equal(t, enqueuedAt, entry.EnqueuedAt, "earliest enqueue time survives")
		return nil
	})

	err := q.Enqueue(ctx, models.OpUpdate, "task-1",
		json.RawMessage(`{"title":"v2"}`), models.VectorClock{"dev-a": 2})
	require.NoError(t, err)
}

func TestSyncQueue_Enqueue_CoalesceUpdateOverCreate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	q, repo := newTestQueue(t, ctrl)
	ctx := context.Background()

	pending := models.QueueEntry{
		ID:        "entry-1",
		TaskID:    "task-1",
		Operation: models.OpCreate,
		Payload:   json.RawMessage(`{"title":"v1"}`),
	}

	repo.EXPECT().GetEntryByTask(ctx, "task-1").Return(pending, nil)
	repo.EXPECT().SaveEntry(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, entry models.QueueEntry) error {
		assert.Equal(t, models.OpCreate, entry.Operation, "the remote has no record to update yet")
		assert.JSONEq(t, `{"title":"v2"}`, string(entry.Payload))
		return nil
	})

	err := q.Enqueue(ctx, models.OpUpdate, "task-1",
		json.RawMessage(`{"title":"v2"}`), models.VectorClock{"dev-a": 2})
	require.NoError(t, err)
}

func TestSyncQueue_Enqueue_DeleteCancelsPendingCreate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	q, repo := newTestQueue(t, ctrl)
	ctx := context.Background()

	pending := models.QueueEntry{ID: "entry-1", TaskID: "task-1", Operation: models.OpCreate}

	repo.EXPECT().GetEntryByTask(ctx, "task-1").Return(pending, nil)
	repo.EXPECT().DeleteEntries(ctx, []string{"entry-1"}).Return(nil)

	require.NoError(t, q.Enqueue(ctx, models.OpDelete, "task-1", nil, models.VectorClock{"dev-a": 2}))
}

func TestSyncQueue_Enqueue_DeleteOverUpdate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	q, repo := newTestQueue(t, ctrl)
	ctx := context.Background()

	pending := models.QueueEntry{
		ID:        "entry-1",
		TaskID:    "task-1",
		Operation: models.OpUpdate,
		Payload:   json.RawMessage(`{"title":"v1"}`),
	}

	repo.EXPECT().GetEntryByTask(ctx, "task-1").Return(pending, nil)
	repo.EXPECT().SaveEntry(ctx, gomock.Any()).DoAndReturn(func(_ context.Context, entry models.QueueEntry) error {
		assert.Equal(t, models.OpDelete, entry.Operation)
		assert.Nil(t, entry.Payload, "tombstones carry no payload")
		return nil
	})

	require.NoError(t, q.Enqueue(ctx, models.OpDelete, "task-1", nil, models.VectorClock{"dev-a": 2}))
}

func TestSyncQueue_MarkFailed_RecordsCause(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	q, repo := newTestQueue(t, ctrl)
	ctx := context.Background()

	repo.EXPECT().IncrementRetry(ctx, "entry-1", "boom").Return(nil)

	require.NoError(t, q.MarkFailed(ctx, "entry-1", errors.New("boom")))
}

func TestSyncQueue_NextBatch_UsesConfiguredLimits(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	q, repo := newTestQueue(t, ctrl)
	ctx := context.Background()

	repo.EXPECT().NextBatch(ctx, 100, 5).Return([]models.QueueEntry{{ID: "entry-1"}}, nil)

	batch, err := q.NextBatch(ctx)
	require.NoError(t, err)
	assert.Len(t, batch, 1)
}

func TestNewSyncQueue_ReleasesStaleInFlight(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mock.NewMockQueueRepository(ctrl)
	repo.EXPECT().ReleaseAll(gomock.Any()).Return(errors.New("disk gone"))

	_, err := NewSyncQueue(repo, config.Sync{BatchSize: 10, MaxRetries: 3}, logger.Nop())
	require.Error(t, err)
}
