// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/taskdeck/taskdeck-sync/internal/adapter"
	"github.com/taskdeck/taskdeck-sync/internal/config"
	"github.com/taskdeck/taskdeck-sync/internal/crypto"
	"github.com/taskdeck/taskdeck-sync/internal/logger"
	"github.com/taskdeck/taskdeck-sync/internal/mock"
	"github.com/taskdeck/taskdeck-sync/models"
)

// stubEngine is a hand-written SyncEngine double (same import-cycle reason
// as stubQueue).
type stubEngine struct {
	mu      sync.Mutex
	calls   int
	outcome CycleOutcome
	err     error

	started chan struct{}
	block   chan struct{}
}

func (s *stubEngine) RunCycle(context.Context) (CycleOutcome, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.block != nil {
		<-s.block
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outcome, s.err
}

func (s *stubEngine) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func (s *stubEngine) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func newTestCoordinator(t *testing.T, ctrl *gomock.Controller, engine *stubEngine) (*syncCoordinator, *mock.MockConfigRepository, *mock.MockRemoteStore) {
	t.Helper()

	cfgRepo := mock.NewMockConfigRepository(ctrl)
	remote := mock.NewMockRemoteStore(ctrl)

	syncCfg := config.Sync{
		BackoffMin: time.Second,
		BackoffMax: 5 * time.Minute,
	}

	c := NewSyncCoordinator(engine, cfgRepo, remote, syncCfg, logger.Nop()).(*syncCoordinator)

	return c, cfgRepo, remote
}

func allowFailureBookkeeping(cfgRepo *mock.MockConfigRepository) {
	cfgRepo.EXPECT().GetConfig(gomock.Any()).Return(models.SyncConfig{Enabled: true}, nil).AnyTimes()
	cfgRepo.EXPECT().SaveConfig(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
}

func TestSyncCoordinator_RequestSync_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := &stubEngine{outcome: CycleOutcome{Pushed: 2, Pulled: 3}}
	c, cfgRepo, _ := newTestCoordinator(t, ctrl, engine)

	cfgRepo.EXPECT().GetConfig(gomock.Any()).Return(models.SyncConfig{ConsecutiveFailures: 2}, nil)
	cfgRepo.EXPECT().SaveConfig(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, saved models.SyncConfig) error {
			assert.Zero(t, saved.ConsecutiveFailures, "success resets the streak")
			assert.Nil(t, saved.NextRetryAt)
			return nil
		})

	result := c.RequestSync(context.Background(), models.TriggerUser)

	assert.Equal(t, models.SyncSuccess, result.Status)
	assert.Equal(t, 2, result.PushedCount)
	assert.Equal(t, 3, result.PulledCount)

	st := c.GetStatus()
	assert.False(t, st.IsRunning)
	assert.Zero(t, st.RetryCount)
	require.NotNil(t, st.LastResult)
	assert.Equal(t, models.SyncSuccess, st.LastResult.Status)
}

func TestSyncCoordinator_RequestSync_ConflictStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := &stubEngine{outcome: CycleOutcome{Pulled: 1, ConflictsResolved: 1}}
	c, cfgRepo, _ := newTestCoordinator(t, ctrl, engine)
	allowFailureBookkeeping(cfgRepo)

	result := c.RequestSync(context.Background(), models.TriggerUser)

	assert.Equal(t, models.SyncConflict, result.Status)
	assert.Equal(t, 1, result.ConflictsResolved)
}

func TestSyncCoordinator_RequestSync_AlreadyRunning(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := &stubEngine{
		started: make(chan struct{}),
		block:   make(chan struct{}),
	}
	c, cfgRepo, _ := newTestCoordinator(t, ctrl, engine)
	allowFailureBookkeeping(cfgRepo)

	done := make(chan models.SyncResult, 1)
	go func() {
		done <- c.RequestSync(context.Background(), models.TriggerUser)
	}()
	<-engine.started

	second := c.RequestSync(context.Background(), models.TriggerUser)
	assert.Equal(t, models.SyncAlreadyRunning, second.Status)
	assert.Equal(t, 1, engine.callCount(), "the refused request never reaches the engine")
	assert.Equal(t, 1, c.GetStatus().PendingRequests)

	close(engine.block)
	first := <-done
	assert.Equal(t, models.SyncSuccess, first.Status)
	assert.Zero(t, c.GetStatus().PendingRequests)
}

func TestSyncCoordinator_TransientFailures_BackoffGrows(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := &stubEngine{err: fmt.Errorf("push: %w", adapter.ErrServiceUnavailable)}
	c, cfgRepo, _ := newTestCoordinator(t, ctrl, engine)
	allowFailureBookkeeping(cfgRepo)

	now := time.UnixMilli(9_000_000)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	var retryTimes []time.Time
	for i := 1; i <= 3; i++ {
		result := c.RequestSync(ctx, models.TriggerUser)
		assert.Equal(t, models.SyncError, result.Status)

		st := c.GetStatus()
		assert.Equal(t, i, st.RetryCount)
		require.NotNil(t, st.NextRetryAt)
		assert.True(t, st.NextRetryAt.After(now))
		assert.False(t, st.NextRetryAt.After(now.Add(5*time.Minute)), "delay is capped")
		retryTimes = append(retryTimes, *st.NextRetryAt)
	}

	// Exponential growth shows through the jitter: the third delay is at
	// least 3.5s, the first at most 1.5s.
	first := retryTimes[0].Sub(now)
	third := retryTimes[2].Sub(now)
	assert.Greater(t, third, first)
}

func TestSyncCoordinator_BackoffGate(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := &stubEngine{err: errors.New("connection refused")}
	c, cfgRepo, _ := newTestCoordinator(t, ctrl, engine)
	allowFailureBookkeeping(cfgRepo)

	now := time.UnixMilli(9_000_000)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	c.RequestSync(ctx, models.TriggerAuto)
	require.NotNil(t, c.GetStatus().NextRetryAt)
	callsAfterFailure := engine.callCount()

	// An auto trigger inside the backoff window is suppressed without
	// touching the engine.
	suppressed := c.RequestSync(ctx, models.TriggerAuto)
	assert.Equal(t, models.SyncError, suppressed.Status)
	assert.Equal(t, ErrBackoffActive.Error(), suppressed.Error)
	assert.Equal(t, callsAfterFailure, engine.callCount())

	// A user trigger goes straight through.
	engine.setErr(nil)
	result := c.RequestSync(ctx, models.TriggerUser)
	assert.Equal(t, models.SyncSuccess, result.Status)
	assert.Nil(t, c.GetStatus().NextRetryAt)

	// Once the marker has passed, auto triggers flow again.
	engine.setErr(errors.New("connection refused"))
	c.RequestSync(ctx, models.TriggerAuto)
	require.NotNil(t, c.GetStatus().NextRetryAt)
	now = c.GetStatus().NextRetryAt.Add(time.Millisecond)
	engine.setErr(nil)
	result = c.RequestSync(ctx, models.TriggerAuto)
	assert.Equal(t, models.SyncSuccess, result.Status)
}

func TestSyncCoordinator_AuthFailure_PausesUntilCredential(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := &stubEngine{err: fmt.Errorf("push: %w", adapter.ErrUnauthorized)}
	c, cfgRepo, remote := newTestCoordinator(t, ctrl, engine)
	allowFailureBookkeeping(cfgRepo)

	c.RequestSync(context.Background(), models.TriggerUser)

	st := c.GetStatus()
	assert.True(t, st.AuthRequired)
	assert.Nil(t, st.NextRetryAt, "auth failures are not auto-retried")

	remote.EXPECT().SetCredential("fresh-token")

	require.NoError(t, c.SetCredential(context.Background(), "fresh-token"))
	assert.False(t, c.GetStatus().AuthRequired)
}

func TestSyncCoordinator_PermanentFailure_NoRetrySchedule(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := &stubEngine{err: fmt.Errorf("decrypt remote task: %w", crypto.ErrDecryptionFailed)}
	c, cfgRepo, _ := newTestCoordinator(t, ctrl, engine)
	allowFailureBookkeeping(cfgRepo)

	result := c.RequestSync(context.Background(), models.TriggerUser)

	assert.Equal(t, models.SyncError, result.Status)
	st := c.GetStatus()
	assert.Nil(t, st.NextRetryAt)
	assert.Zero(t, st.RetryCount)
	assert.False(t, st.AuthRequired)
}

func TestSyncCoordinator_Subscribe(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := &stubEngine{}
	c, cfgRepo, _ := newTestCoordinator(t, ctrl, engine)
	allowFailureBookkeeping(cfgRepo)

	var mu sync.Mutex
	var seen []bool
	unsubscribe := c.Subscribe(func(st Status) {
		mu.Lock()
		seen = append(seen, st.IsRunning)
		mu.Unlock()
	})

	c.RequestSync(context.Background(), models.TriggerUser)

	mu.Lock()
	require.Len(t, seen, 2)
	assert.True(t, seen[0], "first transition: cycle started")
	assert.False(t, seen[1], "second transition: cycle finished")
	mu.Unlock()

	unsubscribe()
	c.RequestSync(context.Background(), models.TriggerUser)

	mu.Lock()
	assert.Len(t, seen, 2, "no deliveries after unsubscribe")
	mu.Unlock()
}

func TestSyncCoordinator_LastResults(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := &stubEngine{}
	c, cfgRepo, _ := newTestCoordinator(t, ctrl, engine)
	allowFailureBookkeeping(cfgRepo)
	ctx := context.Background()

	engine.outcome = CycleOutcome{Pushed: 1}
	c.RequestSync(ctx, models.TriggerUser)
	engine.outcome = CycleOutcome{Pushed: 2}
	c.RequestSync(ctx, models.TriggerUser)
	engine.outcome = CycleOutcome{Pushed: 3}
	c.RequestSync(ctx, models.TriggerUser)

	results := c.LastResults(2)
	require.Len(t, results, 2)
	assert.Equal(t, 3, results[0].PushedCount, "newest first")
	assert.Equal(t, 2, results[1].PushedCount)

	assert.Len(t, c.LastResults(10), 3)
	assert.Nil(t, c.LastResults(0))
}

func TestSyncCoordinator_SetEnabled_Disable_ClearsRetry(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := &stubEngine{err: errors.New("connection refused")}
	c, cfgRepo, _ := newTestCoordinator(t, ctrl, engine)
	allowFailureBookkeeping(cfgRepo)

	c.RequestSync(context.Background(), models.TriggerUser)
	require.NotNil(t, c.GetStatus().NextRetryAt)

	require.NoError(t, c.SetEnabled(context.Background(), false))
	assert.Nil(t, c.GetStatus().NextRetryAt)
	assert.Zero(t, c.GetStatus().RetryCount)
}

func TestSyncCoordinator_DisabledCycle_IsNotAFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	engine := &stubEngine{err: ErrSyncDisabled}
	c, _, _ := newTestCoordinator(t, ctrl, engine)

	result := c.RequestSync(context.Background(), models.TriggerAuto)

	require.Equal(t, models.SyncError, result.Status)
	assert.Equal(t, ErrSyncDisabled.Error(), result.Error)

	st := c.GetStatus()
	assert.Nil(t, st.NextRetryAt, "a refused cycle must not schedule a retry")
	assert.Zero(t, st.RetryCount)
}
