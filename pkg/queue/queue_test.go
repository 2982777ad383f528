package queue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashishact/ramble/internal/store"
	"github.com/ashishact/ramble/pkg/eventbus"
)

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	s, err := store.Open(":memory:", "", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s, eventbus.New(), zerolog.Nop(), Options{PollInterval: 10 * time.Millisecond})
}

func TestEnqueue_DefaultsMaxAttemptsAndPriorityValue(t *testing.T) {
	r := newTestRunner(t)
	task, err := r.Enqueue("extract", `{"unitId":"u1"}`, store.PriorityHigh, EnqueueOptions{})
	require.NoError(t, err)

	assert.Equal(t, 5, task.MaxAttempts)
	assert.Equal(t, store.PriorityValue(store.PriorityHigh), task.PriorityValue)
	assert.Equal(t, store.TaskPending, task.Status)
}

func TestEnqueue_DelayPushesExecuteAtIntoTheFuture(t *testing.T) {
	r := newTestRunner(t)
	task, err := r.Enqueue("extract", "{}", store.PriorityNormal, EnqueueOptions{DelayMs: 60_000})
	require.NoError(t, err)
	assert.Greater(t, task.ExecuteAt, time.Now().UnixMilli())
}

func TestRunner_ExecutesHandlerAndMarksCompleted(t *testing.T) {
	r := newTestRunner(t)
	done := make(chan struct{})
	r.RegisterHandler("extract", func(ctx context.Context, task *store.Task, checkpoint func(*store.Checkpoint) error) error {
		close(done)
		return nil
	})

	task, err := r.Enqueue("extract", "{}", store.PriorityNormal, EnqueueOptions{})
	require.NoError(t, err)

	r.Start(context.Background())
	defer r.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler never ran")
	}

	require.Eventually(t, func() bool {
		status, err := r.store.GetTaskStatusSummary()
		require.NoError(t, err)
		return status[store.TaskCompleted] == 1
	}, time.Second, 10*time.Millisecond)

	reloaded, err := r.store.GetTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, store.TaskCompleted, reloaded.Status)
}

func TestRunner_RetriesFailedTaskUntilMaxAttempts(t *testing.T) {
	r := newTestRunner(t)
	var calls int
	attemptSeen := make(chan int, 10)
	r.RegisterHandler("flaky", func(ctx context.Context, task *store.Task, checkpoint func(*store.Checkpoint) error) error {
		calls++
		attemptSeen <- calls
		return fmt.Errorf("boom")
	})

	task, err := r.Enqueue("flaky", "{}", store.PriorityNormal, EnqueueOptions{MaxAttempts: 2})
	require.NoError(t, err)

	r.Start(context.Background())
	defer r.Stop()

	require.Eventually(t, func() bool {
		reloaded, err := r.store.GetTask(task.ID)
		require.NoError(t, err)
		return reloaded.Status == store.TaskFailed
	}, 5*time.Second, 10*time.Millisecond)

	reloaded, err := r.store.GetTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.Attempts)
	require.NotNil(t, reloaded.LastError)
	assert.Contains(t, *reloaded.LastError, "boom")
}

func TestGetStatus_ReflectsPendingCount(t *testing.T) {
	r := newTestRunner(t)
	_, err := r.Enqueue("extract", "{}", store.PriorityNormal, EnqueueOptions{})
	require.NoError(t, err)

	status, err := r.GetStatus()
	require.NoError(t, err)
	assert.Equal(t, 1, status.Counts[store.TaskPending])
}
