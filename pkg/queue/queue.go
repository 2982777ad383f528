// Package queue implements the durable, resumable, priority Task queue
// (spec.md §4.B): client-resident work (extraction, observation,
// decay scans) survives process restarts because every task and its
// checkpoint live in internal/store, not in memory.
package queue

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/ashishact/ramble/internal/ids"
	"github.com/ashishact/ramble/internal/store"
	"github.com/ashishact/ramble/pkg/eventbus"
	"github.com/rs/zerolog"
)

// Handler executes one task attempt. It may call Checkpoint to record
// resumable progress before returning an error, so a retried attempt
// can resume past completed steps rather than redoing them.
type Handler func(ctx context.Context, task *store.Task, checkpoint func(*store.Checkpoint) error) error

// Runner polls the Store for ready tasks and dispatches them to
// registered handlers, the client-resident analogue of a worker pool
// (GoKitt's fire-and-forget `go func(){...}()` chat pattern, made
// durable and resumable instead of best-effort).
type Runner struct {
	store *store.Store
	bus   *eventbus.Bus
	log   zerolog.Logger

	pollInterval time.Duration
	batchSize    int
	staleAfterMs int64

	mu       sync.Mutex
	handlers map[string]Handler
	running  bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// Options configures a Runner's poll cadence (spec.md §4.B defaults
// live in pkg/config).
type Options struct {
	PollInterval time.Duration
	BatchSize    int
	StaleAfterMs int64
}

// New constructs a Runner bound to s. Call RegisterHandler for every
// task type before Start.
func New(s *store.Store, bus *eventbus.Bus, log zerolog.Logger, opts Options) *Runner {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 500 * time.Millisecond
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.StaleAfterMs <= 0 {
		opts.StaleAfterMs = 5 * 60 * 1000
	}
	return &Runner{
		store:        s,
		bus:          bus,
		log:          log,
		pollInterval: opts.PollInterval,
		batchSize:    opts.BatchSize,
		staleAfterMs: opts.StaleAfterMs,
		handlers:     make(map[string]Handler),
	}
}

// RegisterHandler binds taskType to the function that executes it.
func (r *Runner) RegisterHandler(taskType string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[taskType] = h
}

// Enqueue records a new Task, defaulting its priority weight, backoff
// config and executeAt per spec.md §4.B.
func (r *Runner) Enqueue(taskType string, payload string, priority store.TaskPriority, opts EnqueueOptions) (*store.Task, error) {
	now := time.Now().UnixMilli()
	executeAt := now
	if opts.DelayMs > 0 {
		executeAt = now + opts.DelayMs
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}

	t := &store.Task{
		ID:            ids.New(),
		TaskType:      taskType,
		Payload:       payload,
		Status:        store.TaskPending,
		Priority:      priority,
		PriorityValue: store.PriorityValue(priority),
		MaxAttempts:   maxAttempts,
		BackoffConfig: store.DefaultBackoffConfig(),
		CreatedAt:     now,
		ExecuteAt:     executeAt,
		GroupID:       opts.GroupID,
		DependsOn:     opts.DependsOn,
		SessionID:     opts.SessionID,
	}
	if err := r.store.EnqueueTask(t); err != nil {
		return nil, err
	}
	return t, nil
}

// EnqueueOptions customizes a single Enqueue call.
type EnqueueOptions struct {
	DelayMs     int64
	MaxAttempts int
	GroupID     *string
	DependsOn   *string
	SessionID   *string
}

// Start begins the poll loop on its own goroutine. Safe to call once;
// a second call is a no-op.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true
	r.done = make(chan struct{})
	r.mu.Unlock()

	go r.loop(loopCtx)
}

// Stop halts the poll loop and waits for the current iteration to
// finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	done := r.done
	r.running = false
	r.mu.Unlock()

	cancel()
	<-done
}

func (r *Runner) loop(ctx context.Context) {
	defer close(r.done)
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	now := time.Now().UnixMilli()

	if n, err := r.store.ReclaimStaleTasks(now - r.staleAfterMs); err != nil {
		r.log.Error().Err(err).Msg("reclaim stale tasks failed")
	} else if n > 0 {
		r.log.Warn().Int("count", n).Msg("reclaimed stale tasks")
	}

	tasks, err := r.store.DequeueReady(r.batchSize, now)
	if err != nil {
		r.log.Error().Err(err).Msg("dequeue failed")
		return
	}

	for _, t := range tasks {
		r.execute(ctx, t)
	}
}

func (r *Runner) execute(ctx context.Context, t *store.Task) {
	r.mu.Lock()
	h, ok := r.handlers[t.TaskType]
	r.mu.Unlock()
	if !ok {
		r.fail(t, fmt.Errorf("queue: no handler registered for task type %q", t.TaskType))
		return
	}

	checkpoint := func(cp *store.Checkpoint) error {
		return r.store.SaveCheckpoint(t.ID, cp)
	}

	if err := h(ctx, t, checkpoint); err != nil {
		r.fail(t, err)
		return
	}

	now := time.Now().UnixMilli()
	t.Status = store.TaskCompleted
	t.CompletedAt = &now
	if err := r.store.UpdateTaskStatus(t); err != nil {
		r.log.Error().Err(err).Str("taskId", t.ID).Msg("failed to record task completion")
		return
	}
	r.bus.Publish(eventbus.TopicTaskCompleted, t)
}

func (r *Runner) fail(t *store.Task, cause error) {
	now := time.Now().UnixMilli()
	t.Attempts++
	errStr := cause.Error()
	t.LastError = &errStr
	t.LastErrorAt = &now

	if t.Attempts >= t.MaxAttempts {
		t.Status = store.TaskFailed
		t.CompletedAt = &now
	} else {
		t.Status = store.TaskPending
		delay := backoffDelay(t.BackoffConfig, t.Attempts)
		next := now + delay
		t.NextRetryAt = &next
		t.ExecuteAt = next
	}

	if err := r.store.UpdateTaskStatus(t); err != nil {
		r.log.Error().Err(err).Str("taskId", t.ID).Msg("failed to record task failure")
		return
	}
	r.bus.Publish(eventbus.TopicTaskFailed, t)
}

// backoffDelay computes the exponential backoff delay with jitter for
// the given attempt count, per spec.md §4.B and store.DefaultBackoffConfig:
// base · multiplier^attempts, capped at maxDelay, then inflated by a
// non-negative jitter of up to jitterFactor so retries never arrive
// earlier than the unjittered delay (spec.md S6, invariant #4).
func backoffDelay(cfg store.BackoffConfig, attempt int) int64 {
	delay := float64(cfg.BaseDelayMs) * math.Pow(cfg.Multiplier, float64(attempt))
	if delay > float64(cfg.MaxDelayMs) {
		delay = float64(cfg.MaxDelayMs)
	}
	result := delay * (1 + rand.Float64()*cfg.JitterFactor)
	return int64(result)
}

// Status summarizes queue depth by status, the getStatus() surface
// spec.md §4.B names.
type Status struct {
	Counts map[store.TaskStatus]int
}

// GetStatus returns the current task-status distribution.
func (r *Runner) GetStatus() (Status, error) {
	counts, err := r.store.GetTaskStatusSummary()
	if err != nil {
		return Status{}, err
	}
	return Status{Counts: counts}, nil
}
