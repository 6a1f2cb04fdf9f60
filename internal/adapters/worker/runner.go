// Package worker provides an adapter for running fire-and-forget background
// tasks with progress checkpoints persisted to the key-value store.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/openlearn/adaptive-api/internal/core"
	"github.com/openlearn/adaptive-api/internal/domain/model"
	"github.com/openlearn/adaptive-api/internal/observability/metrics"
	"github.com/openlearn/adaptive-api/internal/observability/statsd"
)

// TaskFunc is the body of a background task. It receives a report callback
// that checkpoints the number of completed units so far. Returning a non-nil
// error marks the task failed.
type TaskFunc func(ctx context.Context, report func(completed int)) error

// Runner launches background tasks detached from the caller's request
// lifetime and records their progress under a per-subject key. At most one
// task runs per (feature, subject) pair at a time.
type Runner struct {
	kv      core.KVStore
	logger  *slog.Logger
	metrics statsd.Sink
	timeout time.Duration
	now     func() time.Time

	group *errgroup.Group
	ctx   context.Context
	stop  context.CancelFunc

	mu     sync.Mutex
	active map[string]bool
}

// Options holds the dependencies for creating a Runner.
type Options struct {
	KV     core.KVStore
	Logger *slog.Logger

	// Metrics receives an active-task gauge. Optional.
	Metrics statsd.Sink

	// Limit bounds the number of concurrently running tasks. Zero means
	// a default of 8.
	Limit int

	// Timeout bounds each task's run time. Zero means one hour.
	Timeout time.Duration

	// Now is the clock used for progress timestamps. Defaults to time.Now.
	Now func() time.Time
}

// New creates a runner with the given options.
func New(opts Options) (*Runner, error) {
	if opts.KV == nil {
		return nil, errors.New("worker: kv store is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Limit <= 0 {
		opts.Limit = 8
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	// The group only bounds concurrency; cancellation comes from the
	// runner's own context so Wait never cancels later tasks.
	ctx, stop := context.WithCancel(context.Background())
	group := &errgroup.Group{}
	group.SetLimit(opts.Limit)

	return &Runner{
		kv:      opts.KV,
		logger:  opts.Logger.With("component", "worker"),
		metrics: opts.Metrics,
		timeout: opts.Timeout,
		now:     opts.Now,
		group:   group,
		ctx:     ctx,
		stop:    stop,
		active:  map[string]bool{},
	}, nil
}

// Must creates a runner or panics. Intended for wiring at startup.
func Must(opts Options) *Runner {
	r, err := New(opts)
	if err != nil {
		panic(err)
	}
	return r
}

// Start launches fn in the background and returns its task ID immediately.
// If a task is already running for the same feature and subject, the
// in-flight task ID is returned instead of starting another.
func (r *Runner) Start(ctx context.Context, feature core.Feature, subjectID string, total int, fn TaskFunc) (string, bool, error) {
	key := core.ProgressKey(feature, subjectID)

	r.mu.Lock()
	if r.active[key] {
		r.mu.Unlock()
		existing, err := r.Progress(ctx, feature, subjectID)
		if err != nil {
			return "", false, err
		}
		if existing != nil {
			return existing.TaskID, true, nil
		}
		return "", false, errors.New("worker: task active but progress record missing")
	}
	r.active[key] = true
	count := len(r.active)
	r.mu.Unlock()
	metrics.EmitWorkerTasks(r.metrics, count)

	taskID := uuid.NewString()
	started := r.now().Unix()
	progress := &model.WorkerProgress{
		TaskID:    taskID,
		Status:    model.ProgressStatusRunning,
		Completed: 0,
		Total:     total,
		StartedAt: started,
		UpdatedAt: started,
	}
	if err := r.checkpoint(ctx, key, progress); err != nil {
		r.release(key)
		return "", false, err
	}

	r.group.Go(func() error {
		defer r.release(key)

		taskCtx, cancel := context.WithTimeout(r.ctx, r.timeout)
		defer cancel()

		log := r.logger.With("feature", string(feature), "subject", subjectID, "task", taskID)
		log.Info("task started", "total", total)

		report := func(completed int) {
			progress.Completed = completed
			progress.UpdatedAt = r.now().Unix()
			if err := r.checkpoint(taskCtx, key, progress); err != nil {
				log.Warn("progress checkpoint failed", "error", err)
			}
		}

		err := fn(taskCtx, report)
		progress.UpdatedAt = r.now().Unix()
		if err != nil {
			progress.Status = model.ProgressStatusFailed
			progress.Error = err.Error()
			log.Error("task failed", "error", err)
		} else {
			progress.Status = model.ProgressStatusDone
			log.Info("task finished", "completed", progress.Completed)
		}
		if cerr := r.checkpoint(context.WithoutCancel(taskCtx), key, progress); cerr != nil {
			log.Warn("final checkpoint failed", "error", cerr)
		}
		// Task failures are reported through the progress record, not the
		// group, so one failed task does not cancel its siblings.
		return nil
	})

	return taskID, false, nil
}

// Progress returns the latest checkpoint for the given feature and subject,
// or nil when no task has run.
func (r *Runner) Progress(ctx context.Context, feature core.Feature, subjectID string) (*model.WorkerProgress, error) {
	raw, err := r.kv.Get(ctx, core.ProgressKey(feature, subjectID))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	return model.DecodeWorkerProgress(raw)
}

// Running reports whether a task is currently in flight for the given
// feature and subject.
func (r *Runner) Running(feature core.Feature, subjectID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active[core.ProgressKey(feature, subjectID)]
}

// Shutdown cancels in-flight tasks and waits for them to exit.
func (r *Runner) Shutdown() error {
	r.stop()
	return r.group.Wait()
}

// Wait blocks until all launched tasks have finished.
func (r *Runner) Wait() error {
	return r.group.Wait()
}

func (r *Runner) checkpoint(ctx context.Context, key string, p *model.WorkerProgress) error {
	raw, err := model.EncodeWorkerProgress(p)
	if err != nil {
		return err
	}
	return r.kv.Set(ctx, key, raw, 0)
}

func (r *Runner) release(key string) {
	r.mu.Lock()
	delete(r.active, key)
	count := len(r.active)
	r.mu.Unlock()
	metrics.EmitWorkerTasks(r.metrics, count)
}
