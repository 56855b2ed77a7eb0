package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"storyloom/internal/config"
	"storyloom/internal/dispatch"
	"storyloom/internal/logging"
	"storyloom/internal/services"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultTaskRetries  = 3
)

// Runner executes a claimed task. The pipeline satisfies this.
type Runner interface {
	Execute(ctx context.Context, task *dispatch.Task) error
}

// Worker polls the task queue and drives the runner.
type Worker struct {
	cfg    *config.Config
	queue  *dispatch.Queue
	runner Runner
	log    *slog.Logger

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.Mutex
}

func New(cfg *config.Config, queue *dispatch.Queue, runner Runner, log *slog.Logger) (*Worker, error) {
	if cfg == nil || queue == nil || runner == nil {
		return nil, errors.New("worker requires config, queue, and runner")
	}
	if log == nil {
		log = logging.NewNop()
	}
	lockPath := cfg.LockPath()
	return &Worker{
		cfg:      cfg,
		queue:    queue,
		runner:   runner,
		log:      logging.NewComponentLogger(log, "worker"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// queues returns the poll set: the default queue plus the configured render
// queue when one is set.
func (w *Worker) queues() []string {
	out := []string{dispatch.DefaultQueue}
	if rq := w.cfg.Workflow.RenderQueue; rq != "" && rq != dispatch.DefaultQueue {
		out = append(out, rq)
	}
	return out
}

func (w *Worker) pollInterval() time.Duration {
	if w.cfg.Workflow.PollInterval > 0 {
		return time.Duration(w.cfg.Workflow.PollInterval) * time.Second
	}
	return defaultPollInterval
}

func (w *Worker) taskRetries() int {
	if w.cfg.Workflow.TaskRetries > 0 {
		return w.cfg.Workflow.TaskRetries
	}
	return defaultTaskRetries
}

// Start acquires the instance lock and launches the polling loop.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running.Load() {
		return errors.New("worker already running")
	}

	ok, err := w.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire worker lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another worker already holds %s", w.lockPath)
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running.Store(true)

	go w.loop(runCtx)
	w.log.Info("worker started",
		logging.String("lock", w.lockPath),
		logging.Any("queues", w.queues()),
	)
	return nil
}

// Stop halts polling, waits for the in-flight task, and releases the lock.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running.Load() {
		return
	}
	w.cancel()
	<-w.done
	if err := w.lock.Unlock(); err != nil {
		w.log.Warn("could not release worker lock", logging.Error(err))
	}
	w.running.Store(false)
	w.log.Info("worker stopped")
}

func (w *Worker) loop(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.pollInterval())
	defer ticker.Stop()

	for {
		// Drain everything available before sleeping.
		for {
			processed, err := w.RunOnce(ctx)
			if err != nil {
				w.log.Error("task run failed", logging.Error(err))
			}
			if !processed || ctx.Err() != nil {
				break
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce claims and executes at most one task. It reports whether a task was
// processed; the returned error is the task's failure, already settled
// against the queue.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	task, err := w.queue.Claim(ctx, w.queues()...)
	if err != nil {
		return false, fmt.Errorf("claim task: %w", err)
	}
	if task == nil {
		return false, nil
	}

	log := w.log.With(
		logging.Int64("task_id", task.ID),
		logging.String("task", task.Name),
		logging.Int("attempt", task.Attempts),
	)
	log.Info("task claimed")

	runErr := w.runner.Execute(ctx, task)
	if runErr == nil {
		if err := w.queue.Complete(ctx, task.ID); err != nil {
			return true, fmt.Errorf("complete task %d: %w", task.ID, err)
		}
		log.Info("task completed")
		return true, nil
	}

	retries := w.taskRetries()
	if !services.Retryable(runErr) {
		// Permanent mistakes burn no further attempts.
		retries = 0
	}
	if err := w.queue.Fail(ctx, task, retries, runErr); err != nil {
		return true, fmt.Errorf("record task %d failure: %w", task.ID, err)
	}
	log.Warn("task failed",
		logging.Error(runErr),
		logging.Bool("retryable", services.Retryable(runErr)),
	)
	return true, runErr
}
