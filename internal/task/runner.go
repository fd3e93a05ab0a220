package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/phrazzld/skillforge-api/internal/platform/logger"
	"github.com/phrazzld/skillforge-api/internal/redact"
	"github.com/phrazzld/skillforge-api/internal/store"
)

// Runner errors
var (
	ErrRunnerStopped = errors.New("task runner is stopped")
	ErrRunnerStarted = errors.New("task runner is already started")
)

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// WorkerCount determines how many concurrent workers process tasks, and
	// therefore how many tasks can be running at once
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory task queue.
	// Submit blocks while the queue is full.
	QueueSize int
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		WorkerCount: 3,
		QueueSize:   100,
	}
}

// TaskRunner manages background task processing
type TaskRunner struct {
	store      TaskStore
	taskChan   chan Task
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     TaskRunnerConfig
	logger     *slog.Logger

	mu         sync.RWMutex
	started    bool
	onComplete CompletionHandler
}

// NewTaskRunner creates a new TaskRunner
func NewTaskRunner(store TaskStore, config TaskRunnerConfig, logger *slog.Logger) *TaskRunner {
	defaults := DefaultTaskRunnerConfig()
	if config.WorkerCount <= 0 {
		config.WorkerCount = defaults.WorkerCount
	}
	if config.QueueSize < 0 {
		config.QueueSize = defaults.QueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &TaskRunner{
		store:      store,
		taskChan:   make(chan Task, config.QueueSize),
		ctx:        ctx,
		cancelFunc: cancel,
		config:     config,
		logger:     logger.With(slog.String("component", "task_runner")),
	}
}

// SetCompletionHandler sets the function called after each task's terminal
// state has been recorded
func (r *TaskRunner) SetCompletionHandler(handler CompletionHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onComplete = handler
}

// Submit adds a task to the queue, blocking while the queue is full.
// It returns ctx.Err() if ctx ends first and ErrRunnerStopped once the runner
// has been stopped.
func (r *TaskRunner) Submit(ctx context.Context, task Task) error {
	if r.ctx.Err() != nil {
		return ErrRunnerStopped
	}

	select {
	case r.taskChan <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-r.ctx.Done():
		return ErrRunnerStopped
	}
}

// Start launches the worker goroutines
func (r *TaskRunner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return ErrRunnerStarted
	}
	if r.ctx.Err() != nil {
		return ErrRunnerStopped
	}
	r.started = true

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.logger.Info("task runner started",
		slog.Int("workers", r.config.WorkerCount),
		slog.Int("queue_size", r.config.QueueSize))
	return nil
}

// Stop signals the workers to exit and waits for in-flight tasks to finish.
// Tasks still in the queue are abandoned; their records remain queued.
func (r *TaskRunner) Stop() {
	r.cancelFunc()
	r.wg.Wait()
	r.logger.Info("task runner stopped", slog.Int("abandoned", len(r.taskChan)))
}

// worker processes tasks from the queue
func (r *TaskRunner) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("starting worker", slog.Int("worker_id", id))

	for {
		// Prefer stopping over picking up more work.
		if r.ctx.Err() != nil {
			r.logger.Debug("stopping worker", slog.Int("worker_id", id))
			return
		}

		select {
		case <-r.ctx.Done():
			r.logger.Debug("stopping worker", slog.Int("worker_id", id))
			return

		case task := <-r.taskChan:
			r.processTask(task, id)
		}
	}
}

// processTask claims, executes and records a single task. In-flight tasks
// run to completion on a context that is not cancelled by Stop.
func (r *TaskRunner) processTask(task Task, workerID int) {
	log := r.logger.With(
		slog.String("task_id", task.ID().String()),
		slog.String("job_id", task.JobID().String()),
		slog.String("task_type", task.Type()),
		slog.Int("worker_id", workerID),
	)
	ctx := logger.WithLogger(context.Background(), log)

	if err := r.store.MarkTaskRunning(ctx, task.ID()); err != nil {
		if errors.Is(err, store.ErrUpdateFailed) || errors.Is(err, store.ErrNotFound) {
			log.Debug("task already claimed, skipping", slog.String("reason", err.Error()))
			return
		}
		// The record stays queued and is picked up again on the next start.
		log.Error("failed to mark task running", slog.String("error", err.Error()))
		return
	}

	log.Info("processing task")

	outcome, err := r.execute(ctx, task)
	if err != nil {
		log.Warn("task execution failed",
			slog.String("error", redact.Error(err)),
			slog.String("payload", string(task.Payload())))
		if updateErr := r.store.MarkTaskFailed(ctx, task.ID(), FailureMessage(err)); updateErr != nil {
			log.Error("failed to mark task failed", slog.String("error", updateErr.Error()))
		}
	} else {
		log.Info("task completed",
			slog.String("content_id", outcome.ContentID.String()),
			slog.Bool("reused", outcome.Reused))
		if updateErr := r.store.MarkTaskCompleted(ctx, task.ID(), outcome.ContentID); updateErr != nil {
			log.Error("failed to mark task completed", slog.String("error", updateErr.Error()))
		}
	}

	r.mu.RLock()
	handler := r.onComplete
	r.mu.RUnlock()
	if handler != nil {
		handler(ctx, task, err)
	}
}

// execute runs the task, converting a panic into an error.
func (r *TaskRunner) execute(ctx context.Context, task Task) (outcome Outcome, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task panicked: %v", p)
		}
	}()
	return task.Execute(ctx)
}

// FailureMessage renders a task error for storage on the task record.
// Credentials, hosts and paths are redacted because task errors are returned
// to API clients.
func FailureMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := redact.Error(err)
	if msg == "" {
		return "task failed"
	}
	return msg
}
