package task

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/skillforge-api/internal/domain"
	"github.com/phrazzld/skillforge-api/internal/mocks"
	"github.com/phrazzld/skillforge-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTask struct {
	id      uuid.UUID
	jobID   uuid.UUID
	execute func(ctx context.Context) (Outcome, error)
	calls   atomic.Int32
}

func (f *fakeTask) ID() uuid.UUID    { return f.id }
func (f *fakeTask) JobID() uuid.UUID { return f.jobID }
func (f *fakeTask) Type() string     { return "fake" }
func (f *fakeTask) Payload() []byte  { return []byte(`{"task_id":"` + f.id.String() + `"}`) }

func (f *fakeTask) Execute(ctx context.Context) (Outcome, error) {
	f.calls.Add(1)
	if f.execute != nil {
		return f.execute(ctx)
	}
	return Outcome{ContentID: uuid.New()}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// seedTasks stores a job with n queued tasks and returns fake tasks for them.
func seedTasks(t *testing.T, jobs *mocks.InMemoryJobStore, n int) []*fakeTask {
	t.Helper()
	job, err := domain.NewJob(domain.GroupTypeDepartment, uuid.New(), "Onboarding", "", "", n)
	require.NoError(t, err)

	records := make([]*domain.GenerationTask, 0, n)
	fakes := make([]*fakeTask, 0, n)
	for i := 0; i < n; i++ {
		rec, err := domain.NewGenerationTask(job.ID, uuid.New())
		require.NoError(t, err)
		records = append(records, rec)
		fakes = append(fakes, &fakeTask{id: rec.ID, jobID: job.ID})
	}
	require.NoError(t, jobs.CreateWithTasks(context.Background(), job, records))
	return fakes
}

// completions collects completion handler calls.
type completions struct {
	mu   sync.Mutex
	errs map[uuid.UUID]error
	done chan struct{}
}

func newCompletions(runner *TaskRunner) *completions {
	c := &completions{errs: make(map[uuid.UUID]error), done: make(chan struct{}, 100)}
	runner.SetCompletionHandler(func(_ context.Context, task Task, err error) {
		c.mu.Lock()
		c.errs[task.ID()] = err
		c.mu.Unlock()
		c.done <- struct{}{}
	})
	return c
}

func (c *completions) wait(t *testing.T, n int) {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for i := 0; i < n; i++ {
		select {
		case <-c.done:
		case <-timeout:
			t.Fatalf("timed out waiting for %d completions, got %d", n, i)
		}
	}
}

func TestTaskRunner_ProcessesTasks(t *testing.T) {
	t.Parallel()

	jobs := mocks.NewInMemoryJobStore()
	runner := NewTaskRunner(jobs, TaskRunnerConfig{WorkerCount: 2, QueueSize: 10}, discardLogger())
	done := newCompletions(runner)
	require.NoError(t, runner.Start())
	defer runner.Stop()

	tasks := seedTasks(t, jobs, 5)
	for _, task := range tasks {
		require.NoError(t, runner.Submit(context.Background(), task))
	}
	done.wait(t, 5)

	for _, task := range tasks {
		rec, err := jobs.GetTask(context.Background(), task.ID())
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusCompleted, rec.Status)
		assert.NotNil(t, rec.ContentID)
		assert.NotNil(t, rec.StartedAt)
		assert.NoError(t, done.errs[task.ID()])
	}
}

func TestTaskRunner_TaskFailure(t *testing.T) {
	t.Parallel()

	jobs := mocks.NewInMemoryJobStore()
	buf, log := logger.NewTestLogger(t)
	runner := NewTaskRunner(jobs, DefaultTaskRunnerConfig(), log)
	done := newCompletions(runner)
	require.NoError(t, runner.Start())
	defer runner.Stop()

	task := seedTasks(t, jobs, 1)[0]
	task.execute = func(context.Context) (Outcome, error) {
		return Outcome{}, errors.New("generator unavailable")
	}

	require.NoError(t, runner.Submit(context.Background(), task))
	done.wait(t, 1)

	rec, err := jobs.GetTask(context.Background(), task.ID())
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, rec.Status)
	assert.Equal(t, "generator unavailable", rec.Error)
	assert.Nil(t, rec.ContentID)
	assert.EqualError(t, done.errs[task.ID()], "generator unavailable")

	entries, err := buf.Entries()
	require.NoError(t, err)
	var logged bool
	for _, e := range entries {
		if e["msg"] == "task execution failed" {
			logged = true
			assert.Equal(t, string(task.Payload()), e["payload"])
		}
	}
	assert.True(t, logged, "failure should be logged with the task payload")
}

func TestTaskRunner_PanicFailsTask(t *testing.T) {
	t.Parallel()

	jobs := mocks.NewInMemoryJobStore()
	runner := NewTaskRunner(jobs, TaskRunnerConfig{WorkerCount: 1}, discardLogger())
	done := newCompletions(runner)
	require.NoError(t, runner.Start())
	defer runner.Stop()

	tasks := seedTasks(t, jobs, 2)
	tasks[0].execute = func(context.Context) (Outcome, error) { panic("boom") }

	for _, task := range tasks {
		require.NoError(t, runner.Submit(context.Background(), task))
	}
	done.wait(t, 2)

	first, err := jobs.GetTask(context.Background(), tasks[0].ID())
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, first.Status)
	assert.Contains(t, first.Error, "panicked")

	// The same worker keeps going after the panic.
	second, err := jobs.GetTask(context.Background(), tasks[1].ID())
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, second.Status)
}

func TestTaskRunner_ConcurrencyCap(t *testing.T) {
	t.Parallel()

	const workers = 3
	jobs := mocks.NewInMemoryJobStore()

	var running, maxRunning atomic.Int32
	jobs.OnTransition = func(_ uuid.UUID, status domain.TaskStatus) {
		if status == domain.TaskStatusRunning {
			n := running.Add(1)
			for {
				cur := maxRunning.Load()
				if n <= cur || maxRunning.CompareAndSwap(cur, n) {
					break
				}
			}
			return
		}
		running.Add(-1)
	}

	runner := NewTaskRunner(jobs, TaskRunnerConfig{WorkerCount: workers, QueueSize: 20}, discardLogger())
	done := newCompletions(runner)
	require.NoError(t, runner.Start())
	defer runner.Stop()

	tasks := seedTasks(t, jobs, 12)
	for _, task := range tasks {
		task.execute = func(context.Context) (Outcome, error) {
			time.Sleep(15 * time.Millisecond)
			return Outcome{ContentID: uuid.New()}, nil
		}
		require.NoError(t, runner.Submit(context.Background(), task))
	}
	done.wait(t, len(tasks))

	assert.LessOrEqual(t, maxRunning.Load(), int32(workers))
	assert.Equal(t, int32(workers), maxRunning.Load(), "all workers should have been busy at some point")
	assert.Equal(t, int32(0), running.Load())
}

func TestTaskRunner_SkipsClaimedTask(t *testing.T) {
	t.Parallel()

	jobs := mocks.NewInMemoryJobStore()
	runner := NewTaskRunner(jobs, TaskRunnerConfig{WorkerCount: 1}, discardLogger())
	done := newCompletions(runner)
	require.NoError(t, runner.Start())
	defer runner.Stop()

	tasks := seedTasks(t, jobs, 2)
	jobs.SetTaskStatus(tasks[0].ID(), domain.TaskStatusRunning)

	require.NoError(t, runner.Submit(context.Background(), tasks[0]))
	require.NoError(t, runner.Submit(context.Background(), tasks[1]))
	done.wait(t, 1)

	assert.Equal(t, int32(0), tasks[0].calls.Load())
	assert.Equal(t, int32(1), tasks[1].calls.Load())
	_, handled := done.errs[tasks[0].ID()]
	assert.False(t, handled)
}

func TestTaskRunner_Submit(t *testing.T) {
	t.Parallel()

	t.Run("blocks while queue is full", func(t *testing.T) {
		jobs := mocks.NewInMemoryJobStore()
		runner := NewTaskRunner(jobs, TaskRunnerConfig{WorkerCount: 1, QueueSize: 1}, discardLogger())
		tasks := seedTasks(t, jobs, 2)

		require.NoError(t, runner.Submit(context.Background(), tasks[0]))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
		defer cancel()
		err := runner.Submit(ctx, tasks[1])
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		runner.Stop()
	})

	t.Run("after stop", func(t *testing.T) {
		runner := NewTaskRunner(mocks.NewInMemoryJobStore(), DefaultTaskRunnerConfig(), discardLogger())
		require.NoError(t, runner.Start())
		runner.Stop()

		err := runner.Submit(context.Background(), &fakeTask{id: uuid.New()})
		assert.ErrorIs(t, err, ErrRunnerStopped)
		assert.ErrorIs(t, runner.Start(), ErrRunnerStarted)
	})

	t.Run("start twice", func(t *testing.T) {
		runner := NewTaskRunner(mocks.NewInMemoryJobStore(), DefaultTaskRunnerConfig(), discardLogger())
		require.NoError(t, runner.Start())
		defer runner.Stop()
		assert.ErrorIs(t, runner.Start(), ErrRunnerStarted)
	})
}

func TestFailureMessage(t *testing.T) {
	assert.Equal(t, "", FailureMessage(nil))
	assert.Equal(t, "course generation failed", FailureMessage(errors.New("course generation failed")))
	assert.NotContains(t,
		FailureMessage(errors.New("dial postgres://admin:hunter2@db:5432 failed")),
		"hunter2")
}
