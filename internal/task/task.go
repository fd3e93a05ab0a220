package task

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/skillforge-api/internal/events"
)

// Task type constants
const (
	// TaskTypePersonalization generates one employee's personalized course.
	TaskTypePersonalization = events.TypePersonalization
)

// Outcome is what a successful task produced.
type Outcome struct {
	// ContentID is the generated content record the task completed with.
	ContentID uuid.UUID

	// Reused is true when the content already existed from an earlier run of
	// the same job and nothing new was generated.
	Reused bool
}

// Task represents a unit of background work to be processed
type Task interface {
	// ID returns the task's unique identifier
	ID() uuid.UUID

	// JobID returns the job the task belongs to
	JobID() uuid.UUID

	// Type returns the task type identifier
	Type() string

	// Payload returns the task's identifying data as JSON. The runner logs
	// it when the task fails.
	Payload() []byte

	// Execute runs the task logic. A nil error means the outcome is final
	// and the task completes; any error fails the task.
	Execute(ctx context.Context) (Outcome, error)
}

// TaskStore records task state transitions made by the runner. It is the
// subset of store.JobStore the runner needs.
type TaskStore interface {
	// MarkTaskRunning claims a queued task. It returns store.ErrUpdateFailed
	// if the task is no longer queued.
	MarkTaskRunning(ctx context.Context, taskID uuid.UUID) error

	// MarkTaskCompleted records a task's content and completion time.
	MarkTaskCompleted(ctx context.Context, taskID, contentID uuid.UUID) error

	// MarkTaskFailed records a task's failure cause and completion time.
	MarkTaskFailed(ctx context.Context, taskID uuid.UUID, errMsg string) error
}

// CompletionHandler is called after a task's terminal state is recorded.
// err is the task's execution error, nil on success.
type CompletionHandler func(ctx context.Context, task Task, err error)
