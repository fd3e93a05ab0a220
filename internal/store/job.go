package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/skillforge-api/internal/domain"
)

// JobStore defines persistence for generation jobs and their tasks.
// Every mutation is a single-row or single-statement update keyed by id, so
// concurrent workers need no coordination beyond the database.
type JobStore interface {
	// CreateWithTasks writes a job and all of its tasks atomically.
	// Either every row is written or none is.
	CreateWithTasks(ctx context.Context, job *domain.Job, tasks []*domain.GenerationTask) error

	// GetJob retrieves a job by ID.
	// Returns ErrJobNotFound if the job does not exist.
	GetJob(ctx context.Context, id uuid.UUID) (*domain.Job, error)

	// ListJobs returns jobs newest first.
	ListJobs(ctx context.Context, limit, offset int) ([]*domain.Job, error)

	// GetTask retrieves a task by ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetTask(ctx context.Context, id uuid.UUID) (*domain.GenerationTask, error)

	// ListTasks returns every task of a job ordered by creation time.
	ListTasks(ctx context.Context, jobID uuid.UUID) ([]*domain.GenerationTask, error)

	// ListQueuedTasks returns queued tasks across all jobs, oldest first.
	ListQueuedTasks(ctx context.Context) ([]*domain.GenerationTask, error)

	// ResetRunningTasks moves tasks left running by a previous process back to
	// queued and returns how many were reset.
	ResetRunningTasks(ctx context.Context) (int, error)

	// ListUnfinishedJobIDs returns the IDs of jobs that are not terminal.
	ListUnfinishedJobIDs(ctx context.Context) ([]uuid.UUID, error)

	// MarkTaskRunning moves a queued task to running and its job from queued
	// to running.
	MarkTaskRunning(ctx context.Context, taskID uuid.UUID) error

	// MarkTaskCompleted records a task's content and completion time.
	MarkTaskCompleted(ctx context.Context, taskID, contentID uuid.UUID) error

	// MarkTaskFailed records a task's failure cause and completion time.
	MarkTaskFailed(ctx context.Context, taskID uuid.UUID, errMsg string) error

	// FinalizeJob moves a non-terminal job to its aggregate terminal status if
	// every task has finished. It returns the job's status after the call and
	// whether this call performed the transition.
	FinalizeJob(ctx context.Context, jobID uuid.UUID) (domain.JobStatus, bool, error)
}
