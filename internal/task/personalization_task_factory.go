package task

import (
	"fmt"
	"log/slog"

	"github.com/phrazzld/skillforge-api/internal/domain"
	"github.com/phrazzld/skillforge-api/internal/generation"
	"github.com/phrazzld/skillforge-api/internal/store"
)

// PersonalizationDeps are the collaborators every PersonalizationTask uses.
type PersonalizationDeps struct {
	Contents  store.ContentStore
	Directory store.EmployeeDirectory
	Documents store.DocumentStore
	Generator generation.Generator
	Prompts   *generation.PromptBuilder
}

// PersonalizationTaskFactory creates PersonalizationTask instances
type PersonalizationTaskFactory struct {
	contents  store.ContentStore
	directory store.EmployeeDirectory
	documents store.DocumentStore
	generator generation.Generator
	prompts   *generation.PromptBuilder
	config    ExecutorConfig
	logger    *slog.Logger
}

// NewPersonalizationTaskFactory creates a new factory for PersonalizationTasks
func NewPersonalizationTaskFactory(
	deps PersonalizationDeps,
	config ExecutorConfig,
	logger *slog.Logger,
) (*PersonalizationTaskFactory, error) {
	switch {
	case deps.Contents == nil:
		return nil, ErrNilContentStore
	case deps.Directory == nil:
		return nil, ErrNilDirectory
	case deps.Documents == nil:
		return nil, ErrNilDocumentStore
	case deps.Generator == nil:
		return nil, ErrNilGenerator
	case deps.Prompts == nil:
		return nil, ErrNilPromptBuilder
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PersonalizationTaskFactory{
		contents:  deps.Contents,
		directory: deps.Directory,
		documents: deps.Documents,
		generator: deps.Generator,
		prompts:   deps.Prompts,
		config:    config,
		logger:    logger.With(slog.String("component", "personalization_task_factory")),
	}, nil
}

// CreateTask wraps a stored task record of job in an executable task
func (f *PersonalizationTaskFactory) CreateTask(
	job *domain.Job,
	record *domain.GenerationTask,
) (*PersonalizationTask, error) {
	if job == nil || record == nil {
		return nil, fmt.Errorf("%w: job and task are required", ErrTaskJobMismatch)
	}
	if record.JobID != job.ID {
		return nil, fmt.Errorf("%w: task %s, job %s", ErrTaskJobMismatch, record.ID, job.ID)
	}

	return &PersonalizationTask{
		record: record,
		job:    job,
		deps:   f,
		logger: f.logger.With(
			slog.String("task_type", TaskTypePersonalization),
			slog.String("task_id", record.ID.String()),
			slog.String("job_id", job.ID.String()),
		),
	}, nil
}
