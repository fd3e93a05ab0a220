package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/skillforge-api/internal/domain"
	"github.com/phrazzld/skillforge-api/internal/events"
)

// TaskLoader reads the durable records a task request refers to.
type TaskLoader interface {
	GetJob(ctx context.Context, id uuid.UUID) (*domain.Job, error)
	GetTask(ctx context.Context, id uuid.UUID) (*domain.GenerationTask, error)
}

// TaskSubmitter accepts executable tasks. TaskRunner implements it.
type TaskSubmitter interface {
	Submit(ctx context.Context, task Task) error
}

// TaskFactoryEventHandler implements the events.EventHandler interface
// to turn personalization requests into tasks and submit them to the runner.
type TaskFactoryEventHandler struct {
	loader  TaskLoader
	factory *PersonalizationTaskFactory
	runner  TaskSubmitter
	logger  *slog.Logger
}

// NewTaskFactoryEventHandler creates a new event handler that uses the given task factory
// to create tasks, and submits them to the provided task runner.
func NewTaskFactoryEventHandler(
	loader TaskLoader,
	factory *PersonalizationTaskFactory,
	runner TaskSubmitter,
	logger *slog.Logger,
) *TaskFactoryEventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskFactoryEventHandler{
		loader:  loader,
		factory: factory,
		runner:  runner,
		logger:  logger.With(slog.String("component", "task_factory_event_handler")),
	}
}

// HandleEvent loads the task named by the event and submits it for
// execution. Tasks that are no longer queued are skipped. Submit blocks while
// the runner's queue is full.
func (h *TaskFactoryEventHandler) HandleEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	if event.Type != events.TypePersonalization {
		h.logger.Debug("ignoring event with unsupported type",
			slog.String("event_type", event.Type),
			slog.String("event_id", event.ID.String()))
		return nil
	}

	var payload events.PersonalizationPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		h.logger.Error("failed to unmarshal payload",
			slog.String("error", err.Error()),
			slog.String("event_id", event.ID.String()))
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	log := h.logger.With(
		slog.String("task_id", payload.TaskID.String()),
		slog.String("event_id", event.ID.String()))

	record, err := h.loader.GetTask(ctx, payload.TaskID)
	if err != nil {
		log.Error("failed to load task", slog.String("error", err.Error()))
		return fmt.Errorf("failed to load task: %w", err)
	}
	if record.Status != domain.TaskStatusQueued {
		log.Debug("task is no longer queued, skipping", slog.String("status", string(record.Status)))
		return nil
	}

	job, err := h.loader.GetJob(ctx, record.JobID)
	if err != nil {
		log.Error("failed to load job", slog.String("error", err.Error()))
		return fmt.Errorf("failed to load job: %w", err)
	}

	task, err := h.factory.CreateTask(job, record)
	if err != nil {
		log.Error("failed to create task", slog.String("error", err.Error()))
		return fmt.Errorf("failed to create task: %w", err)
	}

	if err := h.runner.Submit(ctx, task); err != nil {
		log.Error("failed to submit task", slog.String("error", err.Error()))
		return fmt.Errorf("failed to submit task: %w", err)
	}

	log.Debug("task submitted", slog.String("job_id", job.ID.String()))
	return nil
}

// Ensure TaskFactoryEventHandler implements events.EventHandler
var _ events.EventHandler = (*TaskFactoryEventHandler)(nil)
