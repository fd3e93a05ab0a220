package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/skillforge-api/internal/domain"
	"github.com/phrazzld/skillforge-api/internal/events"
	"github.com/phrazzld/skillforge-api/internal/platform/logger"
	"github.com/phrazzld/skillforge-api/internal/store"
	"github.com/phrazzld/skillforge-api/internal/task"
)

// DefaultMinutesPerEmployee is the per-employee generation estimate used when
// none is configured.
const DefaultMinutesPerEmployee = 2.5

// CreateJobRequest describes a bulk personalization request.
type CreateJobRequest struct {
	GroupType       domain.GroupType
	GroupID         uuid.UUID
	Title           string
	Description     string
	DifficultyLevel domain.DifficultyLevel

	// EmployeeIDs, when non-empty, replaces the group lookup verbatim.
	EmployeeIDs []uuid.UUID
	SkillGaps   []string
	DocumentIDs []uuid.UUID

	CreatedBy            *uuid.UUID
	CourseID             *uuid.UUID
	RegeneratesContentID *uuid.UUID
}

// CreateJobResult is returned once a job and its tasks are stored.
type CreateJobResult struct {
	JobID                uuid.UUID
	TotalEmployees       int
	EstimatedTimeMinutes float64
}

// OrchestratorConfig tunes the orchestrator.
type OrchestratorConfig struct {
	MinutesPerEmployee float64
}

// JobOrchestrator creates generation jobs, dispatches their tasks through the
// event emitter and finalizes jobs as tasks finish.
type JobOrchestrator struct {
	jobs      store.JobStore
	directory store.EmployeeDirectory
	contents  store.ContentStore
	emitter   events.EventEmitter
	config    OrchestratorConfig
	logger    *slog.Logger

	dispatching sync.WaitGroup
}

// NewJobOrchestrator creates a JobOrchestrator.
// It returns an error if any of the required dependencies are nil.
func NewJobOrchestrator(
	jobs store.JobStore,
	directory store.EmployeeDirectory,
	contents store.ContentStore,
	emitter events.EventEmitter,
	config OrchestratorConfig,
	logger *slog.Logger,
) (*JobOrchestrator, error) {
	switch {
	case jobs == nil:
		return nil, NewServiceError("job", "create_service", errors.New("job store cannot be nil"))
	case directory == nil:
		return nil, NewServiceError("job", "create_service", errors.New("employee directory cannot be nil"))
	case contents == nil:
		return nil, NewServiceError("job", "create_service", errors.New("content store cannot be nil"))
	case emitter == nil:
		return nil, NewServiceError("job", "create_service", errors.New("event emitter cannot be nil"))
	}
	if config.MinutesPerEmployee <= 0 {
		config.MinutesPerEmployee = DefaultMinutesPerEmployee
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &JobOrchestrator{
		jobs:      jobs,
		directory: directory,
		contents:  contents,
		emitter:   emitter,
		config:    config,
		logger:    logger.With(slog.String("component", "job_orchestrator")),
	}, nil
}

// Create resolves the employee set, stores a queued job with one queued task
// per employee in a single transaction and schedules the tasks. It returns as
// soon as the rows exist. A job that regenerates existing content flags that
// content only after the rows are stored; nothing is written when the
// request is rejected.
func (o *JobOrchestrator) Create(ctx context.Context, req CreateJobRequest) (*CreateJobResult, error) {
	if err := validateCreateRequest(req); err != nil {
		return nil, err
	}

	employeeIDs := req.EmployeeIDs
	if len(employeeIDs) == 0 {
		ids, err := o.directory.ListActiveByGroup(ctx, req.GroupType, req.GroupID)
		if err != nil {
			o.logger.Error("failed to resolve employee group",
				slog.String("error", err.Error()),
				slog.String("group_type", string(req.GroupType)),
				slog.String("group_id", req.GroupID.String()))
			return nil, wrapStoreError("job", "create", err)
		}
		employeeIDs = ids
	}
	if len(employeeIDs) == 0 {
		return nil, NewServiceError("job", "create", ErrEmptyGroup)
	}

	job, err := domain.NewJob(req.GroupType, req.GroupID, req.Title, req.Description,
		req.DifficultyLevel, len(employeeIDs))
	if err != nil {
		return nil, invalidParameters("%v", err)
	}
	job.CreatedBy = req.CreatedBy
	job.CourseID = req.CourseID
	job.RegeneratesContentID = req.RegeneratesContentID
	job.Params = domain.JobParams{SkillGaps: req.SkillGaps, DocumentIDs: req.DocumentIDs}

	tasks := make([]*domain.GenerationTask, 0, len(employeeIDs))
	for _, employeeID := range employeeIDs {
		t, err := domain.NewGenerationTask(job.ID, employeeID)
		if err != nil {
			return nil, invalidParameters("%v", err)
		}
		tasks = append(tasks, t)
	}

	log := o.logger.With(slog.String("job_id", job.ID.String()))
	if err := o.jobs.CreateWithTasks(ctx, job, tasks); err != nil {
		log.Error("failed to store job", slog.String("error", err.Error()))
		return nil, wrapStoreError("job", "create", err)
	}

	log.Info("generation job created",
		slog.String("group_type", string(job.GroupType)),
		slog.String("group_id", job.GroupID.String()),
		slog.Int("total_employees", job.TotalEmployees))

	if job.RegeneratesContentID != nil {
		o.markRegenerating(ctx, *job.RegeneratesContentID, log)
	}
	o.dispatchAsync(tasks)

	return &CreateJobResult{
		JobID:                job.ID,
		TotalEmployees:       job.TotalEmployees,
		EstimatedTimeMinutes: o.EstimateMinutes(job.TotalEmployees),
	}, nil
}

// markRegenerating flags the content a regeneration job replaces. It runs
// after the job is stored and before its task is dispatched, so the task
// always finishes after the flag is set. A failure only costs the
// placeholders: the job still runs and its content supersedes the record.
func (o *JobOrchestrator) markRegenerating(ctx context.Context, contentID uuid.UUID, log *slog.Logger) {
	if err := o.contents.MarkRegenerating(ctx, contentID); err != nil {
		log.Error("failed to flag content as regenerating",
			slog.String("content_id", contentID.String()),
			slog.String("error", err.Error()))
	}
}

// EstimateMinutes returns the expected generation time for n employees.
func (o *JobOrchestrator) EstimateMinutes(n int) float64 {
	return float64(n) * o.config.MinutesPerEmployee
}

func validateCreateRequest(req CreateJobRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return invalidParameters("title is required")
	}
	if !req.GroupType.IsValid() {
		return invalidParameters("group type %q is not supported", req.GroupType)
	}
	if req.GroupID == uuid.Nil {
		return invalidParameters("group id is required")
	}
	if req.DifficultyLevel != "" && !req.DifficultyLevel.IsValid() {
		return invalidParameters("difficulty level %q is not supported", req.DifficultyLevel)
	}

	seen := make(map[uuid.UUID]struct{}, len(req.EmployeeIDs))
	for _, id := range req.EmployeeIDs {
		if id == uuid.Nil {
			return invalidParameters("employee ids must not be empty")
		}
		if _, dup := seen[id]; dup {
			return invalidParameters("employee %s is listed more than once", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// dispatchAsync emits a request event for every task on a background
// goroutine. Emitting blocks while the runner's queue is full, so it never
// runs on the caller's goroutine.
func (o *JobOrchestrator) dispatchAsync(tasks []*domain.GenerationTask) {
	if len(tasks) == 0 {
		return
	}

	o.dispatching.Add(1)
	go func() {
		defer o.dispatching.Done()
		ctx := logger.WithLogger(context.Background(), o.logger)
		o.dispatch(ctx, tasks)
	}()
}

func (o *JobOrchestrator) dispatch(ctx context.Context, tasks []*domain.GenerationTask) {
	for _, t := range tasks {
		log := o.logger.With(
			slog.String("job_id", t.JobID.String()),
			slog.String("task_id", t.ID.String()))

		event, err := events.NewPersonalizationEvent(t.JobID, t.ID)
		if err != nil {
			log.Error("failed to build task request", slog.String("error", err.Error()))
			continue
		}

		if err := o.emitter.EmitEvent(ctx, event); err != nil {
			if errors.Is(err, task.ErrRunnerStopped) {
				log.Warn("runner stopped, leaving remaining tasks queued for resume")
				return
			}
			// The task stays queued and is picked up again on the next resume.
			log.Error("failed to dispatch task", slog.String("error", err.Error()))
		}
	}
}

// WaitForDispatch blocks until every scheduled dispatch has handed its tasks
// to the runner.
func (o *JobOrchestrator) WaitForDispatch() {
	o.dispatching.Wait()
}

// TaskFinished is the runner's completion handler. It releases the
// regeneration flag of a failed regeneration and finalizes the job once every
// task is terminal. Concurrent finishers race safely: only one finalization
// performs the transition.
func (o *JobOrchestrator) TaskFinished(ctx context.Context, t task.Task, taskErr error) {
	log := o.logger.With(
		slog.String("job_id", t.JobID().String()),
		slog.String("task_id", t.ID().String()))

	if taskErr != nil {
		o.releaseRegeneration(ctx, t.JobID(), log)
	}

	status, transitioned, err := o.jobs.FinalizeJob(ctx, t.JobID())
	if err != nil {
		log.Error("failed to finalize job", slog.String("error", err.Error()))
		return
	}
	if transitioned {
		log.Info("generation job finished", slog.String("status", string(status)))
	}
}

func (o *JobOrchestrator) releaseRegeneration(ctx context.Context, jobID uuid.UUID, log *slog.Logger) {
	job, err := o.jobs.GetJob(ctx, jobID)
	if err != nil {
		log.Error("failed to load job after task failure", slog.String("error", err.Error()))
		return
	}
	if job.RegeneratesContentID == nil {
		return
	}

	if err := o.contents.ClearRegenerating(ctx, *job.RegeneratesContentID); err != nil {
		log.Error("failed to clear regenerating flag",
			slog.String("error", err.Error()),
			slog.String("content_id", job.RegeneratesContentID.String()))
		return
	}
	log.Info("regeneration failed, original content restored",
		slog.String("content_id", job.RegeneratesContentID.String()))
}

// Resume recovers work left behind by a previous process: tasks stuck in
// running are requeued, every queued task is dispatched again and jobs whose
// tasks all finished before the crash are finalized.
func (o *JobOrchestrator) Resume(ctx context.Context) error {
	reset, err := o.jobs.ResetRunningTasks(ctx)
	if err != nil {
		return wrapStoreError("job", "resume", err)
	}

	queued, err := o.jobs.ListQueuedTasks(ctx)
	if err != nil {
		return wrapStoreError("job", "resume", err)
	}

	unfinished, err := o.jobs.ListUnfinishedJobIDs(ctx)
	if err != nil {
		return wrapStoreError("job", "resume", err)
	}

	finalized := 0
	for _, jobID := range unfinished {
		_, transitioned, err := o.jobs.FinalizeJob(ctx, jobID)
		if err != nil {
			o.logger.Error("failed to finalize job during resume",
				slog.String("job_id", jobID.String()),
				slog.String("error", err.Error()))
			continue
		}
		if transitioned {
			finalized++
		}
	}

	o.logger.Info("resumed unfinished generation work",
		slog.Int("reset_tasks", reset),
		slog.Int("queued_tasks", len(queued)),
		slog.Int("finalized_jobs", finalized))

	o.dispatchAsync(queued)
	return nil
}
