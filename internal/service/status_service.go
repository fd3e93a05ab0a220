package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/skillforge-api/internal/domain"
	"github.com/phrazzld/skillforge-api/internal/store"
)

// Job listing bounds.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// DefaultPollInterval is the client polling hint used when none is configured.
const DefaultPollInterval = 10 * time.Second

// JobCreator creates generation jobs. JobOrchestrator implements it.
type JobCreator interface {
	Create(ctx context.Context, req CreateJobRequest) (*CreateJobResult, error)
}

// StatusConfig tunes the status service.
type StatusConfig struct {
	MinutesPerEmployee float64
	PollInterval       time.Duration
}

// JobStatusReport is the answer to a status poll.
type JobStatusReport struct {
	Job   *domain.Job
	Tasks []*domain.GenerationTask

	// Progress is the percentage of tasks that reached a terminal state.
	Progress int

	// EstimatedCompletionTime is nil once the job is terminal.
	EstimatedCompletionTime *time.Time
	PollInterval            time.Duration
}

// RegenerationRequest asks for fresh content for one employee and course.
type RegenerationRequest struct {
	CourseID        uuid.UUID
	EmployeeID      uuid.UUID
	ForceRegenerate bool
	RequestedBy     *uuid.UUID
}

// RegenerationResult reports whether a generation job was scheduled.
type RegenerationResult struct {
	Accepted bool
	JobID    *uuid.UUID

	// Content is the employee's active content for the course, showing the
	// regeneration placeholders when a regeneration was accepted. It is nil
	// when no content existed yet.
	Content *domain.GeneratedContent
}

// StatusService answers polling queries and regeneration requests.
type StatusService struct {
	jobs      store.JobStore
	contents  store.ContentStore
	directory store.EmployeeDirectory
	courses   store.CourseCatalog
	creator   JobCreator
	config    StatusConfig
	now       func() time.Time
	logger    *slog.Logger
}

// NewStatusService creates a StatusService.
// It returns an error if any of the required dependencies are nil.
func NewStatusService(
	jobs store.JobStore,
	contents store.ContentStore,
	directory store.EmployeeDirectory,
	courses store.CourseCatalog,
	creator JobCreator,
	config StatusConfig,
	logger *slog.Logger,
) (*StatusService, error) {
	switch {
	case jobs == nil:
		return nil, NewServiceError("status", "create_service", errors.New("job store cannot be nil"))
	case contents == nil:
		return nil, NewServiceError("status", "create_service", errors.New("content store cannot be nil"))
	case directory == nil:
		return nil, NewServiceError("status", "create_service", errors.New("employee directory cannot be nil"))
	case courses == nil:
		return nil, NewServiceError("status", "create_service", errors.New("course catalog cannot be nil"))
	case creator == nil:
		return nil, NewServiceError("status", "create_service", errors.New("job creator cannot be nil"))
	}
	if config.MinutesPerEmployee <= 0 {
		config.MinutesPerEmployee = DefaultMinutesPerEmployee
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &StatusService{
		jobs:      jobs,
		contents:  contents,
		directory: directory,
		courses:   courses,
		creator:   creator,
		config:    config,
		now:       time.Now,
		logger:    logger.With(slog.String("component", "status_service")),
	}, nil
}

// GetStatus computes a job's progress from its task records.
func (s *StatusService) GetStatus(ctx context.Context, jobID uuid.UUID) (*JobStatusReport, error) {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, wrapStoreError("status", "get_status", err)
	}

	tasks, err := s.jobs.ListTasks(ctx, jobID)
	if err != nil {
		s.logger.Error("failed to list tasks",
			slog.String("job_id", jobID.String()),
			slog.String("error", err.Error()))
		return nil, wrapStoreError("status", "get_status", err)
	}

	counts := domain.CountTasks(tasks)
	report := &JobStatusReport{
		Job:          job,
		Tasks:        tasks,
		Progress:     progressPercent(counts.Finished(), job.TotalEmployees),
		PollInterval: s.config.PollInterval,
	}

	if !job.IsTerminal() {
		remaining := time.Duration(float64(counts.Remaining()) * s.config.MinutesPerEmployee * float64(time.Minute))
		eta := s.now().UTC().Add(remaining)
		report.EstimatedCompletionTime = &eta
	}

	return report, nil
}

func progressPercent(finished, total int) int {
	if total <= 0 {
		return 0
	}
	if finished >= total {
		return 100
	}
	return finished * 100 / total
}

// RequestRegeneration schedules new content for an employee and course.
// Existing content is only replaced when ForceRegenerate is set. The
// orchestrator flags it as regenerating once the job is stored, and its
// sections show a placeholder until the new record supersedes it. A rejected
// or unstored job leaves the content untouched.
func (s *StatusService) RequestRegeneration(ctx context.Context, req RegenerationRequest) (*RegenerationResult, error) {
	if req.CourseID == uuid.Nil || req.EmployeeID == uuid.Nil {
		return nil, invalidParameters("course id and employee id are required")
	}

	log := s.logger.With(
		slog.String("course_id", req.CourseID.String()),
		slog.String("employee_id", req.EmployeeID.String()))

	course, err := s.courses.GetCourse(ctx, req.CourseID)
	if err != nil {
		return nil, wrapStoreError("status", "request_regeneration", err)
	}
	profile, err := s.directory.GetProfile(ctx, req.EmployeeID)
	if err != nil {
		return nil, wrapStoreError("status", "request_regeneration", err)
	}

	active, err := s.contents.GetActive(ctx, req.EmployeeID, req.CourseID)
	switch {
	case errors.Is(err, store.ErrContentNotFound):
		active = nil
	case err != nil:
		return nil, wrapStoreError("status", "request_regeneration", err)
	}

	if active != nil && !req.ForceRegenerate {
		log.Debug("active content exists, regeneration not forced")
		return &RegenerationResult{Accepted: false, Content: active}, nil
	}

	createReq, err := regenerationJob(course, profile, req)
	if err != nil {
		return nil, err
	}
	if active == nil {
		jobID, err := s.createJob(ctx, createReq)
		if err != nil {
			return nil, err
		}
		log.Info("initial generation scheduled", slog.String("job_id", jobID.String()))
		return &RegenerationResult{Accepted: true, JobID: &jobID}, nil
	}

	createReq.RegeneratesContentID = &active.ID
	jobID, err := s.createJob(ctx, createReq)
	if err != nil {
		return nil, err
	}

	flagged, err := s.contents.GetByID(ctx, active.ID)
	if err != nil {
		log.Error("failed to reload content after scheduling regeneration",
			slog.String("content_id", active.ID.String()),
			slog.String("error", err.Error()))
		flagged = active
	}

	log.Info("regeneration scheduled",
		slog.String("job_id", jobID.String()),
		slog.String("content_id", active.ID.String()))
	return &RegenerationResult{Accepted: true, JobID: &jobID, Content: flagged}, nil
}

func (s *StatusService) createJob(ctx context.Context, req CreateJobRequest) (uuid.UUID, error) {
	result, err := s.creator.Create(ctx, req)
	if err != nil {
		return uuid.Nil, err
	}
	return result.JobID, nil
}

// regenerationJob builds a single-employee job for the course, grouped under
// the employee's department or, failing that, position.
func regenerationJob(course *domain.Course, profile *domain.EmployeeProfile, req RegenerationRequest) (CreateJobRequest, error) {
	groupType, groupID := domain.GroupTypeDepartment, profile.DepartmentID
	if groupID == uuid.Nil {
		groupType, groupID = domain.GroupTypePosition, profile.PositionID
	}
	if groupID == uuid.Nil {
		return CreateJobRequest{}, fmt.Errorf("%w: employee %s has no department or position",
			ErrInvalidParameters, profile.ID)
	}

	courseID := course.ID
	return CreateJobRequest{
		GroupType:       groupType,
		GroupID:         groupID,
		Title:           course.Title,
		Description:     course.Description,
		DifficultyLevel: course.DifficultyLevel,
		EmployeeIDs:     []uuid.UUID{req.EmployeeID},
		CreatedBy:       req.RequestedBy,
		CourseID:        &courseID,
	}, nil
}

// GetContent returns a content record with its modules and sections.
func (s *StatusService) GetContent(ctx context.Context, contentID uuid.UUID) (*domain.GeneratedContent, error) {
	content, err := s.contents.GetByID(ctx, contentID)
	if err != nil {
		return nil, wrapStoreError("status", "get_content", err)
	}
	return content, nil
}

// ListJobs returns recent jobs newest first. The limit is clamped to
// [1, MaxListLimit] with DefaultListLimit for non-positive values.
func (s *StatusService) ListJobs(ctx context.Context, limit, offset int) ([]*domain.Job, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	jobs, err := s.jobs.ListJobs(ctx, limit, offset)
	if err != nil {
		return nil, wrapStoreError("status", "list_jobs", err)
	}
	return jobs, nil
}
