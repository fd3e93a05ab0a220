package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GroupType identifies how a job selects its employees.
type GroupType string

// Supported group selectors
const (
	GroupTypeDepartment GroupType = "department"
	GroupTypePosition   GroupType = "position"
)

// DifficultyLevel is the target difficulty of generated course content.
type DifficultyLevel string

// Supported difficulty levels
const (
	DifficultyBeginner     DifficultyLevel = "beginner"
	DifficultyIntermediate DifficultyLevel = "intermediate"
	DifficultyAdvanced     DifficultyLevel = "advanced"
)

// JobStatus represents the aggregate state of a generation job
type JobStatus string

// Possible job status values
const (
	JobStatusQueued              JobStatus = "queued"
	JobStatusRunning             JobStatus = "running"
	JobStatusCompleted           JobStatus = "completed"
	JobStatusCompletedWithErrors JobStatus = "completed_with_errors"
	JobStatusFailed              JobStatus = "failed"
)

// Common validation errors for Job
var (
	ErrEmptyJobID          = errors.New("job ID cannot be empty")
	ErrEmptyJobTitle       = errors.New("job title cannot be empty")
	ErrEmptyGroupID        = errors.New("group ID cannot be empty")
	ErrInvalidGroupType    = errors.New("invalid group type")
	ErrInvalidDifficulty   = errors.New("invalid difficulty level")
	ErrInvalidJobStatus    = errors.New("invalid job status")
	ErrEmptyEmployeeSet    = errors.New("total employees must be positive")
	ErrCompletedAtMismatch = errors.New("completed_at must be set exactly when the status is terminal")
)

// JobParams holds the optional generation inputs submitted with a job.
type JobParams struct {
	// SkillGaps overrides the skill gaps inferred from the employee directory.
	SkillGaps []string `json:"skill_gaps,omitempty"`

	// DocumentIDs lists reference documents excerpted into every prompt.
	DocumentIDs []uuid.UUID `json:"document_ids,omitempty"`
}

// Job is one bulk personalization request: a group of employees, the course
// parameters every employee's content is generated from, and the aggregate
// outcome of the per-employee tasks.
type Job struct {
	ID                   uuid.UUID       `json:"id"`
	GroupType            GroupType       `json:"group_type"`
	GroupID              uuid.UUID       `json:"group_id"`
	Title                string          `json:"title"`
	Description          string          `json:"description"`
	DifficultyLevel      DifficultyLevel `json:"difficulty_level"`
	TotalEmployees       int             `json:"total_employees"`
	Status               JobStatus       `json:"status"`
	CreatedBy            *uuid.UUID      `json:"created_by,omitempty"`
	CourseID             *uuid.UUID      `json:"course_id,omitempty"`
	RegeneratesContentID *uuid.UUID      `json:"regenerates_content_id,omitempty"`
	Params               JobParams       `json:"params"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
	CompletedAt          *time.Time      `json:"completed_at,omitempty"`
}

// NewJob creates a queued Job for the given group and course parameters.
// An empty difficulty defaults to intermediate.
// Returns an error if validation fails.
func NewJob(
	groupType GroupType,
	groupID uuid.UUID,
	title string,
	description string,
	difficulty DifficultyLevel,
	totalEmployees int,
) (*Job, error) {
	if difficulty == "" {
		difficulty = DifficultyIntermediate
	}

	now := time.Now().UTC()
	job := &Job{
		ID:              uuid.New(),
		GroupType:       groupType,
		GroupID:         groupID,
		Title:           strings.TrimSpace(title),
		Description:     strings.TrimSpace(description),
		DifficultyLevel: difficulty,
		TotalEmployees:  totalEmployees,
		Status:          JobStatusQueued,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := job.Validate(); err != nil {
		return nil, err
	}

	return job, nil
}

// Validate checks if the Job has valid data.
func (j *Job) Validate() error {
	if j.ID == uuid.Nil {
		return ErrEmptyJobID
	}
	if !j.GroupType.IsValid() {
		return ErrInvalidGroupType
	}
	if j.GroupID == uuid.Nil {
		return ErrEmptyGroupID
	}
	if strings.TrimSpace(j.Title) == "" {
		return ErrEmptyJobTitle
	}
	if !j.DifficultyLevel.IsValid() {
		return ErrInvalidDifficulty
	}
	if j.TotalEmployees <= 0 {
		return ErrEmptyEmployeeSet
	}
	if !j.Status.IsValid() {
		return ErrInvalidJobStatus
	}
	if j.Status.IsTerminal() != (j.CompletedAt != nil) {
		return ErrCompletedAtMismatch
	}
	return nil
}

// IsTerminal reports whether the job has finished.
func (j *Job) IsTerminal() bool {
	return j.Status.IsTerminal()
}

// IsValid reports whether g is a supported group selector.
func (g GroupType) IsValid() bool {
	return g == GroupTypeDepartment || g == GroupTypePosition
}

// IsValid reports whether d is a supported difficulty level.
func (d DifficultyLevel) IsValid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	default:
		return false
	}
}

// IsValid reports whether s is a known job status.
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusQueued, JobStatusRunning, JobStatusCompleted,
		JobStatusCompletedWithErrors, JobStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether s is one of the finished states.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusCompletedWithErrors, JobStatusFailed:
		return true
	default:
		return false
	}
}

// AggregateJobStatus derives a job's terminal status from the outcome counts of
// its tasks. The second return value is false while any task is unfinished.
func AggregateJobStatus(total, completed, failed int) (JobStatus, bool) {
	if total <= 0 || completed+failed < total {
		return "", false
	}

	switch {
	case completed == total:
		return JobStatusCompleted, true
	case failed == total:
		return JobStatusFailed, true
	default:
		return JobStatusCompletedWithErrors, true
	}
}
