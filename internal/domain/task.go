package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the state of one employee's generation task
type TaskStatus string

// Possible task status values
const (
	TaskStatusQueued    TaskStatus = "queued"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// Common validation errors for GenerationTask
var (
	ErrEmptyTaskID         = errors.New("task ID cannot be empty")
	ErrEmptyTaskJobID      = errors.New("task job ID cannot be empty")
	ErrEmptyTaskEmployeeID = errors.New("task employee ID cannot be empty")
	ErrInvalidTaskStatus   = errors.New("invalid task status")
	ErrTaskOutcomeMismatch = errors.New("a finished task must carry exactly one of content ID or error")
)

// GenerationTask tracks the personalization of one employee within a Job.
type GenerationTask struct {
	ID          uuid.UUID  `json:"id"`
	JobID       uuid.UUID  `json:"job_id"`
	EmployeeID  uuid.UUID  `json:"employee_id"`
	Status      TaskStatus `json:"status"`
	ContentID   *uuid.UUID `json:"content_id,omitempty"`
	Error       string     `json:"error,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewGenerationTask creates a queued task for one employee of a job.
func NewGenerationTask(jobID, employeeID uuid.UUID) (*GenerationTask, error) {
	now := time.Now().UTC()
	task := &GenerationTask{
		ID:         uuid.New(),
		JobID:      jobID,
		EmployeeID: employeeID,
		Status:     TaskStatusQueued,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the GenerationTask has valid data.
func (t *GenerationTask) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}
	if t.JobID == uuid.Nil {
		return ErrEmptyTaskJobID
	}
	if t.EmployeeID == uuid.Nil {
		return ErrEmptyTaskEmployeeID
	}
	if !t.Status.IsValid() {
		return ErrInvalidTaskStatus
	}

	switch t.Status {
	case TaskStatusCompleted:
		if t.ContentID == nil || t.Error != "" {
			return ErrTaskOutcomeMismatch
		}
	case TaskStatusFailed:
		if t.ContentID != nil || t.Error == "" {
			return ErrTaskOutcomeMismatch
		}
	}

	return nil
}

// IsTerminal reports whether the task has finished.
func (t *GenerationTask) IsTerminal() bool {
	return t.Status.IsTerminal()
}

// IsValid reports whether s is a known task status.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusQueued, TaskStatusRunning, TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether s is completed or failed.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// TaskCounts summarizes the tasks of one job by status.
type TaskCounts struct {
	Queued    int
	Running   int
	Completed int
	Failed    int
}

// CountTasks tallies tasks by status.
func CountTasks(tasks []*GenerationTask) TaskCounts {
	var c TaskCounts
	for _, t := range tasks {
		switch t.Status {
		case TaskStatusQueued:
			c.Queued++
		case TaskStatusRunning:
			c.Running++
		case TaskStatusCompleted:
			c.Completed++
		case TaskStatusFailed:
			c.Failed++
		}
	}
	return c
}

// Finished returns the number of terminal tasks.
func (c TaskCounts) Finished() int {
	return c.Completed + c.Failed
}

// Remaining returns the number of tasks still queued or running.
func (c TaskCounts) Remaining() int {
	return c.Queued + c.Running
}
